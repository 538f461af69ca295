// Package redis implements the URL repository on Redis.
//
// Every URL is a hash under url:code:<short code>. Two string keys index it by
// original URL and by ID, and a sorted set scored by creation time keeps the
// listing order. Inserts and click increments run as Lua scripts so that the
// uniqueness checks and the counter update are atomic on the server.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nowisf/url-shortner/internal/entity"
	"github.com/redis/go-redis/v9"
)

const (
	codeKeyPrefix     = "url:code:"
	originalKeyPrefix = "url:original:"
	idKeyPrefix       = "url:id:"
	createdKey        = "urls:created"
)

const (
	saveOK = iota
	saveShortCodeExists
	saveOriginalURLExists
)

// KEYS: code hash, original index, id index, creation set.
// ARGV: id, original url, short code, creation date, clicks, creation score.
var saveScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
	return 2
end
if redis.call("EXISTS", KEYS[1]) == 1 or redis.call("EXISTS", KEYS[3]) == 1 then
	return 1
end
redis.call("HSET", KEYS[1],
	"id", ARGV[1],
	"original_url", ARGV[2],
	"short_url", ARGV[3],
	"creation_date", ARGV[4],
	"times_clicked", ARGV[5])
redis.call("SET", KEYS[2], ARGV[3])
redis.call("SET", KEYS[3], ARGV[3])
redis.call("ZADD", KEYS[4], ARGV[6], ARGV[3])
return 0
`)

// Returns nil when the hash does not exist.
var incrementScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return false
end
return redis.call("HINCRBY", KEYS[1], "times_clicked", 1)
`)

func codeKey(shortCode string) string { return codeKeyPrefix + shortCode }

func originalKey(originalURL string) string { return originalKeyPrefix + originalURL }

func idKey(id uuid.UUID) string { return idKeyPrefix + id.String() }

type urlHash struct {
	ID           string `redis:"id"`
	OriginalURL  string `redis:"original_url"`
	ShortURL     string `redis:"short_url"`
	CreationDate string `redis:"creation_date"`
	TimesClicked int64  `redis:"times_clicked"`
}

func (h *urlHash) toEntity() (*entity.URL, error) {
	id, err := uuid.Parse(h.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", h.ID, err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, h.CreationDate)
	if err != nil {
		return nil, fmt.Errorf("invalid creation date %q: %w", h.CreationDate, err)
	}

	return &entity.URL{
		ID:           id,
		OriginalURL:  h.OriginalURL,
		ShortCode:    h.ShortURL,
		CreatedAt:    createdAt.UTC(),
		TimesClicked: h.TimesClicked,
	}, nil
}

type URLRepository struct {
	client redis.UniversalClient
}

func NewURLRepository(client redis.UniversalClient) *URLRepository {
	return &URLRepository{client: client}
}

func (r *URLRepository) Save(ctx context.Context, url *entity.URL) error {
	const op = "adapter.repository.redis.URLRepository.Save"

	createdAt := url.CreatedAt.UTC()

	keys := []string{codeKey(url.ShortCode), originalKey(url.OriginalURL), idKey(url.ID), createdKey}
	args := []any{
		url.ID.String(),
		url.OriginalURL,
		url.ShortCode,
		createdAt.Format(time.RFC3339Nano),
		url.TimesClicked,
		createdAt.UnixMicro(),
	}

	res, err := saveScript.Run(ctx, r.client, keys, args...).Int()
	if err != nil {
		return fmt.Errorf("%s: failed to run save script: %w", op, err)
	}

	switch res {
	case saveOK:
		return nil
	case saveShortCodeExists:
		return fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
	case saveOriginalURLExists:
		return fmt.Errorf("%s: %w", op, entity.ErrOriginalURLExists)
	default:
		return fmt.Errorf("%s: unexpected save script result: %d", op, res)
	}
}

func (r *URLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.redis.URLRepository.RetrieveByShortCode"

	url, err := r.get(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

func (r *URLRepository) RetrieveByOriginalURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.redis.URLRepository.RetrieveByOriginalURL"

	shortCode, err := r.client.Get(ctx, originalKey(originalURL)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get original url index: %w", op, err)
	}

	url, err := r.get(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

func (r *URLRepository) get(ctx context.Context, shortCode string) (*entity.URL, error) {
	cmd := r.client.HGetAll(ctx, codeKey(shortCode))
	return scanURL(cmd)
}

func scanURL(cmd *redis.MapStringStringCmd) (*entity.URL, error) {
	fields, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get url hash: %w", err)
	}

	if len(fields) == 0 {
		return nil, entity.ErrURLNotFound
	}

	var h urlHash
	if err := cmd.Scan(&h); err != nil {
		return nil, fmt.Errorf("failed to scan url hash: %w", err)
	}

	return h.toEntity()
}

func (r *URLRepository) IncrementClicks(ctx context.Context, shortCode string) error {
	const op = "adapter.repository.redis.URLRepository.IncrementClicks"

	if err := incrementScript.Run(ctx, r.client, []string{codeKey(shortCode)}).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return fmt.Errorf("%s: failed to run increment script: %w", op, err)
	}

	return nil
}

func (r *URLRepository) RetrieveAll(ctx context.Context) ([]*entity.URL, error) {
	const op = "adapter.repository.redis.URLRepository.RetrieveAll"

	codes, err := r.client.ZRange(ctx, createdKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list short codes: %w", op, err)
	}

	if len(codes) == 0 {
		return []*entity.URL{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, 0, len(codes))

	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, code := range codes {
			cmds = append(cmds, pipe.HGetAll(ctx, codeKey(code)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url hashes: %w", op, err)
	}

	urls := make([]*entity.URL, 0, len(cmds))
	for i, cmd := range cmds {
		url, err := scanURL(cmd)
		if err != nil {
			return nil, fmt.Errorf("%s: short code %s: %w", op, codes[i], err)
		}
		urls = append(urls, url)
	}

	return urls, nil
}

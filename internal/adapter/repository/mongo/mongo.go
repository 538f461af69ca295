// Package mongo implements the URL repository on a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nowisf/url-shortner/internal/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	shortURLIndex     = "short_url_unique"
	originalURLIndex  = "original_url_unique"
	creationDateIndex = "creation_date"
)

type urlDocument struct {
	ID           string    `bson:"_id"`
	OriginalURL  string    `bson:"original_url"`
	ShortURL     string    `bson:"short_url"`
	CreationDate time.Time `bson:"creation_date"`
	TimesClicked int64     `bson:"times_clicked"`
}

func fromEntity(url *entity.URL) *urlDocument {
	return &urlDocument{
		ID:           url.ID.String(),
		OriginalURL:  url.OriginalURL,
		ShortURL:     url.ShortCode,
		CreationDate: url.CreatedAt.UTC(),
		TimesClicked: url.TimesClicked,
	}
}

func (d *urlDocument) toEntity() (*entity.URL, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", d.ID, err)
	}

	return &entity.URL{
		ID:           id,
		OriginalURL:  d.OriginalURL,
		ShortCode:    d.ShortURL,
		CreatedAt:    d.CreationDate.UTC(),
		TimesClicked: d.TimesClicked,
	}, nil
}

// duplicateOriginalURL reports whether a duplicate key error was raised by the
// original_url index rather than by _id or short_url.
func duplicateOriginalURL(err error) bool {
	var we mongo.WriteException
	if !errors.As(err, &we) {
		return false
	}

	for _, e := range we.WriteErrors {
		if strings.Contains(e.Message, originalURLIndex) {
			return true
		}
	}

	return false
}

type URLRepository struct {
	coll *mongo.Collection
}

func NewURLRepository(coll *mongo.Collection) *URLRepository {
	return &URLRepository{coll: coll}
}

// EnsureIndexes creates the unique indexes the repository relies on.
func (r *URLRepository) EnsureIndexes(ctx context.Context) error {
	const op = "adapter.repository.mongo.URLRepository.EnsureIndexes"

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "short_url", Value: 1}},
			Options: options.Index().SetName(shortURLIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "original_url", Value: 1}},
			Options: options.Index().SetName(originalURLIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "creation_date", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName(creationDateIndex),
		},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("%s: failed to create indexes: %w", op, err)
	}

	return nil
}

func (r *URLRepository) Save(ctx context.Context, url *entity.URL) error {
	const op = "adapter.repository.mongo.URLRepository.Save"

	if _, err := r.coll.InsertOne(ctx, fromEntity(url)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if duplicateOriginalURL(err) {
				return fmt.Errorf("%s: %w", op, entity.ErrOriginalURLExists)
			}
			return fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return fmt.Errorf("%s: failed to insert document: %w", op, err)
	}

	return nil
}

func (r *URLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.mongo.URLRepository.RetrieveByShortCode"

	url, err := r.findOne(ctx, bson.D{{Key: "short_url", Value: shortCode}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

func (r *URLRepository) RetrieveByOriginalURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.mongo.URLRepository.RetrieveByOriginalURL"

	url, err := r.findOne(ctx, bson.D{{Key: "original_url", Value: originalURL}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

func (r *URLRepository) findOne(ctx context.Context, filter bson.D) (*entity.URL, error) {
	var doc urlDocument

	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entity.ErrURLNotFound
		}

		return nil, fmt.Errorf("failed to find document: %w", err)
	}

	return doc.toEntity()
}

func (r *URLRepository) IncrementClicks(ctx context.Context, shortCode string) error {
	const op = "adapter.repository.mongo.URLRepository.IncrementClicks"

	filter := bson.D{{Key: "short_url", Value: shortCode}}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "times_clicked", Value: 1}}}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("%s: failed to update document: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return nil
}

func (r *URLRepository) RetrieveAll(ctx context.Context) ([]*entity.URL, error) {
	const op = "adapter.repository.mongo.URLRepository.RetrieveAll"

	opts := options.Find().SetSort(bson.D{{Key: "creation_date", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to find documents: %w", op, err)
	}

	var docs []urlDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: failed to decode documents: %w", op, err)
	}

	urls := make([]*entity.URL, 0, len(docs))
	for i := range docs {
		url, err := docs[i].toEntity()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		urls = append(urls, url)
	}

	return urls, nil
}

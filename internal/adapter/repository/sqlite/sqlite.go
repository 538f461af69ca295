// Package sqlite implements the URL repository on an embedded SQLite database through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/nowisf/url-shortner/internal/entity"
	"gorm.io/gorm"
)

// URLModel is the gorm mapping of the urls table.
type URLModel struct {
	ID           string    `gorm:"primaryKey;type:text"`
	OriginalURL  string    `gorm:"column:original_url;type:text;not null;uniqueIndex"`
	ShortURL     string    `gorm:"column:short_url;type:text;not null;uniqueIndex"`
	CreationDate time.Time `gorm:"column:creation_date;not null;index"`
	TimesClicked int64     `gorm:"column:times_clicked;not null;default:0"`
}

func (URLModel) TableName() string {
	return "urls"
}

func fromEntity(url *entity.URL) *URLModel {
	return &URLModel{
		ID:           url.ID.String(),
		OriginalURL:  url.OriginalURL,
		ShortURL:     url.ShortCode,
		CreationDate: url.CreatedAt.UTC(),
		TimesClicked: url.TimesClicked,
	}
}

func (m *URLModel) toEntity() (*entity.URL, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", m.ID, err)
	}

	return &entity.URL{
		ID:           id,
		OriginalURL:  m.OriginalURL,
		ShortCode:    m.ShortURL,
		CreatedAt:    m.CreationDate.UTC(),
		TimesClicked: m.TimesClicked,
	}, nil
}

// constraintViolation reports the failing column ("urls.original_url" and the like)
// when err is a unique or primary key violation.
func constraintViolation(err error) (string, bool) {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return "", false
	}

	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		msg := sqliteErr.Error()
		if i := strings.LastIndex(msg, ": "); i >= 0 {
			msg = msg[i+2:]
		}
		return msg, true
	default:
		return "", false
	}
}

type URLRepository struct {
	db *gorm.DB
}

func NewURLRepository(db *gorm.DB) *URLRepository {
	return &URLRepository{db: db}
}

func (r *URLRepository) Save(ctx context.Context, url *entity.URL) error {
	const op = "adapter.repository.sqlite.URLRepository.Save"

	if err := r.db.WithContext(ctx).Create(fromEntity(url)).Error; err != nil {
		if column, ok := constraintViolation(err); ok {
			if column == "urls.original_url" {
				return fmt.Errorf("%s: %w", op, entity.ErrOriginalURLExists)
			}
			return fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return fmt.Errorf("%s: failed to insert into urls table: %w", op, err)
	}

	return nil
}

func (r *URLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.sqlite.URLRepository.RetrieveByShortCode"

	url, err := r.take(ctx, "short_url = ?", shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

func (r *URLRepository) RetrieveByOriginalURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.sqlite.URLRepository.RetrieveByOriginalURL"

	url, err := r.take(ctx, "original_url = ?", originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

func (r *URLRepository) take(ctx context.Context, query string, arg string) (*entity.URL, error) {
	var m URLModel

	if err := r.db.WithContext(ctx).Where(query, arg).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrURLNotFound
		}

		return nil, fmt.Errorf("failed to get row from urls table: %w", err)
	}

	return m.toEntity()
}

func (r *URLRepository) IncrementClicks(ctx context.Context, shortCode string) error {
	const op = "adapter.repository.sqlite.URLRepository.IncrementClicks"

	res := r.db.WithContext(ctx).
		Model(&URLModel{}).
		Where("short_url = ?", shortCode).
		UpdateColumn("times_clicked", gorm.Expr("times_clicked + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("%s: failed to update urls table row: %w", op, res.Error)
	}

	if res.RowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return nil
}

func (r *URLRepository) RetrieveAll(ctx context.Context) ([]*entity.URL, error) {
	const op = "adapter.repository.sqlite.URLRepository.RetrieveAll"

	var models []URLModel

	if err := r.db.WithContext(ctx).Order("creation_date, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("%s: failed to select from urls table: %w", op, err)
	}

	urls := make([]*entity.URL, 0, len(models))
	for i := range models {
		url, err := models[i].toEntity()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		urls = append(urls, url)
	}

	return urls, nil
}

package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/nowisf/url-shortner/internal/entity"
	"github.com/stretchr/testify/mock"
)

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) Save(ctx context.Context, url *entity.URL) error {
	args := r.Called(ctx, url)
	return args.Error(0)
}

func (r *MockURLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := r.Called(ctx, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) RetrieveByOriginalURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	args := r.Called(ctx, originalURL)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) IncrementClicks(ctx context.Context, shortCode string) error {
	args := r.Called(ctx, shortCode)
	return args.Error(0)
}

func (r *MockURLRepository) RetrieveAll(ctx context.Context) ([]*entity.URL, error) {
	args := r.Called(ctx)
	urls, _ := args.Get(0).([]*entity.URL)
	return urls, args.Error(1)
}

// memoryRepository is a URLRepository honouring the uniqueness and atomicity
// contract, used to check end-to-end properties of the use cases.
type memoryRepository struct {
	mu         sync.Mutex
	byCode     map[string]*entity.URL
	byOriginal map[string]string
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		byCode:     make(map[string]*entity.URL),
		byOriginal: make(map[string]string),
	}
}

func (r *memoryRepository) Save(_ context.Context, url *entity.URL) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byCode[url.ShortCode]; ok {
		return entity.ErrShortCodeExists
	}
	for _, u := range r.byCode {
		if u.ID == url.ID {
			return entity.ErrShortCodeExists
		}
	}
	if _, ok := r.byOriginal[url.OriginalURL]; ok {
		return entity.ErrOriginalURLExists
	}

	stored := *url
	r.byCode[url.ShortCode] = &stored
	r.byOriginal[url.OriginalURL] = url.ShortCode

	return nil
}

func (r *memoryRepository) RetrieveByShortCode(_ context.Context, shortCode string) (*entity.URL, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	url, ok := r.byCode[shortCode]
	if !ok {
		return nil, entity.ErrURLNotFound
	}

	found := *url
	return &found, nil
}

func (r *memoryRepository) RetrieveByOriginalURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	r.mu.Lock()
	shortCode, ok := r.byOriginal[originalURL]
	r.mu.Unlock()

	if !ok {
		return nil, entity.ErrURLNotFound
	}

	return r.RetrieveByShortCode(ctx, shortCode)
}

func (r *memoryRepository) IncrementClicks(_ context.Context, shortCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	url, ok := r.byCode[shortCode]
	if !ok {
		return entity.ErrURLNotFound
	}
	url.TimesClicked++

	return nil
}

func (r *memoryRepository) RetrieveAll(_ context.Context) ([]*entity.URL, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	urls := make([]*entity.URL, 0, len(r.byCode))
	for _, u := range r.byCode {
		found := *u
		urls = append(urls, &found)
	}
	sort.Slice(urls, func(i, j int) bool {
		return urls[i].CreatedAt.Before(urls[j].CreatedAt)
	})

	return urls, nil
}

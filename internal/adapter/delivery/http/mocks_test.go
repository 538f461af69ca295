package http

import (
	"context"

	"github.com/nowisf/url-shortner/internal/entity"
	"github.com/stretchr/testify/mock"
)

type MockURLShortener struct {
	mock.Mock
}

func (m *MockURLShortener) ShortenURL(ctx context.Context, originalURL string) (*entity.URL, bool, error) {
	args := m.Called(ctx, originalURL)

	var url *entity.URL
	if v := args.Get(0); v != nil {
		url = v.(*entity.URL)
	}

	return url, args.Bool(1), args.Error(2)
}

type MockURLRedirector struct {
	mock.Mock
}

func (m *MockURLRedirector) ResolveShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := m.Called(ctx, shortCode)

	var url *entity.URL
	if v := args.Get(0); v != nil {
		url = v.(*entity.URL)
	}

	return url, args.Error(1)
}

func (m *MockURLRedirector) GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := m.Called(ctx, shortCode)

	var url *entity.URL
	if v := args.Get(0); v != nil {
		url = v.(*entity.URL)
	}

	return url, args.Error(1)
}

func (m *MockURLRedirector) ListURLs(ctx context.Context) ([]*entity.URL, error) {
	args := m.Called(ctx)

	var urls []*entity.URL
	if v := args.Get(0); v != nil {
		urls = v.([]*entity.URL)
	}

	return urls, args.Error(1)
}

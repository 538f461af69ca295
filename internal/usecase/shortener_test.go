package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nowisf/url-shortner/internal/entity"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type ShortenerTestSuite struct {
	suite.Suite
	errUnknown   error
	now          time.Time
	urlRepoMock  *MockURLRepository
	shortener    *Shortener
	requestedLen []int
}

func (suite *ShortenerTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.now = time.Date(2025, time.March, 14, 15, 9, 26, 0, time.UTC)
}

func (suite *ShortenerTestSuite) SetupSubTest() {
	suite.urlRepoMock = new(MockURLRepository)
	suite.shortener = NewShortener(suite.urlRepoMock)
	suite.shortener.now = func() time.Time { return suite.now }
	suite.requestedLen = nil
}

func (suite *ShortenerTestSuite) TearDownSubTest() {
	suite.urlRepoMock.AssertExpectations(suite.T())
}

// codes makes the shortener draw the given codes in order, repeating the last one.
func (suite *ShortenerTestSuite) codes(codes ...string) {
	i := 0
	suite.shortener.generate = func(length int) (string, error) {
		suite.requestedLen = append(suite.requestedLen, length)
		code := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return code, nil
	}
}

func (suite *ShortenerTestSuite) TestShortenURL() {
	existing := &entity.URL{
		ID:          uuid.New(),
		OriginalURL: "https://example.com",
		ShortCode:   "aB3dE",
	}

	suite.Run("invalid url", func() {
		for _, originalURL := range []string{"", "not-a-url", "example.com"} {
			url, created, err := suite.shortener.ShortenURL(context.Background(), originalURL)

			suite.ErrorIs(err, ErrInvalidURL)
			suite.False(created)
			suite.Nil(url)
		}
	})

	suite.Run("already shortened", func() {
		suite.urlRepoMock.
			On("RetrieveByOriginalURL", mock.Anything, "https://example.com").
			Once().
			Return(existing, nil)

		url, created, err := suite.shortener.ShortenURL(context.Background(), "https://example.com")

		suite.NoError(err)
		suite.False(created)
		suite.Equal(existing, url)
	})

	suite.Run("lookup error", func() {
		suite.urlRepoMock.
			On("RetrieveByOriginalURL", mock.Anything, "https://example.com").
			Once().
			Return(nil, suite.errUnknown)

		url, created, err := suite.shortener.ShortenURL(context.Background(), "https://example.com")

		suite.ErrorIs(err, suite.errUnknown)
		suite.False(created)
		suite.Nil(url)
	})

	suite.Run("short code generation error", func() {
		suite.shortener.generate = func(int) (string, error) {
			return "", suite.errUnknown
		}

		suite.urlRepoMock.
			On("RetrieveByOriginalURL", mock.Anything, "https://example.com").
			Once().
			Return(nil, entity.ErrURLNotFound)

		url, _, err := suite.shortener.ShortenURL(context.Background(), "https://example.com")

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.codes("aB3dE")

		suite.urlRepoMock.
			On("RetrieveByOriginalURL", mock.Anything, "https://example.com").
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "aB3dE").
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("Save", mock.Anything, mock.MatchedBy(func(u *entity.URL) bool {
				return u.ShortCode == "aB3dE" && u.OriginalURL == "https://example.com"
			})).
			Once().
			Return(nil)

		url, created, err := suite.shortener.ShortenURL(context.Background(), "https://example.com")

		suite.NoError(err)
		suite.True(created)
		suite.Equal("aB3dE", url.ShortCode)
		suite.Equal("https://example.com", url.OriginalURL)
		suite.Equal(suite.now, url.CreatedAt)
		suite.NotEqual(uuid.Nil, url.ID)
		suite.Zero(url.TimesClicked)
		suite.Equal([]int{5}, suite.requestedLen)
	})

	suite.Run("collision on lookup", func() {
		suite.codes("aaaaa", "bbbbb")

		suite.urlRepoMock.
			On("RetrieveByOriginalURL", mock.Anything, "https://example.com").
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "aaaaa").
			Once().
			Return(&entity.URL{ShortCode: "aaaaa"}, nil)
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "bbbbb").
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("Save", mock.Anything, mock.Anything).
			Once().
			Return(nil)

		url, created, err := suite.shortener.ShortenURL(context.Background(), "https://example.com")

		suite.NoError(err)
		suite.True(created)
		suite.Equal("bbbbb", url.ShortCode)
	})

	suite.Run("collision on save", func() {
		suite.codes("aaaaa", "bbbbb")

		suite.urlRepoMock.
			On("RetrieveByOriginalURL", mock.Anything, "https://example.com").
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, mock.Anything).
			Twice().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("Save", mock.Anything, mock.MatchedBy(func(u *entity.URL) bool { return u.ShortCode == "aaaaa" })).
			Once().
			Return(entity.ErrShortCodeExists)
		suite.urlRepoMock.
			On("Save", mock.Anything, mock.MatchedBy(func(u *entity.URL) bool { return u.ShortCode == "bbbbb" })).
			Once().
			Return(nil)

		url, created, err := suite.shortener.ShortenURL(context.Background(), "https://example.com")

		suite.NoError(err)
		suite.True(created)
		suite.Equal("bbbbb", url.ShortCode)
	})

	suite.Run("maximum retries error", func() {
		suite.shortener.generate = func(length int) (string, error) {
			suite.requestedLen = append(suite.requestedLen, length)
			return "taken", nil
		}

		suite.urlRepoMock.
			On("RetrieveByOriginalURL", mock.Anything, "https://example.com").
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "taken").
			Times(10).
			Return(&entity.URL{ShortCode: "taken"}, nil)

		url, created, err := suite.shortener.ShortenURL(context.Background(), "https://example.com")

		suite.ErrorIs(err, ErrMaxRetriesExceeded)
		suite.False(created)
		suite.Nil(url)
		suite.Equal([]int{5, 5, 5, 5, 5, 6, 6, 6, 6, 6}, suite.requestedLen)
	})

	suite.Run("concurrent shortening of the same url", func() {
		suite.codes("aaaaa")

		suite.urlRepoMock.
			On("RetrieveByOriginalURL", mock.Anything, "https://example.com").
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "aaaaa").
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("Save", mock.Anything, mock.Anything).
			Once().
			Return(entity.ErrOriginalURLExists)
		suite.urlRepoMock.
			On("RetrieveByOriginalURL", mock.Anything, "https://example.com").
			Once().
			Return(existing, nil)

		url, created, err := suite.shortener.ShortenURL(context.Background(), "https://example.com")

		suite.NoError(err)
		suite.False(created)
		suite.Equal(existing, url)
	})

	suite.Run("unknown save error", func() {
		suite.codes("aaaaa")

		suite.urlRepoMock.
			On("RetrieveByOriginalURL", mock.Anything, "https://example.com").
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "aaaaa").
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("Save", mock.Anything, mock.Anything).
			Once().
			Return(suite.errUnknown)

		url, created, err := suite.shortener.ShortenURL(context.Background(), "https://example.com")

		suite.ErrorIs(err, suite.errUnknown)
		suite.False(created)
		suite.Nil(url)
	})
}

func (suite *ShortenerTestSuite) TestShortenURL_StoreTimeout() {
	suite.Run("repository calls are bounded", func() {
		suite.shortener = NewShortener(suite.urlRepoMock, WithStoreTimeout(time.Minute))

		suite.urlRepoMock.
			On("RetrieveByOriginalURL", mock.MatchedBy(func(ctx context.Context) bool {
				_, ok := ctx.Deadline()
				return ok
			}), "https://example.com").
			Once().
			Return(&entity.URL{ShortCode: "aB3dE"}, nil)

		_, _, err := suite.shortener.ShortenURL(context.Background(), "https://example.com")

		suite.NoError(err)
	})
}

func TestShortener(t *testing.T) {
	suite.Run(t, new(ShortenerTestSuite))
}

package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/nowisf/url-shortner/internal/config"
)

func freePort(t testing.TB) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to get free port: %v", err)
	}
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port
}

type APITestSuite struct {
	suite.Suite
	baseURL string
	e       *httpexpect.Expect
}

// SetupSubTest runs the whole application on a fresh sqlite database for every subtest.
func (suite *APITestSuite) SetupSubTest() {
	t := suite.T()

	cfg := &config.Config{
		Env:             config.EnvDev,
		LogLevel:        "info",
		ShortCodeLength: 5,
		MaxRetries:      5,
		StoreTimeout:    3 * time.Second,
		HTTPServer: config.HTTPServer{
			Port:           freePort(t),
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   5 * time.Second,
			IdleTimeout:    time.Minute,
			MaxHeaderBytes: 1 << 20,
		},
		CORS:    config.CORS{AllowedOrigins: []string{"http://localhost:5173"}},
		Storage: config.Storage{Driver: config.DriverSQLite},
		SQLite: config.SQLite{
			Path:        filepath.Join(t.TempDir(), "database.sqlite"),
			BusyTimeout: 5 * time.Second,
		},
	}

	logger := httplog.NewLogger("", httplog.Options{Writer: io.Discard})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, cfg, logger)
	}()
	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("Application stopped with error: %v", err)
		}
	})

	suite.baseURL = fmt.Sprintf("http://localhost:%d", cfg.HTTPServer.Port)
	suite.waitReady(errCh)

	suite.e = httpexpect.WithConfig(httpexpect.Config{
		BaseURL: suite.baseURL,
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Reporter: httpexpect.NewAssertReporter(t),
	})
}

func (suite *APITestSuite) waitReady(errCh chan error) {
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		select {
		case err := <-errCh:
			errCh <- err
			suite.T().Fatalf("Application exited early: %v", err)
		default:
		}

		resp, err := http.Get(suite.baseURL + "/api/v1/ping")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}

		time.Sleep(20 * time.Millisecond)
	}

	suite.T().Fatalf("Application did not become ready")
}

func (suite *APITestSuite) TestShortenAndResolve() {
	suite.Run("full flow", func() {
		created := suite.e.POST("/shortner").
			WithJSON(map[string]string{"url": "https://example.com/some/long/path"}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object().
			Value("fullShortUrl").String()

		created.HasPrefix(suite.baseURL + "/")
		fullShortURL := created.Raw()
		shortCode := fullShortURL[len(suite.baseURL)+1:]
		suite.Len(shortCode, 5)

		suite.e.POST("/shortner").
			WithJSON(map[string]string{"url": "https://example.com/some/long/path"}).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			HasValue("fullShortUrl", fullShortURL)

		for i := 0; i < 3; i++ {
			suite.e.GET("/" + shortCode).
				Expect().
				Status(http.StatusFound).
				Header("Location").IsEqual("https://example.com/some/long/path")
		}

		suite.e.GET("/stats/" + shortCode).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			IsEqual(map[string]any{
				"original_url":  "https://example.com/some/long/path",
				"times_clicked": 3,
			})

		suite.e.GET("/api/v1/urls").
			Expect().
			Status(http.StatusOK).
			JSON().Array().
			Length().IsEqual(1)
	})

	suite.Run("invalid url", func() {
		suite.e.POST("/shortner").
			WithJSON(map[string]string{"url": "not-a-url"}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			HasValue("error", "invalid url")
	})

	suite.Run("unknown short code", func() {
		suite.e.GET("/zzzzz").
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("error", "url not found")

		suite.e.GET("/stats/zzzzz").
			Expect().
			Status(http.StatusNotFound)
	})
}

func TestAPI(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func TestNewStorage(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		cfg := &config.Config{Storage: config.Storage{Driver: "cassandra"}}

		repo, closeFn, err := newStorage(context.Background(), cfg, nil)

		assert.ErrorIs(t, err, config.ErrUnknownDriver)
		assert.Nil(t, repo)
		assert.Nil(t, closeFn)
	})
}

package http

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nowisf/url-shortner/internal/entity"
)

// shortenRequest represents the body of a request to shorten a URL.
type shortenRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// shortenResponse carries the absolute short URL a client should hand out.
type shortenResponse struct {
	FullShortURL string `json:"fullShortUrl"`
}

// urlStatsResponse represents the click statistics of a short code.
type urlStatsResponse struct {
	OriginalURL  string `json:"original_url"`
	TimesClicked int64  `json:"times_clicked"`
}

func toURLStatsResponse(url *entity.URL) urlStatsResponse {
	return urlStatsResponse{
		OriginalURL:  url.OriginalURL,
		TimesClicked: url.TimesClicked,
	}
}

// urlResponse is the full record as exposed by the diagnostics listing.
type urlResponse struct {
	ID           string    `json:"id"`
	OriginalURL  string    `json:"original_url"`
	ShortURL     string    `json:"short_url"`
	CreationDate time.Time `json:"creation_date"`
	TimesClicked int64     `json:"times_clicked"`
}

func toURLResponses(urls []*entity.URL) []urlResponse {
	resp := make([]urlResponse, 0, len(urls))
	for _, url := range urls {
		resp = append(resp, urlResponse{
			ID:           url.ID.String(),
			OriginalURL:  url.OriginalURL,
			ShortURL:     url.ShortCode,
			CreationDate: url.CreatedAt,
			TimesClicked: url.TimesClicked,
		})
	}
	return resp
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Error   string            `json:"error"`
	Details []validationError `json:"details,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse = errorResponse{
		Error: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Error: "invalid request body",
	}

	invalidURLResponse = errorResponse{
		Error: "invalid url",
	}

	urlNotFoundResponse = errorResponse{
		Error: "url not found",
	}

	serviceUnavailableResponse = errorResponse{
		Error: "Service Unavailable",
	}

	serverErrorResponse = errorResponse{
		Error: "Internal Server Error",
	}
)

// messageForTag returns a user-friendly message based on the validation tag.
func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "url is required"
	case "url":
		return "invalid url"
	default:
		return "invalid value"
	}
}

func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

// validationErrorResponse uses the first failed rule as the headline and lists all of them as details.
func validationErrorResponse(err error) errorResponse {
	details := getValidationErrors(err)

	resp := errorResponse{
		Error:   "validation error",
		Details: details,
	}
	if len(details) > 0 {
		resp.Error = details[0].Message
	}

	return resp
}

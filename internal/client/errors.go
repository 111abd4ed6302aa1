package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Errors returned by the ChatBees service, matched with errors.Is.
var (
	ErrCollectionNotFound      = errors.New("collection not found")
	ErrCollectionAlreadyExists = errors.New("collection already exists")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrLimitExceeded           = errors.New("limit exceeded")
	ErrServerError             = errors.New("server error")
	ErrUnimplemented           = errors.New("unimplemented")
	ErrAPI                     = errors.New("api error")
)

// Errors detected before a request is sent.
var (
	ErrAPIKeyRequired     = errors.New("API key is required for using ChatBees")
	ErrFileTooLarge       = errors.New("file exceeds size limit")
	ErrInvalidApplication = errors.New("invalid application")
	ErrPublicAccountOnly  = errors.New("only supported for the public account")
	ErrInvalidFeedback    = errors.New("invalid feedback")
	ErrInvalidAccount     = errors.New("invalid account id")
)

// APIError is a failed response from the ChatBees service.
type APIError struct {
	StatusCode int
	Reason     string
	URL        string
	kind       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s from %s", e.StatusCode, e.Reason, e.URL)
}

// Unwrap returns the sentinel error for the status code.
func (e *APIError) Unwrap() error {
	return e.kind
}

// checkResponse converts a non-200 response into an *APIError.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var kind error
	switch resp.StatusCode {
	case http.StatusConflict:
		kind = ErrCollectionAlreadyExists
	case http.StatusNotFound:
		kind = ErrCollectionNotFound
	case http.StatusPaymentRequired:
		kind = ErrLimitExceeded
	case http.StatusInternalServerError:
		kind = ErrServerError
	case http.StatusUnauthorized:
		kind = ErrUnauthorized
	case http.StatusNotImplemented:
		kind = ErrUnimplemented
	default:
		if resp.StatusCode < 400 {
			return nil
		}
		kind = ErrAPI
	}

	url := ""
	if resp.Request != nil && resp.Request.URL != nil {
		url = resp.Request.URL.String()
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Reason:     reason(resp),
		URL:        url,
		kind:       kind,
	}
}

// reason extracts the "detail" field of an error body, falling back to the
// status text.
func reason(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err == nil && len(body) > 0 {
		var detail struct {
			Detail any `json:"detail"`
		}
		if json.Unmarshal(body, &detail) == nil && detail.Detail != nil {
			if s, ok := detail.Detail.(string); ok {
				return s
			}
			if b, err := json.Marshal(detail.Detail); err == nil {
				return string(b)
			}
		}
	}
	return http.StatusText(resp.StatusCode)
}

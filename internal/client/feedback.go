package client

import (
	"context"
	"fmt"
	"regexp"

	"github.com/chatbees/chatbees-go/internal/model"
)

const (
	maxFeedbackText = 1000
	maxContactField = 140
)

// Matched against the start of the address only.
var emailPattern = regexp.MustCompile("^\"?([-a-zA-Z0-9.`?{}]+@\\w+\\.\\w+)\"?")

// ValidateFeedback checks a feedback request before it is sent.
func ValidateFeedback(req *model.CreateOrUpdateFeedbackRequest) error {
	if req.RequestID == "" {
		return fmt.Errorf("%w: request id is required", ErrInvalidFeedback)
	}
	if len(req.TextFeedback) > maxFeedbackText {
		return fmt.Errorf("%w: text feedback is limited to %d characters", ErrInvalidFeedback, maxFeedbackText)
	}
	if u := req.UnregisteredUser; u != nil {
		if u.Email != "" && !emailPattern.MatchString(u.Email) {
			return fmt.Errorf("%w: invalid email address", ErrInvalidFeedback)
		}
		if len(u.Email) > maxContactField {
			return fmt.Errorf("%w: email address too long", ErrInvalidFeedback)
		}
		if len(u.Name) > maxContactField {
			return fmt.Errorf("%w: name too long", ErrInvalidFeedback)
		}
	}
	return nil
}

// CreateOrUpdateFeedback records feedback on an answer or search result.
func (c *Client) CreateOrUpdateFeedback(ctx context.Context, req model.CreateOrUpdateFeedbackRequest) error {
	if err := ValidateFeedback(&req); err != nil {
		return err
	}
	if req.CollectionName != "" && req.NamespaceName == "" {
		req.NamespaceName = c.namespace
	}
	return c.postJSON(ctx, "/feedback/create_or_update", req, nil, true)
}

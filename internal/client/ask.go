package client

import (
	"context"
	"fmt"

	"github.com/chatbees/chatbees-go/internal/model"
)

const (
	// DefaultTopK is the number of passages an answer is drawn from.
	DefaultTopK = 5

	defaultSearchTopK = 10
)

// Ask asks a question against a collection. Namespace defaults to the
// client's namespace and TopK to DefaultTopK. Ask works without an API key
// for publicly readable collections.
func (c *Client) Ask(ctx context.Context, req model.AskRequest) (*model.AskResponse, error) {
	if req.NamespaceName == "" {
		req.NamespaceName = c.namespace
	}
	if req.TopK <= 0 {
		req.TopK = DefaultTopK
	}

	var resp model.AskResponse
	if err := c.postJSON(ctx, "/docs/ask", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AskApplication asks a question through an application. The namespace and
// collection of req are ignored.
func (c *Client) AskApplication(ctx context.Context, application string, req model.AskRequest) (*model.AskResponse, error) {
	if application == "" {
		return nil, fmt.Errorf("%w: application name is required", ErrInvalidApplication)
	}
	if req.TopK <= 0 {
		req.TopK = DefaultTopK
	}

	appReq, err := model.NewAskApplicationRequest(application, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal application request: %w", err)
	}

	var resp model.AskResponse
	if err := c.postJSON(ctx, "/applications/ask", appReq, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Search returns the passages of a collection most relevant to question.
func (c *Client) Search(ctx context.Context, collection, question string, topK int) ([]model.SearchReference, error) {
	if topK <= 0 {
		topK = defaultSearchTopK
	}
	req := model.SearchRequest{
		CollectionBaseRequest: c.collectionRequest(collection),
		Question:              question,
		TopK:                  topK,
	}

	var resp model.SearchResponse
	if err := c.postJSON(ctx, "/docs/search", req, &resp, true); err != nil {
		return nil, err
	}
	return resp.Refs, nil
}

package client

import (
	"context"
	"fmt"

	"github.com/chatbees/chatbees-go/internal/config"
	"github.com/chatbees/chatbees-go/internal/model"
)

// CreateAPIKey creates an API key in the public account. Keys of private
// accounts are created in the web console.
func (c *Client) CreateAPIKey(ctx context.Context) (string, error) {
	if c.accountID != config.PublicAccount {
		return "", fmt.Errorf("%w: log in and create the API key in the console", ErrPublicAccountOnly)
	}

	var resp model.CreateAPIKeyResponse
	if err := c.postJSON(ctx, "/apikey/create", model.CreateAPIKeyRequest{}, &resp, false); err != nil {
		return "", err
	}
	return resp.APIKey, nil
}

// ListAPIKeys lists the API keys of the account.
func (c *Client) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	var resp model.ListAPIKeysResponse
	if err := c.postJSON(ctx, "/apikey/list", struct{}{}, &resp, true); err != nil {
		return nil, err
	}
	return resp.APIKeys, nil
}

// DeleteAPIKey deletes an API key by name.
func (c *Client) DeleteAPIKey(ctx context.Context, name string) error {
	return c.postJSON(ctx, "/apikey/delete", model.DeleteAPIKeyRequest{Name: name}, nil, true)
}

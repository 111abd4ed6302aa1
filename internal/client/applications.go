package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chatbees/chatbees-go/internal/model"
)

// CreateCollectionApplication exposes a collection of the client's namespace
// as an application.
func (c *Client) CreateCollectionApplication(ctx context.Context, name, collection string) (*model.Application, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection name is required", ErrInvalidApplication)
	}
	return c.createApplication(ctx, name, model.ApplicationCollection, model.CollectionTarget{
		NamespaceName:  c.namespace,
		CollectionName: collection,
	})
}

// CreateGPTApplication exposes a model of a provider as an application.
func (c *Client) CreateGPTApplication(ctx context.Context, name, provider, modelName string) (*model.Application, error) {
	if provider == "" || modelName == "" {
		return nil, fmt.Errorf("%w: provider and model are required", ErrInvalidApplication)
	}
	return c.createApplication(ctx, name, model.ApplicationGPT, model.GPTTarget{
		Provider: provider,
		Model:    modelName,
	})
}

func (c *Client) createApplication(ctx context.Context, name string, typ model.ApplicationType, target any) (*model.Application, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: application name is required", ErrInvalidApplication)
	}
	data, err := json.Marshal(target)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal application target: %w", err)
	}

	app := model.Application{
		ApplicationName:   name,
		ApplicationType:   typ,
		ApplicationTarget: string(data),
	}
	if err := c.postJSON(ctx, "/applications/create", model.CreateApplicationRequest{Application: app}, nil, true); err != nil {
		return nil, err
	}
	return &app, nil
}

// DeleteApplication deletes an application.
func (c *Client) DeleteApplication(ctx context.Context, name string) error {
	return c.postJSON(ctx, "/applications/delete", model.DeleteApplicationRequest{ApplicationName: name}, nil, true)
}

// ListApplications returns all applications of the account.
func (c *Client) ListApplications(ctx context.Context) ([]model.Application, error) {
	var resp model.ListApplicationsResponse
	if err := c.postJSON(ctx, "/applications/list", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Applications, nil
}

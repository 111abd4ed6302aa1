package client

import (
	"context"

	"github.com/chatbees/chatbees-go/internal/model"
)

// CreateCollection creates a collection in the client's namespace.
func (c *Client) CreateCollection(ctx context.Context, col model.Collection) error {
	req := model.CreateCollectionRequest{
		CollectionBaseRequest: c.collectionRequest(col.Name),
		Description:           col.Description,
	}
	if col.PublicReadable {
		req.PublicRead = &col.PublicReadable
	}
	return c.postJSON(ctx, "/collections/create", req, nil, true)
}

// ConfigureCollection updates the description and public access of a
// collection. Nil arguments are left unchanged.
func (c *Client) ConfigureCollection(ctx context.Context, name string, description *string, publicRead *bool) error {
	req := model.ConfigureCollectionRequest{
		CollectionBaseRequest: c.collectionRequest(name),
		Description:           description,
		PublicRead:            publicRead,
	}
	return c.postJSON(ctx, "/collections/configure", req, nil, true)
}

// ListCollections returns the names of the collections in the namespace.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	var resp model.ListCollectionsResponse
	req := model.ListCollectionsRequest{NamespaceName: c.namespace}
	if err := c.postJSON(ctx, "/collections/list", req, &resp, true); err != nil {
		return nil, err
	}
	return resp.Names, nil
}

// DeleteCollection deletes a collection and all of its documents.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	req := model.DeleteCollectionRequest{CollectionBaseRequest: c.collectionRequest(name)}
	return c.postJSON(ctx, "/collections/delete", req, nil, true)
}

// DescribeCollection returns the settings of a collection.
func (c *Client) DescribeCollection(ctx context.Context, name string) (*model.DescribeCollectionResponse, error) {
	var resp model.DescribeCollectionResponse
	req := model.DescribeCollectionRequest{CollectionBaseRequest: c.collectionRequest(name)}
	if err := c.postJSON(ctx, "/collections/describe", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Collection describes a collection and returns it as a Collection.
func (c *Client) Collection(ctx context.Context, name string) (*model.Collection, error) {
	resp, err := c.DescribeCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	col := resp.ToCollection(name)
	return &col, nil
}

// ConfigureChat sets the chatbot attributes of a collection.
func (c *Client) ConfigureChat(ctx context.Context, collection string, attrs model.ChatAttributes) error {
	req := model.ConfigureChatRequest{
		CollectionBaseRequest: c.collectionRequest(collection),
		ChatAttributes:        attrs,
	}
	return c.postJSON(ctx, "/docs/configure_chat", req, nil, true)
}

package client

import (
	"context"

	"github.com/chatbees/chatbees-go/internal/model"
)

// CreateCrawl starts crawling rootURL into a collection and returns the
// crawl id.
func (c *Client) CreateCrawl(ctx context.Context, collection, rootURL string, maxURLs int) (string, error) {
	req := model.CreateCrawlRequest{
		CollectionBaseRequest: c.collectionRequest(collection),
		RootURL:               rootURL,
		MaxURLsToCrawl:        maxURLs,
	}
	var resp model.CreateCrawlResponse
	if err := c.postJSON(ctx, "/docs/create_crawl", req, &resp, true); err != nil {
		return "", err
	}
	return resp.CrawlID, nil
}

// GetCrawl returns the state of a crawl.
func (c *Client) GetCrawl(ctx context.Context, collection, crawlID string) (*model.GetCrawlResponse, error) {
	req := model.GetCrawlRequest{
		CollectionBaseRequest: c.collectionRequest(collection),
		CrawlID:               crawlID,
	}
	var resp model.GetCrawlResponse
	if err := c.postJSON(ctx, "/docs/get_crawl", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IndexCrawl indexes the pages of a finished crawl.
func (c *Client) IndexCrawl(ctx context.Context, collection, crawlID string) error {
	req := model.IndexCrawlRequest{
		CollectionBaseRequest: c.collectionRequest(collection),
		CrawlID:               crawlID,
	}
	return c.postJSON(ctx, "/docs/index_crawl", req, nil, true)
}

// CreateIngestion starts ingesting an external source into a collection.
// spec is a ConfluenceSpec, GDriveSpec or NotionSpec matching typ.
func (c *Client) CreateIngestion(ctx context.Context, collection string, typ model.IngestionType, spec any) (string, error) {
	req := model.CreateIngestionRequest{
		CollectionBaseRequest: c.collectionRequest(collection),
		Type:                  typ,
		Spec:                  spec,
	}
	var resp model.CreateIngestionResponse
	if err := c.postJSON(ctx, "/docs/create_ingestion", req, &resp, true); err != nil {
		return "", err
	}
	return resp.IngestionID, nil
}

// GetIngestion returns the status of an ingestion.
func (c *Client) GetIngestion(ctx context.Context, collection, ingestionID string) (model.IngestionStatus, error) {
	req := model.GetIngestionRequest{
		CollectionBaseRequest: c.collectionRequest(collection),
		IngestionID:           ingestionID,
	}
	var resp model.GetIngestionResponse
	if err := c.postJSON(ctx, "/docs/get_ingestion", req, &resp, true); err != nil {
		return 0, err
	}
	return resp.IngestionStatus, nil
}

// IndexIngestion indexes the content of a finished ingestion.
func (c *Client) IndexIngestion(ctx context.Context, collection, ingestionID string) error {
	req := model.IndexIngestionRequest{
		CollectionBaseRequest: c.collectionRequest(collection),
		IngestionID:           ingestionID,
	}
	return c.postJSON(ctx, "/docs/index_ingestion", req, nil, true)
}

// UpdatePeriodicIngestion sets the periodic ingestion of one source type
// for a collection. The ingestion spec must carry a Schedule.
func (c *Client) UpdatePeriodicIngestion(ctx context.Context, collection string, typ model.IngestionType, spec any) error {
	req := model.UpdatePeriodicIngestionRequest{
		CollectionBaseRequest: c.collectionRequest(collection),
		Type:                  typ,
		Spec:                  spec,
	}
	return c.postJSON(ctx, "/docs/update_periodic_ingestion", req, nil, true)
}

// DeletePeriodicIngestion stops the periodic ingestion of one source type.
func (c *Client) DeletePeriodicIngestion(ctx context.Context, collection string, typ model.IngestionType) error {
	req := model.DeletePeriodicIngestionRequest{
		CollectionBaseRequest: c.collectionRequest(collection),
		Type:                  typ,
	}
	return c.postJSON(ctx, "/docs/delete_periodic_ingestion", req, nil, true)
}

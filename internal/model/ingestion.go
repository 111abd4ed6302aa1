package model

// IngestionType is the kind of external source to ingest.
type IngestionType string

const (
	IngestionConfluence IngestionType = "CONFLUENCE"
	IngestionGDrive     IngestionType = "GDRIVE"
	IngestionNotion     IngestionType = "NOTION"
)

// IngestionStatus shares the crawl status values.
type IngestionStatus = CrawlStatus

// ScheduleSpec makes an ingestion periodic.
type ScheduleSpec struct {
	CronExpr string `json:"cron_expr"`
	Timezone string `json:"timezone"`
}

// IngestionSpec holds fields common to every source. If Token is empty the
// existing connector is used.
type IngestionSpec struct {
	Token    string        `json:"token,omitempty"`
	Schedule *ScheduleSpec `json:"schedule,omitempty"`
}

// ConfluenceSpec ingests a Confluence space. Username is only needed when
// Confluence is not connected via OAuth.
type ConfluenceSpec struct {
	IngestionSpec
	URL      string `json:"url"`
	Space    string `json:"space"`
	Username string `json:"username,omitempty"`
	CQL      string `json:"cql,omitempty"`
}

// GDriveSpec ingests a Google Drive folder.
type GDriveSpec struct {
	IngestionSpec
	FolderName string `json:"folder_name,omitempty"`
}

// NotionSpec ingests Notion pages.
type NotionSpec struct {
	IngestionSpec
	PageIDs []string `json:"page_ids,omitempty"`
}

// CreateIngestionRequest starts an ingestion.
type CreateIngestionRequest struct {
	CollectionBaseRequest
	ConnectorID string        `json:"connector_id,omitempty"`
	Type        IngestionType `json:"type"`
	Spec        any           `json:"spec"`
}

// UpdatePeriodicIngestionRequest sets or replaces the periodic ingestion of
// a collection for one source type.
type UpdatePeriodicIngestionRequest struct {
	CollectionBaseRequest
	Type IngestionType `json:"type"`
	Spec any           `json:"spec"`
}

// CreateIngestionResponse identifies the started ingestion.
type CreateIngestionResponse struct {
	IngestionID string `json:"ingestion_id"`
}

// GetIngestionRequest fetches the state of an ingestion.
type GetIngestionRequest struct {
	CollectionBaseRequest
	IngestionID string `json:"ingestion_id"`
}

// GetIngestionResponse is the state of an ingestion.
type GetIngestionResponse struct {
	IngestionID     string          `json:"ingestion_id"`
	IngestionStatus IngestionStatus `json:"ingestion_status"`
}

// IndexIngestionRequest indexes the ingested content.
type IndexIngestionRequest struct {
	CollectionBaseRequest
	IngestionID string `json:"ingestion_id"`
}

// DeletePeriodicIngestionRequest stops the periodic ingestion of a collection
// for one source type.
type DeletePeriodicIngestionRequest struct {
	CollectionBaseRequest
	Type IngestionType `json:"type"`
}

package model

import (
	"encoding/json"
)

// AddDocRequest accompanies a document upload.
type AddDocRequest struct {
	CollectionBaseRequest
}

// DeleteDocRequest deletes a document.
type DeleteDocRequest struct {
	CollectionBaseRequest
	DocName string `json:"doc_name"`
}

// ListDocsRequest lists the documents of a collection.
type ListDocsRequest struct {
	CollectionBaseRequest
}

// ListDocsResponse is the response for listing documents.
type ListDocsResponse struct {
	DocNames []string `json:"doc_names"`
}

// SummaryRequest asks for a document summary.
type SummaryRequest struct {
	CollectionBaseRequest
	DocName string `json:"doc_name"`
}

// SummaryResponse carries a document summary.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// AskRequest asks a question against a collection.
type AskRequest struct {
	CollectionBaseRequest
	Question        string      `json:"question"`
	TopK            int         `json:"top_k,omitempty"`
	DocName         string      `json:"doc_name,omitempty"`
	HistoryMessages [][2]string `json:"history_messages,omitempty"`
	ConversationID  string      `json:"conversation_id,omitempty"`
}

// AnswerReference points at a document passage used for an answer.
type AnswerReference struct {
	DocName    string `json:"doc_name" yaml:"doc_name"`
	PageNum    int    `json:"page_num" yaml:"page_num"`
	SampleText string `json:"sample_text" yaml:"sample_text"`
}

// SearchReference is a search hit. It has the same shape as AnswerReference.
type SearchReference = AnswerReference

// AskResponse is the answer to an AskRequest.
type AskResponse struct {
	Answer         string            `json:"answer" yaml:"answer"`
	Refs           []AnswerReference `json:"refs" yaml:"refs"`
	ConversationID string            `json:"conversation_id,omitempty" yaml:"conversation_id,omitempty"`
	RequestID      string            `json:"request_id,omitempty" yaml:"request_id,omitempty"`
}

// AskApplicationRequest routes an AskRequest to an application. AppRequest is
// the JSON encoding of the AskRequest without namespace and collection.
type AskApplicationRequest struct {
	ApplicationName string `json:"application_name"`
	AppRequest      string `json:"app_request"`
}

// NewAskApplicationRequest embeds req for the named application.
func NewAskApplicationRequest(application string, req *AskRequest) (*AskApplicationRequest, error) {
	inner := *req
	inner.CollectionBaseRequest = CollectionBaseRequest{}
	data, err := json.Marshal(&inner)
	if err != nil {
		return nil, err
	}
	return &AskApplicationRequest{
		ApplicationName: application,
		AppRequest:      string(data),
	}, nil
}

// SearchRequest searches a collection.
type SearchRequest struct {
	CollectionBaseRequest
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// SearchResponse carries search hits.
type SearchResponse struct {
	Refs []SearchReference `json:"refs"`
}

// CrawlStatus is the state of a crawl or an ingestion.
type CrawlStatus int

const (
	CrawlStatusRunning   CrawlStatus = 1
	CrawlStatusSucceeded CrawlStatus = 2
	CrawlStatusFailed    CrawlStatus = 3
)

func (s CrawlStatus) String() string {
	switch s {
	case CrawlStatusRunning:
		return "RUNNING"
	case CrawlStatusSucceeded:
		return "SUCCEEDED"
	case CrawlStatusFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Done reports whether the crawl reached a terminal state.
func (s CrawlStatus) Done() bool {
	return s == CrawlStatusSucceeded || s == CrawlStatusFailed
}

// CreateCrawlRequest starts crawling a website.
type CreateCrawlRequest struct {
	CollectionBaseRequest
	RootURL        string `json:"root_url"`
	MaxURLsToCrawl int    `json:"max_urls_to_crawl"`
}

// CreateCrawlResponse identifies the started crawl.
type CreateCrawlResponse struct {
	CrawlID string `json:"crawl_id"`
}

// GetCrawlRequest fetches the state of a crawl.
type GetCrawlRequest struct {
	CollectionBaseRequest
	CrawlID string `json:"crawl_id"`
}

// PageStats describes a crawled page.
type PageStats struct {
	CharCount int    `json:"char_count"`
	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`
}

// GetCrawlResponse is the state of a crawl.
type GetCrawlResponse struct {
	RootURL     string               `json:"root_url"`
	CreatedOn   int64                `json:"created_on"`
	MaxPages    int                  `json:"max_pages"`
	CrawlStatus CrawlStatus          `json:"crawl_status"`
	CrawlResult map[string]PageStats `json:"crawl_result,omitempty"`
}

// IndexCrawlRequest indexes the pages of a finished crawl.
type IndexCrawlRequest struct {
	CollectionBaseRequest
	CrawlID string `json:"crawl_id"`
}

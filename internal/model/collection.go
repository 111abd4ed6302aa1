package model

// CollectionBaseRequest addresses a collection, or an application when
// ApplicationName is set.
type CollectionBaseRequest struct {
	NamespaceName   string `json:"namespace_name,omitempty"`
	CollectionName  string `json:"collection_name,omitempty"`
	ApplicationName string `json:"application_name,omitempty"`
}

// Collection stores a list of documents and supports chatting with them.
type Collection struct {
	Name           string `json:"name" yaml:"name"`
	Description    string `json:"description" yaml:"description"`
	PublicReadable bool   `json:"public_readable" yaml:"public_readable"`
}

// CreateCollectionRequest is the request to create a collection.
type CreateCollectionRequest struct {
	CollectionBaseRequest
	Description string `json:"description,omitempty"`

	// PublicRead creates a collection that can be read without an API key.
	PublicRead *bool `json:"public_read,omitempty"`
}

// ConfigureCollectionRequest updates collection settings. Nil fields are left
// unchanged.
type ConfigureCollectionRequest struct {
	CollectionBaseRequest
	Description *string `json:"description,omitempty"`
	PublicRead  *bool   `json:"public_read,omitempty"`
}

// DeleteCollectionRequest deletes a collection.
type DeleteCollectionRequest struct {
	CollectionBaseRequest
}

// ListCollectionsRequest lists the collections of a namespace.
type ListCollectionsRequest struct {
	NamespaceName string `json:"namespace_name"`
}

// ListCollectionsResponse is the response for listing collections.
type ListCollectionsResponse struct {
	Names []string `json:"names"`
}

// DescribeCollectionRequest describes a collection.
type DescribeCollectionRequest struct {
	CollectionBaseRequest
}

// ChatAttributes configures the chatbot of a collection.
type ChatAttributes struct {
	// Persona sets the chatbot personality, e.g. "a helpful AI assistant".
	Persona *string `json:"persona,omitempty" yaml:"persona,omitempty"`

	// NegativeResponse is said when no relevant result is found.
	NegativeResponse *string `json:"negative_response,omitempty" yaml:"negative_response,omitempty"`

	WelcomeMsg *string `json:"welcome_msg,omitempty" yaml:"welcome_msg,omitempty"`

	// Temperature must be within [0, 1].
	Temperature         *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP                *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	PresencePenalty     *float64 `json:"presence_penalty,omitempty" yaml:"presence_penalty,omitempty"`
	FrequencyPenalty    *float64 `json:"frequency_penalty,omitempty" yaml:"frequency_penalty,omitempty"`
	MaxCompletionTokens *int     `json:"max_completion_tokens,omitempty" yaml:"max_completion_tokens,omitempty"`
}

// PeriodicIngest is an ingestion that runs periodically for a collection.
type PeriodicIngest struct {
	Type             IngestionType   `json:"type" yaml:"type"`
	Spec             any             `json:"spec" yaml:"spec"`
	LastIngestTime   int64           `json:"last_ingest_time" yaml:"last_ingest_time"`
	LastIngestStatus IngestionStatus `json:"last_ingest_status" yaml:"last_ingest_status"`
}

// DescribeCollectionResponse is the response for describing a collection.
type DescribeCollectionResponse struct {
	Description     *string          `json:"description,omitempty" yaml:"description,omitempty"`
	ChatAttributes  *ChatAttributes  `json:"chat_attributes,omitempty" yaml:"chat_attributes,omitempty"`
	PublicRead      *bool            `json:"public_read,omitempty" yaml:"public_read,omitempty"`
	PeriodicIngests []PeriodicIngest `json:"periodic_ingests,omitempty" yaml:"periodic_ingests,omitempty"`
}

// ToCollection converts a describe response into a Collection.
func (r *DescribeCollectionResponse) ToCollection(name string) Collection {
	col := Collection{Name: name}
	if r.Description != nil {
		col.Description = *r.Description
	}
	if r.PublicRead != nil {
		col.PublicReadable = *r.PublicRead
	}
	return col
}

// ConfigureChatRequest configures the chatbot of a collection.
type ConfigureChatRequest struct {
	CollectionBaseRequest
	ChatAttributes ChatAttributes `json:"chat_attributes"`
}

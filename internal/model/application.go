package model

// ApplicationType is the kind of application target.
type ApplicationType string

const (
	// ApplicationCollection chats with a collection (RAG).
	ApplicationCollection ApplicationType = "COLLECTION"
	// ApplicationGPT talks to a model directly.
	ApplicationGPT ApplicationType = "GPT"
)

// CollectionTarget is the target of a COLLECTION application.
type CollectionTarget struct {
	NamespaceName  string `json:"namespace_name"`
	CollectionName string `json:"collection_name"`
}

// GPTTarget is the target of a GPT application.
type GPTTarget struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Application exposes a collection or a model under a name. Target is the
// JSON encoding of a CollectionTarget or GPTTarget.
type Application struct {
	ApplicationName   string          `json:"application_name" yaml:"application_name"`
	ApplicationType   ApplicationType `json:"application_type" yaml:"application_type"`
	ApplicationTarget string          `json:"application_target" yaml:"application_target"`
}

// CreateApplicationRequest creates an application.
type CreateApplicationRequest struct {
	Application Application `json:"application"`
}

// ListApplicationsResponse is the response for listing applications.
type ListApplicationsResponse struct {
	Applications []Application `json:"applications"`
}

// DeleteApplicationRequest deletes an application.
type DeleteApplicationRequest struct {
	ApplicationName string `json:"application_name"`
}

package model

// CreateAPIKeyRequest creates an API key. Name is optional for the public
// account.
type CreateAPIKeyRequest struct {
	Name string `json:"name,omitempty"`
}

// CreateAPIKeyResponse carries the new key.
type CreateAPIKeyResponse struct {
	APIKey string `json:"api_key"`
}

// DeleteAPIKeyRequest deletes an API key by name.
type DeleteAPIKeyRequest struct {
	Name string `json:"name"`
}

// APIKey is a listed key; the value is masked by the service.
type APIKey struct {
	Name         string `json:"name" yaml:"name"`
	MaskedAPIKey string `json:"masked_api_key" yaml:"masked_api_key"`
}

// ListAPIKeysResponse is the response for listing API keys.
type ListAPIKeysResponse struct {
	APIKeys []APIKey `json:"api_keys"`
}

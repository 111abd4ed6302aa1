package model

// FeedbackSource is where feedback from an unregistered user came from.
type FeedbackSource string

const (
	FeedbackSourceWebsite FeedbackSource = "WEBSITE"
)

// UnregisteredUser is the contact of a user that is not logged in, such as a
// website chatbot visitor.
type UnregisteredUser struct {
	Source FeedbackSource `json:"source"`
	Email  string         `json:"email"`
	Name   string         `json:"name"`
}

// CreateOrUpdateFeedbackRequest gives feedback on an answer or search result.
type CreateOrUpdateFeedbackRequest struct {
	CollectionBaseRequest

	// RequestID is the request id of the ask or search being rated.
	RequestID        string            `json:"request_id"`
	ThumbDown        bool              `json:"thumb_down"`
	TextFeedback     string            `json:"text_feedback"`
	UnregisteredUser *UnregisteredUser `json:"unregistered_user,omitempty"`
}

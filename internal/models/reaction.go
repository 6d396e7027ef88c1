package models

// TargetType represents the kind of content a reaction is attached to.
type TargetType string

const (
	CommentTarget TargetType = "COMMENT"
	PostTarget    TargetType = "POST"
)

// ReactionType represents the kind of reaction being toggled.
type ReactionType string

const (
	ReactionLike ReactionType = "LIKE"
)

// StatusResponse is a generic acknowledgement payload.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

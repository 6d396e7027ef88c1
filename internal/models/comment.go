package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TempIDPrefix marks comment IDs that were assigned locally while a
// submission is still waiting for the server.
const TempIDPrefix = "temp-"

// Author is the denormalized identity snapshot taken at comment-creation
// time. It is never re-fetched for an existing comment.
type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// Comment is the client-visible projection of a forum comment.
// ID holds the server-assigned identifier, or a temp- token while the
// comment is optimistic. A nil ParentID means the comment is a root.
type Comment struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	Author        Author    `json:"author"`
	PostID        string    `json:"postId"`
	ParentID      *string   `json:"parentId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	ReactionCount int       `json:"reactionCount"`
	IsLiked       bool      `json:"isLiked"`
}

// IsRoot reports whether the comment is a top-level comment.
func (c Comment) IsRoot() bool {
	return c.ParentID == nil
}

// IsOptimistic reports whether the comment still carries a temporary id.
func (c Comment) IsOptimistic() bool {
	return IsTempID(c.ID)
}

// NewTempID returns a locally-unique temporary comment id.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was assigned locally by NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// CloneComments returns a deep copy of a comment list. ParentID pointers
// are re-allocated so the copy shares nothing with the original; this is
// what keeps the cache's copy-on-write discipline honest.
func CloneComments(list []Comment) []Comment {
	if list == nil {
		return nil
	}
	out := make([]Comment, len(list))
	copy(out, list)
	for i := range out {
		if out[i].ParentID != nil {
			parent := *out[i].ParentID
			out[i].ParentID = &parent
		}
	}
	return out
}

// FindComment returns the index of the comment with the given id, or -1.
func FindComment(list []Comment, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

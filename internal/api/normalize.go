package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"campus-forum/internal/models"
)

// The backend's comment payloads are not uniform: older endpoints return a
// flat authorName/avatarUrl pair while newer ones nest an author object
// with fullName, and timestamps sometimes arrive without a timezone
// suffix. Everything is folded into one canonical models.Comment here so
// the reconciler never branches on alias presence.

type authorDTO struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	FullName    string `json:"fullName"`
	AvatarURL   string `json:"avatarUrl"`
}

type commentDTO struct {
	ID       string  `json:"id"`
	Content  string  `json:"content"`
	PostID   string  `json:"postId"`
	ParentID *string `json:"parentId,omitempty"`

	Author     *authorDTO `json:"author,omitempty"`
	AuthorID   string     `json:"authorId,omitempty"`
	AuthorName string     `json:"authorName,omitempty"`
	AvatarURL  string     `json:"avatarUrl,omitempty"`

	CreatedAt string `json:"createdAt"`

	ReactionCount flexCount `json:"reactionCount"`
	IsLiked       bool      `json:"isLiked"`
}

// flexCount absorbs reaction counts that arrive as either a JSON number
// or a quoted string, another payload inconsistency across endpoints.
type flexCount int

func (c *flexCount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("reaction count %q is not a number", s)
	}
	*c = flexCount(n)
	return nil
}

func normalizeComment(dto commentDTO) (models.Comment, error) {
	if dto.ID == "" {
		return models.Comment{}, fmt.Errorf("comment payload missing id")
	}

	createdAt, err := parseServerTime(dto.CreatedAt)
	if err != nil {
		return models.Comment{}, fmt.Errorf("comment %s has unparseable createdAt %q: %w", dto.ID, dto.CreatedAt, err)
	}

	// Empty-string parent ids show up on some endpoints; treat them as root.
	parentID := dto.ParentID
	if parentID != nil && *parentID == "" {
		parentID = nil
	}

	return models.Comment{
		ID:            dto.ID,
		Content:       dto.Content,
		Author:        normalizeAuthor(dto),
		PostID:        dto.PostID,
		ParentID:      parentID,
		CreatedAt:     createdAt,
		ReactionCount: int(dto.ReactionCount),
		IsLiked:       dto.IsLiked,
	}, nil
}

func normalizeAuthor(dto commentDTO) models.Author {
	author := models.Author{
		ID:          dto.AuthorID,
		DisplayName: dto.AuthorName,
		AvatarURL:   dto.AvatarURL,
	}

	if dto.Author != nil {
		if dto.Author.ID != "" {
			author.ID = dto.Author.ID
		}
		if dto.Author.DisplayName != "" {
			author.DisplayName = dto.Author.DisplayName
		} else if dto.Author.FullName != "" {
			author.DisplayName = dto.Author.FullName
		}
		if dto.Author.AvatarURL != "" {
			author.AvatarURL = dto.Author.AvatarURL
		}
	}

	return author
}

// parseServerTime parses a backend timestamp. The server sometimes omits
// the timezone suffix; those values are UTC and get a "Z" appended before
// parsing.
func parseServerTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if !hasZoneSuffix(value) {
		value += "Z"
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func hasZoneSuffix(value string) bool {
	if strings.HasSuffix(value, "Z") {
		return true
	}
	// An offset like +05:30 or -08:00 trails the seconds field; a bare
	// date-time has no '+' and its only '-' characters are in the date.
	if idx := strings.IndexByte(value, 'T'); idx >= 0 {
		rest := value[idx:]
		return strings.ContainsAny(rest, "+-")
	}
	return false
}

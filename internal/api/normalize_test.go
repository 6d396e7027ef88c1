package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCommentAuthorAliases(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		wantID      string
		wantName    string
		wantAvatar  string
	}{
		{
			name:       "nested author with displayName",
			payload:    `{"id":"1","postId":"p","createdAt":"2025-03-01T10:00:00Z","author":{"id":"u1","displayName":"Alice","avatarUrl":"a.png"}}`,
			wantID:     "u1",
			wantName:   "Alice",
			wantAvatar: "a.png",
		},
		{
			name:     "nested author with fullName fallback",
			payload:  `{"id":"1","postId":"p","createdAt":"2025-03-01T10:00:00Z","author":{"id":"u1","fullName":"Alice Liddell"}}`,
			wantID:   "u1",
			wantName: "Alice Liddell",
		},
		{
			name:       "flat legacy fields",
			payload:    `{"id":"1","postId":"p","createdAt":"2025-03-01T10:00:00Z","authorId":"u2","authorName":"Bob","avatarUrl":"b.png"}`,
			wantID:     "u2",
			wantName:   "Bob",
			wantAvatar: "b.png",
		},
		{
			name:     "nested author wins over flat fields",
			payload:  `{"id":"1","postId":"p","createdAt":"2025-03-01T10:00:00Z","authorName":"Old","author":{"id":"u1","displayName":"New"}}`,
			wantID:   "u1",
			wantName: "New",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dto commentDTO
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &dto))

			comment, err := normalizeComment(dto)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, comment.Author.ID)
			assert.Equal(t, tt.wantName, comment.Author.DisplayName)
			assert.Equal(t, tt.wantAvatar, comment.Author.AvatarURL)
		})
	}
}

func TestParseServerTime(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{"with zulu suffix", "2025-03-01T10:30:00Z", time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"missing suffix assumed UTC", "2025-03-01T10:30:00", time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"fractional seconds without suffix", "2025-03-01T10:30:00.250", time.Date(2025, 3, 1, 10, 30, 0, 250_000_000, time.UTC)},
		{"explicit offset normalized to UTC", "2025-03-01T10:30:00+02:00", time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseServerTime(tt.value)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}

	_, err := parseServerTime("")
	assert.Error(t, err)

	_, err = parseServerTime("yesterday")
	assert.Error(t, err)
}

func TestNormalizeCommentReactionCountAliases(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{"numeric count", `{"id":"1","postId":"p","createdAt":"2025-03-01T10:00:00Z","reactionCount":7}`, 7},
		{"quoted count", `{"id":"1","postId":"p","createdAt":"2025-03-01T10:00:00Z","reactionCount":"12"}`, 12},
		{"absent count", `{"id":"1","postId":"p","createdAt":"2025-03-01T10:00:00Z"}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dto commentDTO
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &dto))

			comment, err := normalizeComment(dto)
			require.NoError(t, err)
			assert.Equal(t, tt.want, comment.ReactionCount)
		})
	}
}

func TestNormalizeCommentEmptyParentIsRoot(t *testing.T) {
	var dto commentDTO
	require.NoError(t, json.Unmarshal(
		[]byte(`{"id":"1","postId":"p","createdAt":"2025-03-01T10:00:00Z","parentId":""}`), &dto))

	comment, err := normalizeComment(dto)
	require.NoError(t, err)
	assert.Nil(t, comment.ParentID)
}

func TestNormalizeCommentRejectsMissingID(t *testing.T) {
	_, err := normalizeComment(commentDTO{CreatedAt: "2025-03-01T10:00:00Z"})
	assert.Error(t, err)
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"campus-forum/internal/config"
	"campus-forum/internal/models"
	"campus-forum/internal/session"
	"campus-forum/internal/utils"
)

// CreateCommentRequest represents a request to create a new comment
type CreateCommentRequest struct {
	PostID   string `json:"postId"`
	Content  string `json:"content"`
	ParentID string `json:"parentId,omitempty"` // Optional, for replies
}

// ToggleReactionRequest represents a request to toggle a reaction
type ToggleReactionRequest struct {
	TargetID     string `json:"targetId"`
	TargetType   string `json:"targetType"`
	ReactionType string `json:"reactionType"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login payload
type LoginResponse struct {
	Token string `json:"token"`
}

// Client is the typed HTTP wrapper over the forum backend REST endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
	metrics *utils.MetricsCollector
}

func NewClient(cfg *config.APIConfig, sess *session.Session, metrics *utils.MetricsCollector) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		session: sess,
		metrics: metrics,
	}
}

// CreateComment creates a comment or reply. parentID is forwarded exactly
// as the caller supplied it; any display re-parenting stays on the client.
func (c *Client) CreateComment(ctx context.Context, postID, content string, parentID *string) (models.Comment, error) {
	req := CreateCommentRequest{
		PostID:  postID,
		Content: content,
	}
	if parentID != nil {
		req.ParentID = *parentID
	}

	body, err := c.do(ctx, http.MethodPost, "/comments", req)
	if err != nil {
		return models.Comment{}, err
	}

	var dto commentDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return models.Comment{}, utils.NewNetworkError("failed to parse comment response", err)
	}
	return normalizeComment(dto)
}

// GetComments returns the authoritative comment list for a post.
func (c *Client) GetComments(ctx context.Context, postID string) ([]models.Comment, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/posts/%s/comments", postID), nil)
	if err != nil {
		return nil, err
	}

	var dtos []commentDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, utils.NewNetworkError("failed to parse comment list response", err)
	}

	comments := make([]models.Comment, 0, len(dtos))
	for _, dto := range dtos {
		comment, err := normalizeComment(dto)
		if err != nil {
			log.Printf("Skipping malformed comment %q for post %s: %v", dto.ID, postID, err)
			continue
		}
		comments = append(comments, comment)
	}
	return comments, nil
}

// ToggleReaction flips the caller's reaction on a target. Idempotent per
// logical toggle on the server side.
func (c *Client) ToggleReaction(ctx context.Context, targetID string, target models.TargetType, reaction models.ReactionType) error {
	req := ToggleReactionRequest{
		TargetID:     targetID,
		TargetType:   string(target),
		ReactionType: string(reaction),
	}

	_, err := c.do(ctx, http.MethodPost, "/reactions/toggle", req)
	return err
}

// Login exchanges credentials for a bearer token and activates the session.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/auth/login", LoginRequest{Email: email, Password: password})
	if err != nil {
		return "", err
	}

	var resp LoginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", utils.NewNetworkError("failed to parse login response", err)
	}
	if resp.Token == "" {
		return "", utils.NewAppError(utils.ErrInvalidToken, "login response carried no token", nil)
	}

	if err := c.session.SetToken(resp.Token); err != nil {
		return "", utils.NewAppError(utils.ErrInvalidToken, "backend issued an unusable token", err)
	}
	return resp.Token, nil
}

// Helper method to make HTTP requests
func (c *Client) do(ctx context.Context, method, endpoint string, data interface{}) ([]byte, error) {
	var body []byte
	var err error

	if data != nil {
		body, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	c.recordRequestMetrics(method+" "+endpoint, start, err)

	if err != nil {
		return nil, utils.NewNetworkError("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.metrics.IncrementErrors()
		return nil, utils.HTTPStatusToAppError(resp.StatusCode,
			fmt.Sprintf("%s %s failed with status %d", method, endpoint, resp.StatusCode))
	}

	return io.ReadAll(resp.Body)
}

func (c *Client) recordRequestMetrics(operation string, start time.Time, err error) {
	c.metrics.IncrementRequests()
	c.metrics.AddOperationLatency(operation, time.Since(start))
	if err != nil {
		c.metrics.IncrementErrors()
	}
}

package httpapi

import (
	"context"
	"fmt"

	"github.com/prim5v/studyhub-frontend/internal/protocol"
)

// SearchResults groups search hits by entity type
type SearchResults struct {
	Users     []*protocol.StudentSuggestion `json:"users"`
	Resources []*protocol.ResourceData      `json:"resources"`
	Groups    []*protocol.ConversationData  `json:"groups"`
}

// Search categories for SearchCategory
const (
	SearchUsers     = "users"
	SearchResources = "resources"
	SearchGroups    = "groups"
)

// MembershipResult is the is-member check response
type MembershipResult struct {
	IsMember bool `json:"is_member"`
}

// UploadCredential is the one-shot signature for a direct asset upload.
// The asset goes to storage first; the resource record follows over the
// channel with the resulting URL.
type UploadCredential struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	APIKey    string `json:"api_key"`
	CloudName string `json:"cloud_name"`
}

// PublicMessages fetches the public chat room's initial history
func (c *Client) PublicMessages(ctx context.Context) ([]*protocol.MessageData, error) {
	var msgs []*protocol.MessageData
	if err := c.get(ctx, "/api/public-messages", nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Search runs a cross-entity search
func (c *Client) Search(ctx context.Context, query string) (*SearchResults, error) {
	var out SearchResults
	if err := c.get(ctx, "/api/search", map[string]string{"q": query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchCategory runs a search restricted to one entity type
func (c *Client) SearchCategory(ctx context.Context, category, query string) (*SearchResults, error) {
	var out SearchResults
	path := fmt.Sprintf("/api/search/%s", category)
	if err := c.get(ctx, path, map[string]string{"q": query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IsMember checks whether a user belongs to a group
func (c *Client) IsMember(ctx context.Context, groupId string, userId int64) (bool, error) {
	body := map[string]interface{}{
		"group_id": groupId,
		"user_id":  userId,
	}
	var out MembershipResult
	if err := c.post(ctx, "/api/is-member", body, &out); err != nil {
		return false, err
	}
	return out.IsMember, nil
}

// UploadSignature requests an upload credential for a direct asset upload
func (c *Client) UploadSignature(ctx context.Context) (*UploadCredential, error) {
	var out UploadCredential
	if err := c.get(ctx, "/get-signature", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

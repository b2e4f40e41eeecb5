package githubclt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/go-github/v59/github"

	"github.com/focus-spec/boardrelay/internal/logfields"
)

// DispatchPayload is the client payload of a repository_dispatch event
// describing a project field change.
type DispatchPayload struct {
	ContentNodeID string `json:"content_node_id"`
	FieldName     string `json:"field_name"`
	OldValue      string `json:"old_value"`
	NewValue      string `json:"new_value"`
	ChangedBy     string `json:"changed_by"`
	// ActionType is "cleared" or "updated".
	ActionType string `json:"action_type"`
}

// Dispatch triggers a repository_dispatch event in the given repository.
func (clt *Client) Dispatch(ctx context.Context, owner, repo, eventType string, payload *DispatchPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling client payload failed: %w", err)
	}

	rawMsg := json.RawMessage(raw)

	_, _, err = clt.restClt.Repositories.Dispatch(ctx, owner, repo, github.DispatchRequestOptions{
		EventType:     eventType,
		ClientPayload: &rawMsg,
	})
	if err != nil {
		return fmt.Errorf("creating repository_dispatch event failed: %w", err)
	}

	clt.logger.Debug(
		"repository_dispatch event created",
		logfields.Event("github_dispatch_event_created"),
		logfields.Repository(fmt.Sprintf("%s/%s", owner, repo)),
		logfields.FieldName(payload.FieldName),
	)

	return nil
}

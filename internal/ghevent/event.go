// Package ghevent decodes GitHub "Projects v2 item" webhook payloads.
//
// The payloads are decoded with custom types instead of the go-github event
// structs because changes.field_value is not modelled there and because
// cleared-detection requires distinguishing an absent "to" key from an
// explicit null, which only json.RawMessage preserves.
package ghevent

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/focus-spec/boardrelay/internal/logfields"
)

// UnknownField is reported as field name when the webhook payload does not
// contain a field name.
const UnknownField = "Unknown Field"

// UnknownUser is reported as sender login when the webhook payload does not
// contain one.
const UnknownUser = "Unknown User"

// Event is a decoded "projects_v2_item" webhook payload.
type Event struct {
	Action       string `json:"action"`
	Organization struct {
		Login string `json:"login"`
	} `json:"organization"`
	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
	ProjectsV2Item struct {
		ContentNodeID string `json:"content_node_id"`
		ProjectNodeID string `json:"project_node_id"`
		Content       struct {
			NodeID string `json:"node_id"`
		} `json:"content"`
	} `json:"projects_v2_item"`
	Changes struct {
		FieldValue FieldValue `json:"field_value"`
	} `json:"changes"`

	// JSON is the raw payload the event was decoded from.
	JSON []byte `json:"-"`
	// DeliveryID is the unique github ID of the webhook delivery.
	DeliveryID string `json:"-"`
}

// FieldValue is the change record of a single project field.
// From and To are kept raw, their wire representation varies between
// strings, numbers, objects and null depending on the field type.
type FieldValue struct {
	FieldName string          `json:"field_name"`
	From      json.RawMessage `json:"from"`
	To        json.RawMessage `json:"to"`
}

// Parse decodes a webhook payload.
func Parse(payload []byte) (*Event, error) {
	var ev Event

	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("unmarshaling webhook payload failed: %w", err)
	}

	ev.JSON = payload

	return &ev, nil
}

// ContentNodeID returns the node id of the issue or pull request that the
// edited project item wraps.
// It prefers projects_v2_item.content_node_id and falls back to
// projects_v2_item.content.node_id.
// An empty string is returned when neither is set.
func (e *Event) ContentNodeID() string {
	if id := e.ProjectsV2Item.ContentNodeID; id != "" {
		return id
	}

	return e.ProjectsV2Item.Content.NodeID
}

// SenderLogin returns the login of the user that triggered the event or
// UnknownUser when it is missing.
func (e *Event) SenderLogin() string {
	if e.Sender.Login == "" {
		return UnknownUser
	}

	return e.Sender.Login
}

// FieldChange derives the canonical view of the field change.
func (e *Event) FieldChange() *FieldChange {
	fv := e.Changes.FieldValue

	name := fv.FieldName
	if name == "" {
		name = UnknownField
	}

	return &FieldChange{
		FieldName: name,
		OldValue:  Normalize(fv.From),
		NewValue:  Normalize(fv.To),
		Cleared:   isCleared(fv.To),
	}
}

func (e *Event) String() string {
	return fmt.Sprintf("projects_v2_item/%s (deliveryID: %s)", e.Action, e.DeliveryID)
}

// LogFields returns fields that should be used when logging messages related
// to the event.
func (e *Event) LogFields() []zap.Field {
	fields := make([]zap.Field, 0, 5)

	if e.DeliveryID != "" {
		fields = append(fields, logfields.DeliveryID(e.DeliveryID))
	}

	fields = append(fields, zap.String("github.action", e.Action))

	if e.Organization.Login != "" {
		fields = append(fields, logfields.Organization(e.Organization.Login))
	}

	if e.Sender.Login != "" {
		fields = append(fields, logfields.Sender(e.Sender.Login))
	}

	if name := e.Changes.FieldValue.FieldName; name != "" {
		fields = append(fields, logfields.FieldName(name))
	}

	return fields
}

package boardrelay

import (
	"testing"

	"github.com/itchyny/gojq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focus-spec/boardrelay/internal/ghevent"
)

func guardEvent(t *testing.T, payload string) (*ghevent.Event, *ghevent.FieldChange) {
	t.Helper()

	ev, err := ghevent.Parse([]byte(payload))
	require.NoError(t, err)

	return ev, ev.FieldChange()
}

func TestOrganizationGuard(t *testing.T) {
	g := organizationGuard("acme")

	ev, change := guardEvent(t, `{"action": "edited", "organization": {"login": "acme"}}`)
	dec, err := g(ev, change)
	require.NoError(t, err)
	assert.True(t, dec.proceed)

	ev, change = guardEvent(t, `{"action": "edited", "organization": {"login": "intruder"}}`)
	dec, err = g(ev, change)
	require.NoError(t, err)
	assert.False(t, dec.proceed)
	assert.Contains(t, dec.reason, "intruder")
	assert.Contains(t, dec.reason, "acme")
}

func TestActionGuard(t *testing.T) {
	g := actionGuard()

	ev, change := guardEvent(t, `{"action": "edited"}`)
	dec, err := g(ev, change)
	require.NoError(t, err)
	assert.True(t, dec.proceed)

	ev, change = guardEvent(t, `{"action": "created"}`)
	dec, err = g(ev, change)
	require.NoError(t, err)
	assert.False(t, dec.proceed)
	assert.Contains(t, dec.reason, "created")
}

func TestContentGuard(t *testing.T) {
	g := contentGuard()

	ev, change := guardEvent(t, `{"action": "edited", "projects_v2_item": {"content_node_id": "PR_1"}}`)
	dec, err := g(ev, change)
	require.NoError(t, err)
	assert.True(t, dec.proceed)

	// the nested content node id is a valid fallback
	ev, change = guardEvent(t, `{"action": "edited", "projects_v2_item": {"content": {"node_id": "I_1"}}}`)
	dec, err = g(ev, change)
	require.NoError(t, err)
	assert.True(t, dec.proceed)

	ev, change = guardEvent(t, `{"action": "edited", "projects_v2_item": {}}`)
	dec, err = g(ev, change)
	require.NoError(t, err)
	assert.False(t, dec.proceed)
}

func TestFieldAllowGuard(t *testing.T) {
	g := fieldAllowGuard("Status")

	ev, change := guardEvent(t, `{"changes": {"field_value": {"field_name": "Status", "to": {"name": "Done"}}}}`)
	dec, err := g(ev, change)
	require.NoError(t, err)
	assert.True(t, dec.proceed)

	ev, change = guardEvent(t, `{"changes": {"field_value": {"field_name": "Priority", "to": "High"}}}`)
	dec, err = g(ev, change)
	require.NoError(t, err)
	assert.False(t, dec.proceed)
	assert.Contains(t, dec.reason, "Priority")
	assert.Contains(t, dec.reason, "Status")
}

func TestFieldDenyGuard(t *testing.T) {
	g := fieldDenyGuard([]string{"Status", "Title", "Assignees"})

	ev, change := guardEvent(t, `{"changes": {"field_value": {"field_name": "Priority", "to": "High"}}}`)
	dec, err := g(ev, change)
	require.NoError(t, err)
	assert.True(t, dec.proceed)

	ev, change = guardEvent(t, `{"changes": {"field_value": {"field_name": "Assignees", "to": "bob"}}}`)
	dec, err = g(ev, change)
	require.NoError(t, err)
	assert.False(t, dec.proceed)
	assert.Equal(t, "Ignored: Assignees field excluded", dec.reason)
}

func TestValueGuard(t *testing.T) {
	g := valueGuard([]string{"PR Member Review", "PR TF Review"})

	ev, change := guardEvent(t, `{"changes": {"field_value": {"field_name": "Status", "to": {"name": "PR TF Review"}}}}`)
	dec, err := g(ev, change)
	require.NoError(t, err)
	assert.True(t, dec.proceed)

	ev, change = guardEvent(t, `{"changes": {"field_value": {"field_name": "Status", "to": {"name": "Done"}}}}`)
	dec, err = g(ev, change)
	require.NoError(t, err)
	assert.False(t, dec.proceed)
	assert.Equal(t, "Ignored: Field Status changed to Done", dec.reason)
}

func TestFilterQueryGuard(t *testing.T) {
	query, err := gojq.Parse(`.sender.login != "bot"`)
	require.NoError(t, err)

	g := filterQueryGuard(query, `.sender.login != "bot"`)

	ev, change := guardEvent(t, `{"action": "edited", "sender": {"login": "alice"}}`)
	dec, err := g(ev, change)
	require.NoError(t, err)
	assert.True(t, dec.proceed)

	ev, change = guardEvent(t, `{"action": "edited", "sender": {"login": "bot"}}`)
	dec, err = g(ev, change)
	require.NoError(t, err)
	assert.False(t, dec.proceed)
}

func TestFilterQueryGuardNonBoolResult(t *testing.T) {
	query, err := gojq.Parse(`.sender.login`)
	require.NoError(t, err)

	g := filterQueryGuard(query, `.sender.login`)

	ev, change := guardEvent(t, `{"action": "edited", "sender": {"login": "alice"}}`)
	_, err = g(ev, change)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-bool")
}

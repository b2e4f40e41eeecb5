package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/focus-spec/boardrelay/internal/boardrelay"
	"github.com/focus-spec/boardrelay/internal/cfg"
	"github.com/focus-spec/boardrelay/internal/githubclt"
	"github.com/focus-spec/boardrelay/internal/slackclt"
)

const webhookSecret = "hook-secret"

const memberReviewPayload = `{
  "action": "edited",
  "organization": {"login": "acme"},
  "sender": {"login": "bob"},
  "projects_v2_item": {
    "content_node_id": "PR_node1",
    "project_node_id": "PVT_node1"
  },
  "changes": {
    "field_value": {
      "field_name": "Status",
      "from": {"name": "In Progress"},
      "to": {"name": "PR Member Review"}
    }
  }
}`

const graphQLResponse = `{
  "data": {
    "content": {
      "number": 42,
      "title": "Add X",
      "url": "https://github.com/acme/specs/pull/42",
      "author": {"login": "alice"}
    },
    "project": {"number": 5, "title": "Roadmap"}
  }
}`

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))

	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newWebhookRequest(body, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/member-review", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "projects_v2_item")
	req.Header.Set("X-GitHub-Delivery", "3355fab0-b22c-11eb-9936-51d9540c0cdc")

	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}

	return req
}

// newMemberReviewRelay wires a real relay pipeline against stub GraphQL and
// Slack servers.
func newMemberReviewRelay(t *testing.T, graphQLBody string) (*boardrelay.Relay, *[]string) {
	t.Helper()

	graphQLSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(graphQLBody))
	}))
	t.Cleanup(graphQLSrv.Close)

	var slackBodies []string

	slackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			t.Errorf("reading slack request body failed: %s", err)
		}

		slackBodies = append(slackBodies, string(body))

		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(slackSrv.Close)

	ghClt, err := githubclt.New("", githubclt.WithGraphQLEndpoint(graphQLSrv.URL))
	require.NoError(t, err)

	relay, err := boardrelay.New(
		&cfg.Relay{
			Name:         "member-review-slack",
			Endpoint:     "/webhooks/member-review",
			Organization: "acme",
			Field:        "Status",
			Values:       []string{"PR Member Review"},
			Project:      5,
			Notifier:     cfg.NotifierSlack,
		},
		ghClt,
		slackclt.New(slackSrv.URL),
		nil,
	)
	require.NoError(t, err)

	return relay, &slackBodies
}

func TestHTTPHandlerEndToEnd(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	relay, slackBodies := newMemberReviewRelay(t, graphQLResponse)

	provider := New(relay, WithPayloadSecret(webhookSecret))

	respRecorder := httptest.NewRecorder()
	provider.HTTPHandler(respRecorder, newWebhookRequest(memberReviewPayload, sign(webhookSecret, memberReviewPayload)))

	require.Equal(t, http.StatusOK, respRecorder.Code)
	assert.Contains(t, respRecorder.Body.String(), "Slack notification sent.")

	require.Len(t, *slackBodies, 1)
	assert.Contains(t, (*slackBodies)[0], "#42")
	assert.Contains(t, (*slackBodies)[0], "alice")
}

func TestHTTPHandlerSignatureMismatch(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	relay, slackBodies := newMemberReviewRelay(t, graphQLResponse)

	provider := New(relay, WithPayloadSecret(webhookSecret))

	// a single altered byte in the delivered body invalidates the digest
	tampered := strings.Replace(memberReviewPayload, "bob", "eve", 1)

	respRecorder := httptest.NewRecorder()
	provider.HTTPHandler(respRecorder, newWebhookRequest(tampered, sign(webhookSecret, memberReviewPayload)))

	assert.Equal(t, http.StatusUnauthorized, respRecorder.Code)
	assert.Empty(t, *slackBodies)
}

func TestHTTPHandlerMissingSignature(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	relay, slackBodies := newMemberReviewRelay(t, graphQLResponse)

	provider := New(relay, WithPayloadSecret(webhookSecret))

	respRecorder := httptest.NewRecorder()
	provider.HTTPHandler(respRecorder, newWebhookRequest(memberReviewPayload, ""))

	assert.Equal(t, http.StatusUnauthorized, respRecorder.Code)
	assert.Empty(t, *slackBodies)
}

func TestHTTPHandlerMissingSecretIsServerError(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	relay, slackBodies := newMemberReviewRelay(t, graphQLResponse)

	// no WithPayloadSecret option, the deployment is misconfigured
	provider := New(relay)

	respRecorder := httptest.NewRecorder()
	provider.HTTPHandler(respRecorder, newWebhookRequest(memberReviewPayload, sign(webhookSecret, memberReviewPayload)))

	assert.Equal(t, http.StatusInternalServerError, respRecorder.Code)
	assert.Empty(t, *slackBodies)
}

func TestHTTPHandlerUnsupportedEventType(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	relay, slackBodies := newMemberReviewRelay(t, graphQLResponse)

	provider := New(relay, WithPayloadSecret(webhookSecret))

	req := newWebhookRequest(memberReviewPayload, sign(webhookSecret, memberReviewPayload))
	req.Header.Set("X-GitHub-Event", "pull_request")

	respRecorder := httptest.NewRecorder()
	provider.HTTPHandler(respRecorder, req)

	assert.Equal(t, http.StatusOK, respRecorder.Code)
	assert.Contains(t, respRecorder.Body.String(), "unsupported event type")
	assert.Empty(t, *slackBodies)
}

func TestHTTPHandlerContentNotFound(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	relay, slackBodies := newMemberReviewRelay(t, `{"data": {"content": null, "project": null}}`)

	provider := New(relay, WithPayloadSecret(webhookSecret))

	respRecorder := httptest.NewRecorder()
	provider.HTTPHandler(respRecorder, newWebhookRequest(memberReviewPayload, sign(webhookSecret, memberReviewPayload)))

	assert.Equal(t, http.StatusNotFound, respRecorder.Code)
	assert.Empty(t, *slackBodies)
}

func TestHTTPHandlerInvalidJSONBody(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	relay, _ := newMemberReviewRelay(t, graphQLResponse)

	provider := New(relay, WithPayloadSecret(webhookSecret))

	body := `{"action": `

	respRecorder := httptest.NewRecorder()
	provider.HTTPHandler(respRecorder, newWebhookRequest(body, sign(webhookSecret, body)))

	assert.Equal(t, http.StatusBadRequest, respRecorder.Code)
}

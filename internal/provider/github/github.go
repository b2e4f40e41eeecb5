// Package github receives github webhook http-requests, validates their
// signature and runs them through a relay pipeline.
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/go-github/v59/github"
	"go.uber.org/zap"

	"github.com/focus-spec/boardrelay/internal/boardrelay"
	"github.com/focus-spec/boardrelay/internal/ghevent"
	"github.com/focus-spec/boardrelay/internal/logfields"
)

const loggerName = "github-event-provider"

// projectsV2ItemHook is the webhook type carrying project field changes.
const projectsV2ItemHook = "projects_v2_item"

const sha256SignatureHeader = "X-Hub-Signature-256"

// Pipeline processes a validated webhook event and returns the terminal
// result that the http response is derived from.
type Pipeline interface {
	Name() string
	Process(ctx context.Context, ev *ghevent.Event) *boardrelay.Result
}

// Provider listens for github-webhook http-requests at a http-server
// handler, validates them and runs them synchronously through a relay
// pipeline. The response status reflects the pipeline outcome.
type Provider struct {
	logging       *zap.Logger
	webhookSecret []byte
	pipeline      Pipeline
}

type option func(*Provider)

func WithPayloadSecret(secret string) option {
	return func(p *Provider) {
		p.webhookSecret = []byte(secret)
	}
}

func New(pipeline Pipeline, opts ...option) *Provider {
	p := Provider{
		pipeline: pipeline,
	}

	for _, o := range opts {
		o(&p)
	}

	if p.logging == nil {
		p.logging = zap.L().Named(loggerName)
	}

	return &p
}

func (p *Provider) HTTPHandler(resp http.ResponseWriter, req *http.Request) {
	deliveryID := github.DeliveryID(req)
	hookType := github.WebHookType(req)

	logger := p.logging.With(
		logfields.EventProvider("github"),
		logfields.Relay(p.pipeline.Name()),
		logfields.DeliveryID(deliveryID),
		zap.String("github.webhook_type", hookType),
	)

	if req.Method != http.MethodPost {
		http.Error(resp, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// a missing secret is a deployment fault, not an attacker signal, it
	// must not be reported as a signature mismatch
	if len(p.webhookSecret) == 0 {
		logger.Error(
			"webhook secret is not configured",
			logfields.Event("github_webhook_secret_missing"),
		)

		http.Error(resp, "webhook secret not configured", http.StatusInternalServerError)
		return
	}

	// the signature is computed over the exact delivered bytes,
	// re-serializing a parsed payload could silently change the digest
	body, err := io.ReadAll(req.Body)
	if err != nil {
		logger.Info(
			"reading request body failed",
			logfields.Event("github_http_request_body_read_failed"),
			zap.Error(err),
		)

		http.Error(resp, "reading request body failed", http.StatusBadRequest)
		return
	}

	signature := req.Header.Get(sha256SignatureHeader)

	if err := github.ValidateSignature(signature, body, p.webhookSecret); err != nil {
		logger.Info(
			"received invalid http request, signature validation failed",
			logfields.Event("github_http_request_validation_failed"),
			zap.Error(err),
		)

		http.Error(resp, "Signature mismatch.", http.StatusUnauthorized)
		return
	}

	if hookType != projectsV2ItemHook {
		logger.Debug(
			"ignoring event, event type is unsupported",
			logfields.Event("github_unsupported_event_received"),
		)

		writeResult(resp, http.StatusOK, fmt.Sprintf("Ignored: unsupported event type %q", hookType))
		return
	}

	event, err := ghevent.Parse(body)
	if err != nil {
		logger.Info(
			"received invalid http request, parsing failed",
			logfields.Event("github_event_parsing_failed"),
			zap.Error(err),
		)

		http.Error(resp, err.Error(), http.StatusBadRequest)
		return
	}

	event.DeliveryID = deliveryID

	result := p.pipeline.Process(req.Context(), event)

	writeResult(resp, httpStatus(result.Outcome), result.Reason)
}

func httpStatus(outcome boardrelay.Outcome) int {
	switch outcome {
	case boardrelay.OutcomeRelayed, boardrelay.OutcomeIgnored:
		return http.StatusOK
	case boardrelay.OutcomeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeResult(resp http.ResponseWriter, status int, reason string) {
	resp.Header().Set("Content-Type", "text/plain; charset=utf-8")
	resp.WriteHeader(status)
	fmt.Fprintln(resp, reason)
}

// Package boardrelay implements the webhook relay pipeline.
//
// Each Relay is a linear chain: guard checks, one enrichment call to the
// GitHub GraphQL API, an optional post-enrichment project guard and one
// outbound notification. Every stage can terminate the invocation with a
// descriptive result. Processing is stateless, synchronous and single-shot,
// failed network calls are not retried.
package boardrelay

import (
	"context"
	"errors"
	"fmt"

	"github.com/itchyny/gojq"
	"go.uber.org/zap"

	"github.com/focus-spec/boardrelay/internal/cfg"
	"github.com/focus-spec/boardrelay/internal/ghevent"
	"github.com/focus-spec/boardrelay/internal/githubclt"
	"github.com/focus-spec/boardrelay/internal/logfields"
	"github.com/focus-spec/boardrelay/internal/relayerr"
	"github.com/focus-spec/boardrelay/internal/slackclt"
)

const loggerName = "relay"

// ContentFetcher resolves GitHub node ids into content metadata.
type ContentFetcher interface {
	FetchContent(ctx context.Context, req *githubclt.ContentRequest) (*githubclt.EnrichedContent, error)
}

// MessagePoster sends a message to a chat destination.
type MessagePoster interface {
	PostMessage(ctx context.Context, msg *slackclt.Message) error
}

// Dispatcher triggers a repository_dispatch event.
type Dispatcher interface {
	Dispatch(ctx context.Context, owner, repo, eventType string, payload *githubclt.DispatchPayload) error
}

// Relay processes webhook events of one configured pipeline.
type Relay struct {
	name          string
	logger        *zap.Logger
	guards        []guard
	fetcher       ContentFetcher
	notifier      notifier
	targetProject int
	queueField    string
	queueStates   []string
}

// New instantiates a relay pipeline from its configuration.
func New(relayCfg *cfg.Relay, fetcher ContentFetcher, slack MessagePoster, dispatcher Dispatcher) (*Relay, error) {
	r := Relay{
		name:          relayCfg.Name,
		logger:        zap.L().Named(loggerName).With(logfields.Relay(relayCfg.Name)),
		fetcher:       fetcher,
		targetProject: relayCfg.Project,
		queueField:    relayCfg.QueueField,
		queueStates:   relayCfg.QueueStates,
	}

	if fetcher == nil {
		return nil, errors.New("content fetcher is nil")
	}

	// cheap synchronous guards run first, the project-number guard needs
	// the enrichment result and runs after the GraphQL call
	if relayCfg.Organization != "" {
		r.guards = append(r.guards, organizationGuard(relayCfg.Organization))
	}

	r.guards = append(r.guards, actionGuard(), contentGuard())

	switch {
	case relayCfg.Field != "":
		r.guards = append(r.guards, fieldAllowGuard(relayCfg.Field))

		if len(relayCfg.Values) > 0 {
			r.guards = append(r.guards, valueGuard(relayCfg.Values))
		}

	case len(relayCfg.IgnoredFields) > 0:
		r.guards = append(r.guards, fieldDenyGuard(relayCfg.IgnoredFields))
	}

	if relayCfg.FilterQuery != "" {
		query, err := gojq.Parse(relayCfg.FilterQuery)
		if err != nil {
			return nil, fmt.Errorf("parsing filter_query failed: %w", err)
		}

		r.guards = append(r.guards, filterQueryGuard(query, relayCfg.FilterQuery))
	}

	switch relayCfg.Notifier {
	case cfg.NotifierSlack:
		if slack == nil {
			return nil, errors.New("notifier is slack but no message poster is configured")
		}

		r.notifier = &slackNotifier{
			poster:     slack,
			quoteTitle: relayCfg.QuoteTitle,
		}

	case cfg.NotifierDispatch:
		if dispatcher == nil {
			return nil, errors.New("notifier is dispatch but no dispatcher is configured")
		}

		r.notifier = &dispatchNotifier{
			dispatcher: dispatcher,
			owner:      relayCfg.DispatchOwner,
			repo:       relayCfg.DispatchRepository,
			eventType:  relayCfg.DispatchEventType,
		}

	default:
		return nil, fmt.Errorf("unsupported notifier: %q", relayCfg.Notifier)
	}

	return &r, nil
}

// Name returns the configured relay name.
func (r *Relay) Name() string {
	return r.name
}

// Process runs the event through the pipeline and returns the terminal
// result. Failure details are logged, the returned reason stays generic for
// internal errors.
func (r *Relay) Process(ctx context.Context, ev *ghevent.Event) *Result {
	logger := r.logger.With(ev.LogFields()...)

	result := r.process(ctx, logger, ev)

	metrics.EventProcessedInc(r.name, result.Outcome)

	logger.Info(
		"event processed",
		logfields.Event("relay_event_processed"),
		zap.String("outcome", result.Outcome.String()),
		zap.String("reason", result.Reason),
	)

	return result
}

func (r *Relay) process(ctx context.Context, logger *zap.Logger, ev *ghevent.Event) *Result {
	change := ev.FieldChange()

	for _, g := range r.guards {
		dec, err := g(ev, change)
		if err != nil {
			logger.Error(
				"evaluating guard failed",
				logfields.Event("relay_guard_evaluation_failed"),
				zap.Error(err),
			)

			return &Result{Outcome: OutcomeFailure, Reason: "Internal Server Error"}
		}

		if !dec.proceed {
			return &Result{Outcome: OutcomeIgnored, Reason: dec.reason}
		}
	}

	needsProject := r.targetProject != 0 || len(r.queueStates) > 0

	req := githubclt.ContentRequest{
		ContentNodeID: ev.ContentNodeID(),
		QueueField:    r.queueField,
		QueueStates:   r.queueStates,
	}

	if needsProject {
		if ev.ProjectsV2Item.ProjectNodeID == "" {
			return &Result{
				Outcome: OutcomeIgnored,
				Reason:  "Ignored: event contains no project node id",
			}
		}

		req.ProjectNodeID = ev.ProjectsV2Item.ProjectNodeID
	}

	content, err := r.fetcher.FetchContent(ctx, &req)
	if err != nil {
		var notFoundErr *relayerr.NotFoundError
		if errors.As(err, &notFoundErr) {
			logger.Info(
				"content node not found",
				logfields.Event("relay_content_not_found"),
				logfields.ContentNodeID(notFoundErr.NodeID),
			)

			return &Result{Outcome: OutcomeNotFound, Reason: "Content not found on GitHub"}
		}

		logger.Error(
			"fetching content metadata failed",
			logfields.Event("relay_enrichment_failed"),
			logfields.ContentNodeID(req.ContentNodeID),
			zap.Error(err),
		)

		return &Result{Outcome: OutcomeFailure, Reason: "Internal Server Error"}
	}

	if r.targetProject != 0 {
		if content.Project == nil {
			return &Result{
				Outcome: OutcomeIgnored,
				Reason:  fmt.Sprintf("Ignored: project node did not resolve, target is project %d", r.targetProject),
			}
		}

		if content.Project.Number != r.targetProject {
			return &Result{
				Outcome: OutcomeIgnored,
				Reason:  fmt.Sprintf("Ignored: project %d is not project %d", content.Project.Number, r.targetProject),
			}
		}
	}

	msg, err := r.notifier.Notify(ctx, &notification{
		Event:   ev,
		Change:  change,
		Content: content,
	})
	if err != nil {
		logger.Error(
			"sending notification failed",
			logfields.Event("relay_notification_failed"),
			zap.String("notifier", r.notifier.String()),
			zap.Error(err),
		)

		return &Result{Outcome: OutcomeFailure, Reason: "Internal Server Error"}
	}

	return &Result{Outcome: OutcomeRelayed, Reason: msg}
}

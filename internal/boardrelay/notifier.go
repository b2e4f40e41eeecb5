package boardrelay

import (
	"context"
	"fmt"
	"strings"

	"github.com/focus-spec/boardrelay/internal/ghevent"
	"github.com/focus-spec/boardrelay/internal/githubclt"
	"github.com/focus-spec/boardrelay/internal/slackclt"
)

// clearedValue is sent as new value in dispatch payloads when the field was
// cleared. Downstream workflows match on this marker.
const clearedValue = "blank"

type notification struct {
	Event   *ghevent.Event
	Change  *ghevent.FieldChange
	Content *githubclt.EnrichedContent
}

// notifier sends one notification for an event that passed all guards.
// Notify returns the message for the webhook response on success.
type notifier interface {
	Notify(ctx context.Context, n *notification) (string, error)
	String() string
}

type slackNotifier struct {
	poster     MessagePoster
	quoteTitle bool
}

func (s *slackNotifier) Notify(ctx context.Context, n *notification) (string, error) {
	if err := s.poster.PostMessage(ctx, s.message(n)); err != nil {
		return "", err
	}

	return "Slack notification sent.", nil
}

func (s *slackNotifier) message(n *notification) *slackclt.Message {
	blocks := []slackclt.Block{
		slackclt.SectionBlock(fmt.Sprintf(
			"*Moved to %s*\n<%s|#%d %s>",
			n.Change.NewValue, n.Content.URL, n.Content.Number, n.Content.Title,
		)),
	}

	if s.quoteTitle {
		blocks = append(blocks, slackclt.SectionBlock("> "+n.Content.Title))
	}

	blocks = append(blocks, slackclt.ContextBlock(slackclt.Mrkdwn(fmt.Sprintf(
		"Author: %s | Moved by: %s",
		n.Content.Author, n.Event.SenderLogin(),
	))))

	if n.Content.Project != nil && len(n.Content.Project.QueueCounts) > 0 {
		blocks = append(blocks,
			slackclt.DividerBlock(),
			slackclt.SectionBlock(queueSummary(n.Content.Project.QueueCounts)),
		)
	}

	return &slackclt.Message{
		Text:   fmt.Sprintf("👀 %s Update: %s", n.Change.FieldName, n.Change.NewValue),
		Blocks: blocks,
	}
}

func queueSummary(counts []githubclt.QueueCount) string {
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s: %d", c.State, c.Count))
	}

	return "*Review queues:* " + strings.Join(parts, " | ")
}

func (s *slackNotifier) String() string {
	return "slack"
}

type dispatchNotifier struct {
	dispatcher Dispatcher
	owner      string
	repo       string
	eventType  string
}

func (d *dispatchNotifier) Notify(ctx context.Context, n *notification) (string, error) {
	newValue := n.Change.NewValue
	actionType := "updated"

	if n.Change.Cleared {
		newValue = clearedValue
		actionType = "cleared"
	}

	payload := githubclt.DispatchPayload{
		ContentNodeID: n.Event.ContentNodeID(),
		FieldName:     n.Change.FieldName,
		OldValue:      n.Change.OldValue,
		NewValue:      newValue,
		ChangedBy:     n.Event.SenderLogin(),
		ActionType:    actionType,
	}

	if err := d.dispatcher.Dispatch(ctx, d.owner, d.repo, d.eventType, &payload); err != nil {
		return "", err
	}

	return fmt.Sprintf("Dispatched: %s (%s).", n.Change.FieldName, actionType), nil
}

func (d *dispatchNotifier) String() string {
	return "dispatch"
}

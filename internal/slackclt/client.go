// Package slackclt posts messages to a Slack incoming-webhook URL.
package slackclt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/focus-spec/boardrelay/internal/logfields"
	"github.com/focus-spec/boardrelay/internal/relayerr"
)

const DefaultHTTPClientTimeout = time.Minute

const loggerName = "slack_client"

// Client posts messages to a fixed Slack incoming-webhook URL.
type Client struct {
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
}

// New returns a new slack webhook client.
// The HTTPClient of the client uses a timeout of DefaultHTTPClientTimeout.
func New(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: DefaultHTTPClientTimeout,
		},
		logger: zap.L().Named(loggerName),
	}
}

// PostMessage sends the message to the webhook URL.
// A non-success response status is returned as relayerr.HTTPRequestError.
// The message is sent once, it is not retried on failure.
func (clt *Client) PostMessage(ctx context.Context, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling slack message failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, clt.webhookURL, bytes.NewReader(data))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := clt.client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		clt.logger.Warn(
			"reading slack response body failed",
			logfields.Event("slack_reading_response_body_failed"),
			zap.Int("http_response_code", resp.StatusCode),
			zap.Error(err),
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &relayerr.HTTPRequestError{
			Body:   body,
			Status: resp.StatusCode,
		}
	}

	clt.logger.Debug(
		"slack message sent",
		logfields.Event("slack_message_sent"),
	)

	return nil
}

package cfg

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml"
)

// Environment variables that take precedence over the corresponding
// configuration file values. Secrets are usually provided this way so the
// configuration file can be committed.
const (
	EnvVarWebhookSecret   = "BOARDRELAY_GITHUB_WEBHOOK_SECRET"
	EnvVarGithubAPIToken  = "BOARDRELAY_GITHUB_API_TOKEN"
	EnvVarSlackWebhookURL = "BOARDRELAY_SLACK_WEBHOOK_URL"
)

type Config struct {
	HTTPListenAddr      string   `toml:"http_server_listen_addr"`
	HTTPSListenAddr     string   `toml:"https_server_listen_addr"`
	HTTPSCertFile       string   `toml:"https_ssl_cert_file"`
	HTTPSKeyFile        string   `toml:"https_ssl_key_file"`
	GithubWebHookSecret string   `toml:"github_webhook_secret"`
	GithubAPIToken      string   `toml:"github_api_token"`
	GithubGraphQLURL    string   `toml:"github_graphql_api_url"`
	SlackWebhookURL     string   `toml:"slack_webhook_url"`
	LogFormat           string   `toml:"log_format"`
	LogTimeKey          string   `toml:"log_time_key"`
	LogLevel            string   `toml:"log_level"`
	Relays              []*Relay `toml:"relay"`
}

// Relay configures one webhook relay pipeline.
type Relay struct {
	Name     string `toml:"name"`
	Endpoint string `toml:"endpoint"`

	// Organization restricts the relay to events of one organization.
	// Empty disables the guard.
	Organization string `toml:"organization"`

	// Field and Values configure the allow-list variant: only changes of
	// Field are relayed, and when Values is non-empty, only changes to
	// one of those values.
	Field  string   `toml:"field"`
	Values []string `toml:"values"`

	// IgnoredFields configures the deny-list variant: changes of any
	// field not listed are relayed.
	// Mutually exclusive with Field.
	IgnoredFields []string `toml:"ignored_fields"`

	// FilterQuery is an optional jq expression evaluated against the raw
	// event JSON. It must yield a single boolean.
	FilterQuery string `toml:"filter_query"`

	// Project restricts the relay to items of a project with this number.
	// The check requires the enrichment call, it runs after it.
	// 0 disables the guard.
	Project int `toml:"project"`

	// QueueStates lists single-select states of the queue field to count
	// open pull-request items for. The counts are appended to slack
	// notifications.
	QueueStates []string `toml:"queue_states"`
	// QueueField is the field QueueStates refer to, "Status" when empty.
	QueueField string `toml:"queue_field"`

	// QuoteTitle adds a quoted item title block to slack notifications.
	QuoteTitle bool `toml:"quote_title"`

	// Notifier is "slack" or "dispatch".
	Notifier string `toml:"notifier"`

	DispatchOwner      string `toml:"dispatch_owner"`
	DispatchRepository string `toml:"dispatch_repository"`
	DispatchEventType  string `toml:"dispatch_event_type"`
}

// Load reads a TOML configuration, applies environment variable overrides
// and validates the result.
func Load(reader io.Reader) (*Config, error) {
	var result Config

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	result.applyEnv()

	if result.LogFormat == "" {
		result.LogFormat = "logfmt"
	}

	if result.LogLevel == "" {
		result.LogLevel = "info"
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvVarWebhookSecret); v != "" {
		c.GithubWebHookSecret = v
	}

	if v := os.Getenv(EnvVarGithubAPIToken); v != "" {
		c.GithubAPIToken = v
	}

	if v := os.Getenv(EnvVarSlackWebhookURL); v != "" {
		c.SlackWebhookURL = v
	}
}

func (c *Config) Validate() error {
	if len(c.Relays) == 0 {
		return errors.New("no relay is defined, nothing to do")
	}

	endpoints := make(map[string]string, len(c.Relays))
	names := make(map[string]struct{}, len(c.Relays))

	for _, relay := range c.Relays {
		if relay.Name == "" {
			return errors.New("relay: missing field: 'name'")
		}

		if _, exists := names[relay.Name]; exists {
			return fmt.Errorf("relay %s: name is not unique", relay.Name)
		}
		names[relay.Name] = struct{}{}

		if err := relay.validate(); err != nil {
			return fmt.Errorf("relay %s: %w", relay.Name, err)
		}

		if other, exists := endpoints[relay.Endpoint]; exists {
			return fmt.Errorf("relay %s: endpoint %q is already used by relay %s", relay.Name, relay.Endpoint, other)
		}
		endpoints[relay.Endpoint] = relay.Name

		if relay.Notifier == NotifierSlack && c.SlackWebhookURL == "" {
			return fmt.Errorf("relay %s: notifier is %q but slack_webhook_url is unset", relay.Name, NotifierSlack)
		}
	}

	return nil
}

const (
	NotifierSlack    = "slack"
	NotifierDispatch = "dispatch"
)

func (r *Relay) validate() error {
	if r.Endpoint == "" {
		return errors.New("missing field: 'endpoint'")
	}

	if r.Field != "" && len(r.IgnoredFields) != 0 {
		return errors.New("'field' and 'ignored_fields' are mutually exclusive")
	}

	// a relay without a field filter would forward every edit, that is
	// never intended
	if r.Field == "" && len(r.IgnoredFields) == 0 {
		return errors.New("one of 'field' or 'ignored_fields' must be set")
	}

	if r.Field == "" && len(r.Values) != 0 {
		return errors.New("'values' requires 'field'")
	}

	switch r.Notifier {
	case NotifierSlack:
		if r.DispatchOwner != "" || r.DispatchRepository != "" || r.DispatchEventType != "" {
			return errors.New("dispatch settings require the dispatch notifier")
		}

	case NotifierDispatch:
		if r.DispatchOwner == "" || r.DispatchRepository == "" {
			return errors.New("dispatch notifier requires 'dispatch_owner' and 'dispatch_repository'")
		}

		if r.DispatchEventType == "" {
			return errors.New("dispatch notifier requires 'dispatch_event_type'")
		}

		if len(r.QueueStates) != 0 {
			return errors.New("'queue_states' requires the slack notifier")
		}

	case "":
		return errors.New("missing field: 'notifier'")

	default:
		return fmt.Errorf("unsupported notifier: %q", r.Notifier)
	}

	return nil
}

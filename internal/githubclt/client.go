// Package githubclt provides a github API client.
package githubclt

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v59/github"
	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const DefaultHTTPClientTimeout = time.Minute

const loggerName = "github_client"

// Client is a github API client.
// All operations are single-shot, failed calls are not retried, webhook
// redelivery owns the retry semantics.
type Client struct {
	restClt    *github.Client
	graphQLClt *githubv4.Client
	logger     *zap.Logger
}

type options struct {
	graphQLEndpoint string
	restEndpoint    string
}

type option func(*options)

// WithGraphQLEndpoint overrides the GraphQL API URL, e.g. to run against a
// GitHub Enterprise instance or a test stub server.
func WithGraphQLEndpoint(endpointURL string) option {
	return func(o *options) {
		o.graphQLEndpoint = endpointURL
	}
}

// WithRESTEndpoint overrides the REST API base URL.
func WithRESTEndpoint(endpointURL string) option {
	return func(o *options) {
		o.restEndpoint = endpointURL
	}
}

// New returns a new github api client authenticating with the given oauth
// API token.
func New(oauthAPItoken string, opts ...option) (*Client, error) {
	var settings options

	for _, opt := range opts {
		opt(&settings)
	}

	httpClient := newHTTPClient(oauthAPItoken)

	clt := Client{
		restClt: github.NewClient(httpClient),
		logger:  zap.L().Named(loggerName),
	}

	if settings.graphQLEndpoint == "" {
		clt.graphQLClt = githubv4.NewClient(httpClient)
	} else {
		clt.graphQLClt = githubv4.NewEnterpriseClient(settings.graphQLEndpoint, httpClient)
	}

	if settings.restEndpoint != "" {
		endpoint := settings.restEndpoint
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}

		baseURL, err := url.Parse(endpoint)
		if err != nil {
			return nil, err
		}

		clt.restClt.BaseURL = baseURL
	}

	return &clt, nil
}

func newHTTPClient(apiToken string) *http.Client {
	if apiToken == "" {
		return &http.Client{
			Timeout: DefaultHTTPClientTimeout,
		}
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: apiToken},
	)

	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = DefaultHTTPClientTimeout

	return tc
}

// Package relayerr contains error types shared between the relay pipeline
// and the outbound clients.
package relayerr

import "fmt"

// NotFoundError is returned when a GitHub node id does not resolve to an
// accessible object, e.g. because the issue or pull request was deleted.
type NotFoundError struct {
	NodeID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("node %q not found", e.NodeID)
}

// HTTPRequestError is returned when an outbound http request was answered
// with a non-success status code.
type HTTPRequestError struct {
	Body   []byte
	Status int
}

func (e *HTTPRequestError) Error() string {
	return fmt.Sprintf("http request failed with StatusCode: %d, response: %q", e.Status, string(e.Body))
}

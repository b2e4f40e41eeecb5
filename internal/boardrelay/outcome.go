package boardrelay

import "fmt"

// Outcome represents the terminal result of processing one webhook event.
type Outcome uint8

const (
	OutcomeUndefined Outcome = iota
	// OutcomeRelayed means the event passed all guards and the
	// notification was sent.
	OutcomeRelayed
	// OutcomeIgnored means a guard rejected the event, nothing was sent.
	OutcomeIgnored
	// OutcomeNotFound means the content node did not resolve at GitHub.
	OutcomeNotFound
	// OutcomeFailure means enrichment or notification failed.
	OutcomeFailure
)

var outcomeString = [...]string{
	OutcomeUndefined: "undefined",
	OutcomeRelayed:   "relayed",
	OutcomeIgnored:   "ignored",
	OutcomeNotFound:  "not_found",
	OutcomeFailure:   "failure",
}

func (o Outcome) String() string {
	if int(o) > len(outcomeString)-1 {
		return fmt.Sprintf("unsupported Outcome value: %d", o)
	}

	return outcomeString[o]
}

// Result is the terminal result of one relay invocation.
// Reason is a human-readable description intended for the webhook response
// body, it is the only observability surface the sender gets.
type Result struct {
	Outcome Outcome
	Reason  string
}

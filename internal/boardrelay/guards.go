package boardrelay

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/focus-spec/boardrelay/internal/ghevent"
)

// editedAction is the only projects_v2_item action that carries a
// changes.field_value record.
const editedAction = "edited"

// decision is the result of one guard evaluation.
// A non-proceeding decision terminates the pipeline, its reason echoes the
// offending field or value.
type decision struct {
	proceed bool
	reason  string
}

func proceed() decision {
	return decision{proceed: true}
}

func ignored(format string, args ...any) decision {
	return decision{reason: fmt.Sprintf(format, args...)}
}

// guard is a pure predicate over the event and its derived field change.
// Guards must not perform I/O, the only network-dependent check (the
// project-number guard) runs separately after enrichment.
type guard func(ev *ghevent.Event, change *ghevent.FieldChange) (decision, error)

func organizationGuard(organization string) guard {
	return func(ev *ghevent.Event, _ *ghevent.FieldChange) (decision, error) {
		if ev.Organization.Login != organization {
			return ignored("Ignored: organization %q is not %q", ev.Organization.Login, organization), nil
		}

		return proceed(), nil
	}
}

func actionGuard() guard {
	return func(ev *ghevent.Event, _ *ghevent.FieldChange) (decision, error) {
		if ev.Action != editedAction {
			return ignored("Ignored: action %q is not a relevant edit", ev.Action), nil
		}

		return proceed(), nil
	}
}

func contentGuard() guard {
	return func(ev *ghevent.Event, _ *ghevent.FieldChange) (decision, error) {
		if ev.ContentNodeID() == "" {
			return ignored("Ignored: item has no content node, not an issue or pull request"), nil
		}

		return proceed(), nil
	}
}

func fieldAllowGuard(field string) guard {
	return func(_ *ghevent.Event, change *ghevent.FieldChange) (decision, error) {
		if change.FieldName != field {
			return ignored("Ignored: field %q changed, only %q changes are relayed", change.FieldName, field), nil
		}

		return proceed(), nil
	}
}

func fieldDenyGuard(ignoredFields []string) guard {
	fields := make(map[string]struct{}, len(ignoredFields))
	for _, f := range ignoredFields {
		fields[f] = struct{}{}
	}

	return func(_ *ghevent.Event, change *ghevent.FieldChange) (decision, error) {
		if _, isIgnored := fields[change.FieldName]; isIgnored {
			return ignored("Ignored: %s field excluded", change.FieldName), nil
		}

		return proceed(), nil
	}
}

func valueGuard(values []string) guard {
	return func(_ *ghevent.Event, change *ghevent.FieldChange) (decision, error) {
		for _, v := range values {
			if change.NewValue == v {
				return proceed(), nil
			}
		}

		return ignored("Ignored: Field %s changed to %s", change.FieldName, change.NewValue), nil
	}
}

// filterQueryGuard evaluates a jq expression against the raw event JSON.
// The query must yield exactly one boolean result.
func filterQueryGuard(query *gojq.Query, queryStr string) guard {
	return func(ev *ghevent.Event, _ *ghevent.FieldChange) (decision, error) {
		var evUn any

		if len(ev.JSON) == 0 {
			return decision{}, fmt.Errorf("json field of event is empty")
		}

		if err := json.Unmarshal(ev.JSON, &evUn); err != nil {
			return decision{}, fmt.Errorf("unmarshaling json failed: %w", err)
		}

		result, errs := goJQIterToSlice(query.Run(evUn))
		if len(errs) != 0 {
			return decision{}, fmt.Errorf("json query returned errors, query: %q, errors: %s", queryStr, errString(errs))
		}

		if len(result) != 1 {
			return decision{}, fmt.Errorf("json query returned %d results, expected 1, query: %q", len(result), queryStr)
		}

		matched, ok := result[0].(bool)
		if !ok {
			return decision{}, fmt.Errorf("json query returned non-bool result: %+v (%T), query: %q", result[0], result[0], queryStr)
		}

		if !matched {
			return ignored("Ignored: filter query %q did not match", queryStr), nil
		}

		return proceed(), nil
	}
}

func goJQIterToSlice(iter gojq.Iter) ([]any, []error) {
	var result []any
	var errors []error

	for {
		res, ok := iter.Next()
		if !ok {
			return result, errors
		}

		if err, isErr := res.(error); isErr {
			errors = append(errors, err)
			continue
		}

		result = append(result, res)
	}
}

func errString(errs []error) string {
	var result strings.Builder

	for i, err := range errs {
		if i > 0 {
			result.WriteString("; ")
		}

		result.WriteString(fmt.Sprintf("error %d: %s", i, err))
	}

	return result.String()
}

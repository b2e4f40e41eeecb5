package ghevent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NoneValue represents an absent, null or empty field value.
const NoneValue = "None"

// FieldChange is the canonical view of a project field change.
type FieldChange struct {
	FieldName string
	OldValue  string
	NewValue  string
	// Cleared is true when the field value was removed, as opposed to
	// changed to an empty-but-present value.
	Cleared bool
}

var isoTimestampRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T`)

// Normalize converts a raw field value into its canonical string form:
//
//   - absent, null or an empty string become NoneValue
//   - a numeric or string zero stays "0"
//   - objects are reduced to their name, text or date property, in that
//     priority order, or NoneValue when none is set
//   - ISO-8601 timestamps are truncated to the date portion
//   - everything else is stringified
func Normalize(raw json.RawMessage) string {
	if len(raw) == 0 {
		return NoneValue
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var val any
	if err := dec.Decode(&val); err != nil {
		return NoneValue
	}

	return normalizeValue(val)
}

func normalizeValue(val any) string {
	switch v := val.(type) {
	case nil:
		return NoneValue

	case json.Number:
		// zero must be recognized before any emptiness check, a naive
		// falsy-test misclassifies a real 0 as blank
		if v.String() == "0" {
			return "0"
		}

		return trimTimestamp(v.String())

	case string:
		if v == "0" {
			return "0"
		}

		if v == "" {
			return NoneValue
		}

		return trimTimestamp(v)

	case bool:
		return strconv.FormatBool(v)

	case map[string]any:
		for _, key := range []string{"name", "text", "date"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}

		return NoneValue

	default:
		return trimTimestamp(fmt.Sprint(v))
	}
}

// trimTimestamp reduces an ISO-8601 timestamp to its date portion.
// Other values are returned unchanged.
func trimTimestamp(val string) string {
	if !isoTimestampRe.MatchString(val) {
		return val
	}

	val = strings.SplitN(val, "T", 2)[0]

	return strings.SplitN(val, "+", 2)[0]
}

// isCleared reports whether a raw "to" value represents a cleared field.
// That is the case when the "to" key is structurally absent or explicitly
// null. A present zero, empty string or false is never cleared.
func isCleared(to json.RawMessage) bool {
	return len(to) == 0 || bytes.Equal(to, []byte("null"))
}

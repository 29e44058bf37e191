package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Rules configures payload shape checks for message-bearing events. A
// payload failing its rules is a malformed event: dropped by the session
// layer, never an engine error. Field values themselves are unconstrained
// unless a max length is set; the engine accepts any string, empty
// included.
type Rules struct {
	Required []string
	MaxLen   map[string]int
}

// DefaultRules requires the identity triple fields to be present.
func DefaultRules() Rules {
	return Rules{Required: []string{"author", "text", "timestamp"}}
}

var rules = DefaultRules()

// SetRules replaces the active rule set. Empty rules fall back to the
// defaults.
func SetRules(r Rules) {
	if len(r.Required) == 0 && len(r.MaxLen) == 0 {
		r = DefaultRules()
	}
	rules = r
}

// ValidatePayload checks a raw message payload against the active rules.
func ValidatePayload(raw []byte) error {
	var root map[string]interface{}
	if err := json.Unmarshal(raw, &root); err != nil {
		return fmt.Errorf("payload is not an object: %w", err)
	}
	var errs []string
	for _, p := range rules.Required {
		if !existsAt(root, p) {
			errs = append(errs, fmt.Sprintf("required path missing: %s", p))
		}
	}
	for p, max := range rules.MaxLen {
		if v, ok := valueAt(root, p); ok {
			if s, isStr := v.(string); isStr && len(s) > max {
				errs = append(errs, fmt.Sprintf("max length exceeded at %s: %d > %d", p, len(s), max))
			}
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// valueAt walks a dotted path through nested JSON objects.
func valueAt(root map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = root
	for _, p := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func existsAt(root map[string]interface{}, path string) bool {
	_, ok := valueAt(root, path)
	return ok
}

// File: internal/vault/vault.go
package vault

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
)

// refPattern matches a {{name}} variable reference inside an action field.
// Surrounding whitespace inside the braces is tolerated.
var refPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// Vault holds a session's secret name to value pairs. It is immutable after
// construction, so it is safe to share between the loop and status readers
// without a lock. Values never leave the vault except through Substitute,
// which is called immediately before execution; everything serialized toward
// the model or the transcript carries names only.
type Vault struct {
	values map[string]string
}

// New builds a vault from the request's variable map. The map is copied so a
// caller mutating its own map afterwards cannot change the session's secrets.
func New(values map[string]string) *Vault {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Vault{values: copied}
}

// Len returns the number of stored variables.
func (v *Vault) Len() int { return len(v.values) }

// Names returns the sorted variable names. Names are not secret; they are
// the only vault-derived data the planner ever sees.
func (v *Vault) Names() []string {
	names := make([]string, 0, len(v.values))
	for name := range v.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Substitute returns a copy of the action with every {{name}} reference
// replaced by its stored value. The input action is never modified; the
// returned concrete action must only be handed to the executor, never stored
// or logged. Referencing an undeclared name fails with
// *schemas.UnknownVariableError.
func (v *Vault) Substitute(action schemas.Action) (schemas.Action, error) {
	concrete := action

	var err error
	if concrete.URL, err = v.expand(action.URL); err != nil {
		return schemas.Action{}, err
	}
	if concrete.Selector, err = v.expand(action.Selector); err != nil {
		return schemas.Action{}, err
	}
	if concrete.Value, err = v.expand(action.Value); err != nil {
		return schemas.Action{}, err
	}
	return concrete, nil
}

// expand resolves all references in a single field.
func (v *Vault) expand(s string) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}

	var unknown *schemas.UnknownVariableError
	expanded := refPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := refPattern.FindStringSubmatch(match)[1]
		value, ok := v.values[name]
		if !ok {
			if unknown == nil {
				unknown = &schemas.UnknownVariableError{Name: name}
			}
			return match
		}
		return value
	})
	if unknown != nil {
		return "", unknown
	}
	return expanded, nil
}

// Redact replaces every occurrence of a stored secret value in s with a
// placeholder naming the variable. Observation text passes through here
// before it is appended to the transcript, so a page that echoes a typed
// secret back cannot leak it into the audit trail.
func (v *Vault) Redact(s string) string {
	if len(v.values) == 0 || s == "" {
		return s
	}
	// Deterministic order: longer values first so overlapping secrets
	// redact fully, then lexicographic by name.
	type pair struct{ name, value string }
	pairs := make([]pair, 0, len(v.values))
	for name, value := range v.values {
		if value == "" {
			continue
		}
		pairs = append(pairs, pair{name: name, value: value})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if len(pairs[i].value) != len(pairs[j].value) {
			return len(pairs[i].value) > len(pairs[j].value)
		}
		return pairs[i].name < pairs[j].name
	})
	for _, p := range pairs {
		s = strings.ReplaceAll(s, p.value, "[redacted:"+p.name+"]")
	}
	return s
}

// IsUnknownVariable reports whether err is an unknown-variable failure.
func IsUnknownVariable(err error) bool {
	var target *schemas.UnknownVariableError
	return errors.As(err, &target)
}

package postgres

import (
	"fmt"
	"regexp"
	"strings"
)

// SQL identifiers cannot be bound as query parameters, so every
// dynamically chosen schema or table name must pass this allow-list
// before it is interpolated into a statement.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

const maxIdentLen = 63 // PostgreSQL identifier limit

// SafeIdent validates name against the identifier allow-list and returns
// it double-quoted. Anything outside [a-z0-9_] is rejected, never escaped.
func SafeIdent(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty identifier")
	}
	if len(name) > maxIdentLen {
		return "", fmt.Errorf("identifier %q exceeds %d characters", name, maxIdentLen)
	}
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("identifier %q contains disallowed characters", name)
	}
	return `"` + name + `"`, nil
}

// QualifyTable returns the schema-qualified, quoted form of a table
// reference. The qualifier is bound here, at statement-build time, never
// via connection-level search_path, so pooled connections carry no
// tenant state between requests.
func QualifyTable(schema, table string) (string, error) {
	qs, err := SafeIdent(schema)
	if err != nil {
		return "", fmt.Errorf("schema: %w", err)
	}
	qt, err := SafeIdent(table)
	if err != nil {
		return "", fmt.Errorf("table: %w", err)
	}
	return qs + "." + qt, nil
}

// SanitizeIdent lowercases s and replaces every disallowed character
// with an underscore. Used when deriving identifiers from external
// input; the result still goes through SafeIdent before use.
func SanitizeIdent(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

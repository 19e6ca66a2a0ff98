package storage

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

var envRefPattern = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnv replaces ${NAME} references in connection settings with the
// value of the environment variable NAME. Every referenced variable must be
// set. "$$" yields a literal "$"; any other "$" is kept as is, so passwords
// containing "$" survive unchanged.
func ExpandEnv(s string) (string, error) {
	var missing []string
	out := envRefPattern.ReplaceAllStringFunc(s, func(m string) string {
		if m == "$$" {
			return "$"
		}
		name := m[2 : len(m)-1]
		v, ok := os.LookupEnv(name)
		if !ok {
			if !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
			return m
		}
		return v
	})
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}
	return out, nil
}

// expandAll expands each field in place, stopping at the first failure.
func expandAll(fields ...*string) error {
	for _, f := range fields {
		v, err := ExpandEnv(*f)
		if err != nil {
			return err
		}
		*f = v
	}
	return nil
}

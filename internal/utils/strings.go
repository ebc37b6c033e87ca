package utils

import "strings"

// SplitList splits a comma-separated setting into trimmed non-empty values.
// It returns nil when nothing is left.
func SplitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

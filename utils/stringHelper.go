package utils

import "strings"

// SplitAndTrim splits a comma separated list, dropping blank entries.
func SplitAndTrim(csv string) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

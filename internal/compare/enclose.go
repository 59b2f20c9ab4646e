// Package compare holds the text and table comparisons behind the dashboard tools.
package compare

import "strings"

// SplitValues breaks input on newlines and commas, trimming each value and dropping empties.
func SplitValues(input string) []string {
	var values []string
	for _, line := range strings.Split(strings.ReplaceAll(input, ",", "\n"), "\n") {
		if v := strings.TrimSpace(line); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// Enclose quotes every value of input and joins them with ", ".
func Enclose(input string) string {
	values := SplitValues(input)
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + v + `"`
	}
	return strings.Join(quoted, ", ")
}

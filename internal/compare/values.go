package compare

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// MsgTooFewBoxes is shown when fewer than two boxes carry any text.
const MsgTooFewBoxes = "Please enter at least 2 text boxes"

var ErrTooFewBoxes = errors.New("fewer than two text boxes filled")

// Mismatch lists how one box differs from the reference box.
type Mismatch struct {
	Column  string   `json:"column"`
	Missing []string `json:"missing"`
	Extra   []string `json:"extra"`
}

// NormalizeValues splits text on commas and whitespace and lower-cases each value.
func NormalizeValues(text string) []string {
	parts := strings.Fields(strings.ReplaceAll(text, ",", " "))
	for i := range parts {
		parts[i] = strings.ToLower(parts[i])
	}
	return parts
}

// CompareValues compares every filled box against the first filled one as a multiset.
// Boxes are labelled by their position among all boxes, filled or not.
func CompareValues(boxes []string) ([]Mismatch, error) {
	var reference []string
	filled := 0
	for _, box := range boxes {
		if strings.TrimSpace(box) == "" {
			continue
		}
		if filled == 0 {
			reference = NormalizeValues(box)
		}
		filled++
	}
	if filled < 2 {
		return nil, ErrTooFewBoxes
	}

	var mismatches []Mismatch
	for i, box := range boxes {
		if strings.TrimSpace(box) == "" {
			continue
		}
		current := NormalizeValues(box)
		if slices.Equal(reference, current) {
			continue
		}
		missing, extra := multisetDiff(reference, current)
		if len(missing) > 0 || len(extra) > 0 {
			mismatches = append(mismatches, Mismatch{
				Column:  fmt.Sprintf("Textbox %d", i+1),
				Missing: missing,
				Extra:   extra,
			})
		}
	}
	return mismatches, nil
}

// multisetDiff returns, sorted, the items reference has more of than current (missing)
// and the items current has more of than reference (extra).
func multisetDiff(reference, current []string) (missing, extra []string) {
	refCount := countStrings(reference)
	curCount := countStrings(current)

	for item, n := range refCount {
		for i := curCount[item]; i < n; i++ {
			missing = append(missing, item)
		}
	}
	for item, n := range curCount {
		for i := refCount[item]; i < n; i++ {
			extra = append(extra, item)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return missing, extra
}

func countStrings(items []string) map[string]int {
	counts := make(map[string]int, len(items))
	for _, item := range items {
		counts[item]++
	}
	return counts
}

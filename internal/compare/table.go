package compare

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	sniffSampleSize = 4096
	// sizeTolerance is the largest byte difference two matching files may have.
	sizeTolerance = 1000
	// sampleRows bounds the quick pre-check before the full row comparison.
	sampleRows = 1000

	maxUniqueRows = 5
	maxCountDiffs = 3
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")

	candidateDelimiters = []rune{',', '\t', ';', '|'}
	numericPattern      = regexp.MustCompile(`^-?\d*\.?\d+$`)
)

// Table is a parsed file: a header row and the data rows beneath it.
type Table struct {
	Header []string
	Rows   [][]string
}

// Shape returns rows × columns, header excluded from the row count.
func (t Table) Shape() (int, int) {
	return len(t.Rows), len(t.Header)
}

// ReadTable loads a delimited text file or an .xlsx workbook (first sheet).
func ReadTable(path string) (Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(path)
	case ".xls":
		return Table{}, fmt.Errorf("%w: legacy .xls workbooks", ErrUnsupportedFormat)
	default:
		return readDelimited(path)
	}
}

func readWorkbook(path string) (Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return tableFromRecords(rows, true)
}

func readDelimited(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read file: %w", err)
	}
	raw = bytes.ToValidUTF8(raw, nil)

	sample := raw
	if len(sample) > sniffSampleSize {
		sample = sample[:sniffSampleSize]
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = DetectDelimiter(string(sample))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		records = append(records, record)
	}
	return tableFromRecords(records, false)
}

// tableFromRecords splits off the header and pads short rows. Workbooks drop
// trailing empty cells, so their rows may also be longer than a short header.
func tableFromRecords(records [][]string, lenient bool) (Table, error) {
	if len(records) == 0 {
		return Table{}, nil
	}
	t := Table{Header: records[0]}
	width := len(t.Header)
	for i, rec := range records[1:] {
		if len(rec) > width {
			if !lenient {
				return Table{}, fmt.Errorf("row %d has %d fields, header has %d", i+2, len(rec), width)
			}
			rec = rec[:width]
		}
		row := make([]string, width)
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// DetectDelimiter picks the candidate that splits every sampled line into the same,
// largest number of fields. It falls back to tab.
func DetectDelimiter(sample string) rune {
	lines := strings.Split(strings.ReplaceAll(sample, "\r\n", "\n"), "\n")
	if len(sample) >= sniffSampleSize && len(lines) > 1 {
		lines = lines[:len(lines)-1] // last line may be cut off
	}
	var nonEmpty []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			nonEmpty = append(nonEmpty, l)
		}
		if len(nonEmpty) == 20 {
			break
		}
	}

	best, bestCount := '\t', 0
	for _, d := range candidateDelimiters {
		count := -1
		for _, l := range nonEmpty {
			n := strings.Count(l, string(d))
			if count == -1 {
				count = n
			} else if n != count {
				count = 0
				break
			}
		}
		if count > bestCount {
			best, bestCount = d, count
		}
	}
	return best
}

// NormalizeNumeric canonicalizes numeric text ("1.50" → "1.5", "2.0" → "2") and
// lower-cases everything else.
func NormalizeNumeric(text string) string {
	text = strings.TrimSpace(text)
	if numericPattern.MatchString(text) {
		if num, err := strconv.ParseFloat(text, 64); err == nil {
			if num == math.Trunc(num) {
				if num == 0 {
					num = 0
				}
				return strconv.FormatFloat(num, 'f', 0, 64)
			}
			s := strings.TrimRight(fmt.Sprintf("%.10f", num), "0")
			return strings.TrimRight(s, ".")
		}
	}
	return strings.ToLower(text)
}

// NormalizeCell turns one cell into its comparable tokens.
func NormalizeCell(cell string) []string {
	if cell == "" {
		return nil
	}
	text := NormalizeNumeric(cell)
	var parts []string
	for _, piece := range strings.Split(text, ",") {
		parts = append(parts, strings.Fields(piece)...)
	}
	return parts
}

// NormalizeRow flattens a row into sorted tokens so column order does not matter.
func NormalizeRow(row []string) []string {
	var values []string
	for _, cell := range row {
		values = append(values, NormalizeCell(cell)...)
	}
	sort.Strings(values)
	return values
}

// RowCount records a normalized row whose multiplicity differs between files.
type RowCount struct {
	Row    []string `json:"row"`
	First  int      `json:"first"`
	Second int      `json:"second"`
}

// FileReport summarizes a file comparison.
type FileReport struct {
	Match        bool       `json:"match"`
	Reason       string     `json:"reason"`
	FirstSize    int64      `json:"first_size"`
	SecondSize   int64      `json:"second_size"`
	FirstRows    int        `json:"first_rows"`
	SecondRows   int        `json:"second_rows"`
	FirstUnique  int        `json:"first_unique"`
	SecondUnique int        `json:"second_unique"`
	OnlyInFirst  [][]string `json:"only_in_first,omitempty"`
	OnlyInSecond [][]string `json:"only_in_second,omitempty"`
	CountDiffs   []RowCount `json:"count_diffs,omitempty"`
}

// Report reasons.
const (
	ReasonSizeMismatch   = "size mismatch"
	ReasonShapeMismatch  = "shape mismatch"
	ReasonIdentical      = "identical content"
	ReasonSampleMismatch = "sample rows differ"
	ReasonRowsMatch      = "rows match"
	ReasonRowsDiffer     = "rows differ"
)

// CompareFiles reports whether two tables hold the same rows, ignoring row order,
// column order within a row, case and numeric formatting.
func CompareFiles(firstPath, secondPath string) (FileReport, error) {
	var report FileReport

	firstInfo, err := os.Stat(firstPath)
	if err != nil {
		return report, fmt.Errorf("stat first file: %w", err)
	}
	secondInfo, err := os.Stat(secondPath)
	if err != nil {
		return report, fmt.Errorf("stat second file: %w", err)
	}
	report.FirstSize, report.SecondSize = firstInfo.Size(), secondInfo.Size()
	if abs(report.FirstSize-report.SecondSize) > sizeTolerance {
		report.Reason = ReasonSizeMismatch
		return report, nil
	}

	first, err := ReadTable(firstPath)
	if err != nil {
		return report, fmt.Errorf("read first file: %w", err)
	}
	second, err := ReadTable(secondPath)
	if err != nil {
		return report, fmt.Errorf("read second file: %w", err)
	}
	report.FirstRows, report.SecondRows = len(first.Rows), len(second.Rows)

	fr, fc := first.Shape()
	sr, sc := second.Shape()
	if fr != sr || fc != sc {
		report.Reason = ReasonShapeMismatch
		return report, nil
	}

	if contentHash(first.Rows) == contentHash(second.Rows) {
		report.Match = true
		report.Reason = ReasonIdentical
		report.FirstUnique = len(countRows(first.Rows))
		report.SecondUnique = report.FirstUnique
		return report, nil
	}

	n := min(sampleRows, len(first.Rows), len(second.Rows))
	if !maps.Equal(countRows(first.Rows[:n]), countRows(second.Rows[:n])) {
		report.Reason = ReasonSampleMismatch
		return report, nil
	}

	diff := diffTables(first, second)
	diff.FirstSize, diff.SecondSize = report.FirstSize, report.SecondSize
	return diff, nil
}

// diffTables compares the full row multisets of two tables.
func diffTables(first, second Table) FileReport {
	report := FileReport{FirstRows: len(first.Rows), SecondRows: len(second.Rows)}
	firstCounts := countRows(first.Rows)
	secondCounts := countRows(second.Rows)
	report.FirstUnique, report.SecondUnique = len(firstCounts), len(secondCounts)
	report.Match = maps.Equal(firstCounts, secondCounts)
	if report.Match {
		report.Reason = ReasonRowsMatch
		return report
	}

	report.Reason = ReasonRowsDiffer
	firstKeys := slices.Sorted(maps.Keys(firstCounts))
	for _, key := range firstKeys {
		if _, ok := secondCounts[key]; !ok && len(report.OnlyInFirst) < maxUniqueRows {
			report.OnlyInFirst = append(report.OnlyInFirst, splitKey(key))
		}
	}
	for _, key := range slices.Sorted(maps.Keys(secondCounts)) {
		if _, ok := firstCounts[key]; !ok && len(report.OnlyInSecond) < maxUniqueRows {
			report.OnlyInSecond = append(report.OnlyInSecond, splitKey(key))
		}
	}
	for _, key := range firstKeys {
		other, ok := secondCounts[key]
		if ok && other != firstCounts[key] && len(report.CountDiffs) < maxCountDiffs {
			report.CountDiffs = append(report.CountDiffs, RowCount{
				Row:    splitKey(key),
				First:  firstCounts[key],
				Second: other,
			})
		}
	}
	return report
}

const keySep = "\x1f"

func countRows(rows [][]string) map[string]int {
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[strings.Join(NormalizeRow(row), keySep)]++
	}
	return counts
}

func splitKey(key string) []string {
	if key == "" {
		return []string{}
	}
	return strings.Split(key, keySep)
}

func contentHash(rows [][]string) [sha256.Size]byte {
	h := sha256.New()
	for _, row := range rows {
		h.Write([]byte(strings.Join(row, keySep)))
		h.Write([]byte{'\n'})
	}
	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

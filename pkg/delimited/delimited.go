// Package delimited turns decoded CSV-like text into header-keyed records.
package delimited

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// Record is one data row keyed by header name. Keys preserves the header order.
type Record struct {
	Keys   []string
	Values map[string]string
}

// Get returns the value stored under the header name.
func (r Record) Get(name string) (string, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// Result carries the parsed records together with the count of rows that were dropped.
type Result struct {
	Header  []string
	Records []Record
	Dropped int
}

// Parse reads text with the given separator. The first row is the header. Rows with a
// wrong field count or broken quoting are dropped, so unparsable input yields no records.
// A header row with broken quoting yields no records at all.
func Parse(text string, sep rune) []Record {
	return ParseDetailed(text, sep).Records
}

// ParseDetailed is Parse with the header and the dropped row count exposed.
func ParseDetailed(text string, sep rune) Result {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = false

	var result Result
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				break
			}
			if result.Header == nil {
				result.Header = []string{}
				break
			}
			result.Dropped++
			continue
		}
		if result.Header == nil {
			result.Header = normaliseHeader(row)
			continue
		}
		if len(row) != len(result.Header) {
			result.Dropped++
			continue
		}
		values := make(map[string]string, len(row))
		for i, name := range result.Header {
			values[name] = row[i]
		}
		result.Records = append(result.Records, Record{Keys: result.Header, Values: values})
	}
	return result
}

func normaliseHeader(row []string) []string {
	header := make([]string, len(row))
	for i, name := range row {
		header[i] = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	}
	return header
}

package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissingColumn is returned when a dataset lacks a column its source requires
var ErrMissingColumn = errors.New("missing required column")

// Table is a parsed statement: a header row and string cells
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewTable builds a table, trimming header names.
func NewTable(columns []string, rows [][]string) *Table {
	t := &Table{Rows: rows, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		c = strings.TrimSpace(c)
		t.Columns = append(t.Columns, c)
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
	return t
}

// Require fails with ErrMissingColumn naming every absent column.
func (t *Table) Require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if _, ok := t.index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// Cell returns the trimmed value of column in row, "" when absent.
func (t *Table) Cell(row []string, column string) string {
	i, ok := t.index[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ReadCSV parses CSV text into a Table. The delimiter (',' or ';') is taken from
// the header line and a leading UTF-8 byte order mark is dropped. Blank lines
// are skipped.
func ReadCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}

	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	firstLine := string(head)
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		reader.Comma = ';'
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv has no header row")
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return NewTable(records[0], rows), nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

package table

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"sync"
)

// CSVWriter streams rows to CSV, flushing after every write. Safe for
// concurrent use.
type CSVWriter struct {
	w  *csv.Writer
	mu sync.Mutex
}

func NewCSVWriter(w io.Writer, columns []string) (*CSVWriter, error) {
	cw := &CSVWriter{w: csv.NewWriter(w)}
	if err := cw.w.Write(columns); err != nil {
		return nil, err
	}
	cw.w.Flush()
	return cw, cw.w.Error()
}

func (cw *CSVWriter) Write(r Row) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	record := make([]string, 0, len(r.Values)+1)
	record = append(record, r.ID)
	for _, v := range r.Values {
		record = append(record, formatCell(v))
	}
	if err := cw.w.Write(record); err != nil {
		return err
	}
	cw.w.Flush()
	return cw.w.Error()
}

// WriteCSV writes the whole table.
func (t *Table) WriteCSV(w io.Writer) error {
	cw, err := NewCSVWriter(w, t.columns)
	if err != nil {
		return err
	}
	for _, r := range t.rows {
		if err := cw.Write(r); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) SaveCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return t.WriteCSV(file)
}

type jsonTable struct {
	Columns []string  `json:"columns"`
	Rows    []jsonRow `json:"rows"`
}

type jsonRow struct {
	ID     string `json:"id"`
	Values []any  `json:"values"`
}

// WriteJSON writes the table as a single JSON document; NA cells become
// null.
func (t *Table) WriteJSON(w io.Writer) error {
	doc := jsonTable{Columns: t.columns, Rows: make([]jsonRow, len(t.rows))}
	for i, r := range t.rows {
		values := make([]any, len(r.Values))
		for j, v := range r.Values {
			if IsNA(v) {
				values[j] = nil
			} else {
				values[j] = v
			}
		}
		doc.Rows[i] = jsonRow{ID: r.ID, Values: values}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func (t *Table) SaveJSON(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return t.WriteJSON(file)
}

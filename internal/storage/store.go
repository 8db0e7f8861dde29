// Package storage persists completed runs: one directory per run holding
// metadata.json and result.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pksim/pksim/internal/assemble"
	"github.com/pksim/pksim/internal/table"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string    `json:"id"`
	Model       string    `json:"model"`
	Integrator  string    `json:"integrator"`
	Timestamp   time.Time `json:"timestamp"`
	Individuals int       `json:"individuals"`
	Rows        int       `json:"rows"`
	Warnings    []string  `json:"warnings,omitempty"`
	Failures    []string  `json:"failures,omitempty"`
}

func (s *Store) Save(model, integrator string, res *assemble.Result) (string, error) {
	runID := fmt.Sprintf("%s_%d", model, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Model:       model,
		Integrator:  integrator,
		Timestamp:   time.Now(),
		Individuals: len(res.Diagnostics),
		Rows:        res.Table.Len(),
		Warnings:    res.Warnings,
	}
	for _, d := range res.Diagnostics {
		if d.Err != nil {
			meta.Failures = append(meta.Failures, d.Err.Error())
		}
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := res.Table.SaveCSV(filepath.Join(runDir, "result.csv")); err != nil {
		return "", err
	}

	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadTable reads a saved result.csv back into a table.
func (s *Store) LoadTable(runID string) (*table.Table, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "result.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("storage: empty result for run %s", runID)
	}

	header := records[0]
	tbl := table.New(header[1:])
	for _, record := range records[1:] {
		row := table.Row{ID: record[0], Values: make([]float64, 0, len(record)-1)}
		for _, field := range record[1:] {
			if field == "NA" {
				row.Values = append(row.Values, math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: bad cell %q in run %s", field, runID)
			}
			row.Values = append(row.Values, v)
		}
		if err := tbl.Append(row); err != nil {
			return nil, err
		}
	}

	return tbl, nil
}

// Package report writes chain results to disk.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/contactkeval/lets-be-rational/internal/chain"
)

// File names written into the report directory.
const (
	JSONFile = "ivs.json"
	CSVFile  = "ivs.csv"
)

// WriteJSON writes the whole result, summary included, as indented JSON.
func WriteJSON(res *chain.Result, outdir string) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(filepath.Join(outdir, JSONFile), b, 0644)
}

// WriteCSV writes one line per row under a header of the csv tags of chain.Row.
func WriteCSV(rows []chain.Row, outdir string) error {
	f, err := os.Create(filepath.Join(outdir, CSVFile))
	if err != nil {
		return err
	}
	defer f.Close()

	if err := gocsv.Marshal(rows, f); err != nil {
		return fmt.Errorf("write %s: %w", CSVFile, err)
	}
	return f.Close()
}

// Write creates outdir if needed and writes both reports.
func Write(res *chain.Result, outdir string) error {
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return fmt.Errorf("create report dir %s: %w", outdir, err)
	}
	if err := WriteJSON(res, outdir); err != nil {
		return fmt.Errorf("write %s: %w", JSONFile, err)
	}
	return WriteCSV(res.Rows, outdir)
}

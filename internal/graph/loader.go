package graph

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/kusuri/internal/models"
)

// LoadReport summarizes a bulk load: how many rows became edges and how many
// were dropped for missing fields.
type LoadReport struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// columnLayout maps the tolerated header spellings to column positions.
// Source exports disagree on underscores (drug1 vs drug_1), so both are
// accepted.
type columnLayout struct {
	drug1, drug2, condition int
}

func detectColumns(header []string) (columnLayout, error) {
	layout := columnLayout{drug1: -1, drug2: -1, condition: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "drug1", "drug_1":
			layout.drug1 = i
		case "drug2", "drug_2":
			layout.drug2 = i
		case "condition":
			layout.condition = i
		}
	}
	if layout.drug1 < 0 || layout.drug2 < 0 || layout.condition < 0 {
		return layout, fmt.Errorf("header must contain drug1/drug_1, drug2/drug_2 and condition columns, got %v", header)
	}
	return layout, nil
}

func (g *Graph) loadRows(rows [][]string, layout columnLayout) LoadReport {
	var report LoadReport
	for _, row := range rows {
		if layout.drug1 >= len(row) || layout.drug2 >= len(row) || layout.condition >= len(row) {
			report.Skipped++
			continue
		}
		d1 := strings.TrimSpace(row[layout.drug1])
		d2 := strings.TrimSpace(row[layout.drug2])
		cond := strings.TrimSpace(row[layout.condition])
		if d1 == "" || d2 == "" || cond == "" {
			report.Skipped++
			continue
		}
		if err := g.Upsert(d1, d2, cond); err != nil {
			report.Skipped++
			continue
		}
		report.Loaded++
	}
	return report
}

// LoadCSV bulk-loads interactions from a CSV file with a header row. Rows
// missing any field are counted as skipped rather than aborting the load.
func (g *Graph) LoadCSV(path string) (LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadReport{}, fmt.Errorf("failed to open CSV: %w", err)
	}
	defer f.Close()
	return g.loadCSVReader(f)
}

func (g *Graph) loadCSVReader(r io.Reader) (LoadReport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate ragged rows, count them as skipped
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return LoadReport{}, fmt.Errorf("failed to read CSV header: %w", err)
	}
	layout, err := detectColumns(header)
	if err != nil {
		return LoadReport{}, err
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return LoadReport{}, fmt.Errorf("failed to read CSV rows: %w", err)
	}
	return g.loadRows(rows, layout), nil
}

// LoadJSON bulk-loads interactions from a JSON array of records.
func (g *Graph) LoadJSON(path string) (LoadReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadReport{}, fmt.Errorf("failed to read JSON: %w", err)
	}

	var records []models.InteractionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return LoadReport{}, fmt.Errorf("failed to parse JSON: %w", err)
	}

	var report LoadReport
	for _, rec := range records {
		d1 := strings.TrimSpace(rec.Drug1)
		d2 := strings.TrimSpace(rec.Drug2)
		cond := strings.TrimSpace(rec.Condition)
		if d1 == "" || d2 == "" || cond == "" {
			report.Skipped++
			continue
		}
		if err := g.Upsert(d1, d2, cond); err != nil {
			report.Skipped++
			continue
		}
		report.Loaded++
	}
	return report, nil
}

// LoadXLSX bulk-loads interactions from the first sheet of an Excel workbook.
// The first row is treated as the header.
func (g *Graph) LoadXLSX(path string) (LoadReport, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return LoadReport{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return LoadReport{}, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return LoadReport{}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return LoadReport{}, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	layout, err := detectColumns(rows[0])
	if err != nil {
		return LoadReport{}, err
	}
	return g.loadRows(rows[1:], layout), nil
}

// LoadFile dispatches on file extension: .csv, .json, .xlsx.
func (g *Graph) LoadFile(path string) (LoadReport, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".csv"):
		return g.LoadCSV(path)
	case strings.HasSuffix(strings.ToLower(path), ".json"):
		return g.LoadJSON(path)
	case strings.HasSuffix(strings.ToLower(path), ".xlsx"):
		return g.LoadXLSX(path)
	default:
		return LoadReport{}, fmt.Errorf("unsupported data file %q (want .csv, .json or .xlsx)", path)
	}
}

// Package datasource reads the tabular inputs the pipeline consumes: corpus
// CSVs from local disk or GCS, and the recipient list for email delivery.
package datasource

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

type CSVResult struct {
	Headers []string
	Rows    [][]string
}

func parseCSV(r io.Reader) (*CSVResult, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	var rows [][]string
	for {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		rows = append(rows, row)
	}

	return &CSVResult{
		Headers: headers,
		Rows:    rows,
	}, nil
}

func ReadCSVFile(path string) (*CSVResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()
	return parseCSV(f)
}

// ExtractColumn pulls a single named column out of a parsed CSV.
func ExtractColumn(result *CSVResult, columnName string) ([]string, error) {
	columnIndex := -1
	for i, header := range result.Headers {
		if header == columnName {
			columnIndex = i
			break
		}
	}

	if columnIndex == -1 {
		return nil, fmt.Errorf("column '%s' not found in CSV headers: %v", columnName, result.Headers)
	}

	values := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		if columnIndex < len(row) {
			values = append(values, row[columnIndex])
		}
	}

	return values, nil
}

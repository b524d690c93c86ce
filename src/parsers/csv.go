package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadRecords decodes a delimited file with a header row into one
// column-name→value map per data row. Short rows are padded implicitly by
// being absent from the map; extra cells are dropped.
func ReadRecords(file io.Reader) (headers []string, records []map[string]string, err error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	headers, err = reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV records: %w", err)
	}

	for _, row := range rows {
		record := make(map[string]string, len(headers))
		for i, col := range headers {
			if i < len(row) {
				record[col] = row[i]
			}
		}
		records = append(records, record)
	}
	return headers, records, nil
}

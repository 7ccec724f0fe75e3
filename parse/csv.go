package parse

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	ragerr "github.com/vinayprograms/ragmesh/errors"
)

const csvSampleRows = 5

// parseCSV summarizes a CSV file into three named sections: the header
// row, row/column counts, and the first few rows of data. The full table
// is never embedded; summaries retrieve better than raw rows.
func (p *Parser) parseCSV(path string) (*Document, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeParse, fmt.Sprintf("parse csv %s", path))
	}
	if len(records) == 0 {
		return nil, ragerr.Newf(ragerr.CodeParse, "empty csv file: %s", path)
	}

	headers := records[0]
	rows := records[1:]

	sections := []Section{
		{
			Locator: "headers",
			Content: "CSV Headers: " + strings.Join(headers, ", "),
		},
		{
			Locator: "summary",
			Content: fmt.Sprintf("Total rows: %d, Total columns: %d", len(rows), len(headers)),
		},
	}

	sample := rows
	if len(sample) > csvSampleRows {
		sample = sample[:csvSampleRows]
	}
	var b strings.Builder
	b.WriteString("Sample data:\n")
	b.WriteString(strings.Join(headers, " | "))
	for _, row := range sample {
		b.WriteByte('\n')
		b.WriteString(strings.Join(row, " | "))
	}
	sections = append(sections, Section{Locator: "sample_data", Content: b.String()})

	columns := make([]any, len(headers))
	for i, h := range headers {
		columns[i] = h
	}

	return &Document{
		Type:     "csv",
		Sections: sections,
		Metadata: map[string]any{
			"file_path":     path,
			"columns":       columns,
			"total_rows":    len(rows),
			"total_columns": len(headers),
		},
	}, nil
}

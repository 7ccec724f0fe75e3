// Package parse turns source documents into ordered sections of plain
// text ready for chunking and embedding. Parsers are selected by the
// declared file type, not by sniffing content.
package parse

import (
	"fmt"
	"os"
	"strings"

	ragerr "github.com/vinayprograms/ragmesh/errors"
)

// Section is one addressable span of a parsed document. Locator
// identifies where the span came from: a 1-based paragraph number for
// plain text, a heading title for markdown, a named region for CSV.
type Section struct {
	Locator any    `json:"locator"`
	Content string `json:"content"`
}

// Document is the parsed form of one source file.
type Document struct {
	Type     string         `json:"type"`
	Sections []Section      `json:"sections"`
	Metadata map[string]any `json:"metadata"`
}

// Parser dispatches to a type-specific parser. The zero value is ready
// to use.
type Parser struct{}

// New creates a parser.
func New() *Parser {
	return &Parser{}
}

// Parse reads and parses the file at path according to fileType.
// Supported types are "txt", "md" and "csv". Anything else fails with a
// PARSE_FAILED error.
func (p *Parser) Parse(path, fileType string) (*Document, error) {
	switch strings.ToLower(fileType) {
	case "txt":
		return p.parseText(path)
	case "md", "markdown":
		return p.parseMarkdown(path)
	case "csv":
		return p.parseCSV(path)
	default:
		return nil, ragerr.Newf(ragerr.CodeParse, "unsupported file type: %s", fileType)
	}
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeParse, fmt.Sprintf("read %s", path))
	}
	return data, nil
}

// parseText splits the file into paragraphs on blank lines. Locators
// are 1-based paragraph numbers.
func (p *Parser) parseText(path string) (*Document, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	var sections []Section
	for _, para := range splitParagraphs(string(data)) {
		sections = append(sections, Section{Locator: len(sections) + 1, Content: para})
	}

	return &Document{
		Type:     "text",
		Sections: sections,
		Metadata: map[string]any{"file_path": path},
	}, nil
}

// splitParagraphs breaks text on blank lines, trimming each paragraph
// and dropping empty ones. Windows line endings are normalized first.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para != "" {
			out = append(out, para)
		}
	}
	return out
}

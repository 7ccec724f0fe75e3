package parse

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
)

// parseMarkdown walks the goldmark AST and groups top-level blocks into
// sections delimited by headings. The section locator is the heading
// title; content before the first heading gets the locator "preamble".
func (p *Parser) parseMarkdown(path string) (*Document, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	root := md.Parser().Parse(gtext.NewReader(data))

	var (
		sections []Section
		locator  any = "preamble"
		buf      strings.Builder
	)
	flush := func() {
		content := strings.TrimSpace(buf.String())
		buf.Reset()
		if content != "" {
			sections = append(sections, Section{Locator: locator, Content: content})
		}
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			flush()
			locator = nodeText(h, data)
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(nodeText(n, data))
	}
	flush()

	return &Document{
		Type:     "markdown",
		Sections: sections,
		Metadata: map[string]any{"file_path": path},
	}, nil
}

// nodeText collects the raw text of every text leaf under n.
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.CodeBlock:
			writeLines(&buf, t, source)
		case *ast.FencedCodeBlock:
			writeLines(&buf, t, source)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

func writeLines(buf *bytes.Buffer, n ast.Node, source []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
}

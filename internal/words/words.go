// Package words provides the word counting applied to every trial response.
// The same counting function is used regardless of which model produced the
// text; switching tokenization per model would invalidate cross-model
// comparison.
package words

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Count returns the number of whitespace-separated words in s.
func Count(s string) int {
	return len(strings.Fields(s))
}

// HasMarkdownStructure reports whether s contains markdown block structure
// such as headings, lists, code fences or block quotes. Formatting markers
// count as words under Count, so structured responses tend to skew the
// measurement; trials record this as an informational flag.
func HasMarkdownStructure(s string) bool {
	md := goldmark.New()
	reader := text.NewReader([]byte(s))
	doc := md.Parser().Parse(reader)

	found := false
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading, ast.KindList, ast.KindFencedCodeBlock,
			ast.KindCodeBlock, ast.KindBlockquote, ast.KindThematicBreak:
			found = true
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	return found
}

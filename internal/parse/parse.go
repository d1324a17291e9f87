// Package parse turns source text into a syntax tree using tree-sitter.
package parse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/jssuggest/internal/lang"
	"github.com/phobologic/jssuggest/internal/syntax"
)

// ErrSyntax is matched by every ParseError.
var ErrSyntax = errors.New("syntax error")

// ParseError reports source text that the grammar or the selected
// ecmaVersion does not accept.
type ParseError struct {
	Line   int // 1-based
	Column int // 0-based byte offset
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (%d:%d)", e.Msg, e.Line, e.Column)
}

// Unwrap lets callers test for any parse failure with errors.Is(err, ErrSyntax).
func (e *ParseError) Unwrap() error {
	return ErrSyntax
}

// Parse parses source as the given language under version. A nil language
// selects the default (javascript).
func Parse(ctx context.Context, l *lang.Language, source []byte, version ECMAVersion) (*syntax.Program, error) {
	if l == nil {
		var err error
		if l, err = lang.Lookup(""); err != nil {
			return nil, err
		}
	}
	return Tree(ctx, l.NewParser(), source, version)
}

// Tree parses source with parser and converts the result. The parser must be
// created for the correct language and must not be shared between goroutines.
// A zero version selects DefaultECMAVersion.
func Tree(ctx context.Context, parser *sitter.Parser, source []byte, version ECMAVersion) (*syntax.Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}
	if version == 0 {
		version = DefaultECMAVersion
	}
	if !utf8.Valid(source) {
		return nil, &ParseError{Line: 1, Msg: "source is not valid UTF-8"}
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(root, source)
	}
	if err := checkVersion(root, source, version); err != nil {
		return nil, err
	}
	if err := checkEarly(root, source); err != nil {
		return nil, err
	}

	c := converter{source: source}
	return c.program(root), nil
}

// syntaxError locates the first ERROR or MISSING node under root.
func syntaxError(root *sitter.Node, source []byte) error {
	bad := findError(root)
	if bad == nil {
		return &ParseError{Line: 1, Msg: "syntax error"}
	}

	p := bad.StartPoint()
	pe := &ParseError{Line: int(p.Row) + 1, Column: int(p.Column)}
	if bad.IsMissing() {
		pe.Msg = fmt.Sprintf("missing %q", bad.Type())
	} else {
		pe.Msg = fmt.Sprintf("unexpected %q", snippet(lang.NodeText(bad, source)))
	}
	return pe
}

func findError(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := findError(n.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}

func snippet(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > 20 {
		s = string(r[:20]) + "..."
	}
	return s
}

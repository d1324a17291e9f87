// Package suggest infers coarse types for variable declarations and pairs
// them with the built-in methods available on those types.
package suggest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/jssuggest/internal/catalog"
	"github.com/phobologic/jssuggest/internal/lang"
	"github.com/phobologic/jssuggest/internal/model"
	"github.com/phobologic/jssuggest/internal/parse"
	"github.com/phobologic/jssuggest/internal/syntax"
)

// Options configures an Engine.
type Options struct {
	// Language is a registered language name; "" selects javascript.
	Language string
	// ECMAVersion is the syntax profile; zero selects parse.DefaultECMAVersion.
	ECMAVersion parse.ECMAVersion
	// Edition restricts method catalogs to members available in that
	// ECMAScript edition. Zero lists every member.
	Edition int
	// Inherited appends Object.prototype members to every catalog.
	Inherited bool
}

// Engine turns source text into a SuggestionMap. An Engine is immutable and
// safe for concurrent use; each call parses with its own tree-sitter parser
// unless one is supplied.
type Engine struct {
	lang *lang.Language
	opts Options
}

// New validates opts and returns an Engine.
func New(opts Options) (*Engine, error) {
	l, err := lang.Lookup(opts.Language)
	if err != nil {
		return nil, err
	}
	if opts.ECMAVersion == 0 {
		opts.ECMAVersion = parse.DefaultECMAVersion
	}
	if _, err := parse.NormalizeECMAVersion(int(opts.ECMAVersion)); err != nil {
		return nil, err
	}
	opts.Language = l.Name
	return &Engine{lang: l, opts: opts}, nil
}

// Options returns the engine's effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Language returns the language the engine parses.
func (e *Engine) Language() *lang.Language {
	return e.lang
}

// ForLanguage returns an engine with the same settings for another language.
func (e *Engine) ForLanguage(name string) (*Engine, error) {
	if name == e.opts.Language {
		return e, nil
	}
	opts := e.opts
	opts.Language = name
	return New(opts)
}

// Suggest parses source and collects suggestions for its declarations. A
// parse failure is returned unmodified and no map is produced.
func (e *Engine) Suggest(ctx context.Context, source []byte) (model.SuggestionMap, error) {
	return e.SuggestWith(ctx, e.lang.NewParser(), source)
}

// SuggestWith is Suggest using a caller-owned parser, which must have been
// created for the engine's language and must not be shared between goroutines.
func (e *Engine) SuggestWith(ctx context.Context, parser *sitter.Parser, source []byte) (model.SuggestionMap, error) {
	prog, err := parse.Tree(ctx, parser, source, e.opts.ECMAVersion)
	if err != nil {
		return nil, err
	}
	return e.Collect(prog), nil
}

// Collect walks root and records every simple-identifier declarator whose
// initializer type can be inferred. Later declarators overwrite earlier ones
// with the same name.
func (e *Engine) Collect(root syntax.Node) model.SuggestionMap {
	out := make(model.SuggestionMap)
	syntax.Walk(root, func(n syntax.Node) {
		d, ok := n.(*syntax.VariableDeclarator)
		if !ok {
			return
		}
		id, ok := d.ID.(*syntax.Identifier)
		if !ok {
			return
		}
		tag, ok := Infer(d.Init)
		if !ok {
			log.Debug().Str("name", id.Name).Int("line", d.Start.Line).Msg("suggest: initializer type not inferred")
			return
		}
		out[id.Name] = model.Suggestion{Type: tag, Methods: e.methods(tag)}
	})
	return out
}

func (e *Engine) methods(tag model.TypeTag) []string {
	m := catalog.MethodsFor(tag, e.opts.Edition)
	if e.opts.Inherited {
		m = catalog.WithInherited(m, e.opts.Edition)
	}
	return m
}

// Infer classifies an initializer expression. It looks at the node alone:
// nested expressions are not evaluated. The second result is false when no
// type can be inferred, including for a nil initializer.
func Infer(init syntax.Node) (model.TypeTag, bool) {
	switch n := init.(type) {
	case *syntax.ArrayExpression:
		return model.Array, true
	case *syntax.Literal:
		switch n.Value.(type) {
		case string:
			return model.String, true
		case float64:
			return model.Number, true
		case bool:
			return model.Boolean, true
		}
	case *syntax.ObjectExpression:
		return model.Object, true
	}
	return model.Unknown, false
}

var defaultEngine = func() *Engine {
	e, err := New(Options{})
	if err != nil {
		panic(fmt.Sprintf("suggest: default engine: %v", err))
	}
	return e
}()

// FromSource runs the default engine (javascript, ecmaVersion 2020, full
// catalogs) over source.
func FromSource(ctx context.Context, source string) (model.SuggestionMap, error) {
	return defaultEngine.Suggest(ctx, []byte(source))
}

// Complete answers an autocomplete query against m. A query of the form
// "name.prefix" returns the methods of name that start with prefix, in
// catalog order. A query without a dot returns the sorted variable names
// that start with it.
func Complete(m model.SuggestionMap, query string) []string {
	dot := strings.LastIndexByte(query, '.')
	if dot < 0 {
		var names []string
		for name := range m {
			if strings.HasPrefix(name, query) {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		return names
	}

	s, ok := m[query[:dot]]
	if !ok {
		return nil
	}
	prefix := query[dot+1:]
	var out []string
	for _, method := range s.Methods {
		if strings.HasPrefix(method, prefix) {
			out = append(out, method)
		}
	}
	return out
}

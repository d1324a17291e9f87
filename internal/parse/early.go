package parse

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/jssuggest/internal/lang"
)

// scope holds the names bound directly in one block, function or program.
type scope struct {
	lexical   map[string]bool
	vars      map[string]bool
	functions map[string]bool

	// varScope marks the scope var declarations hoist to.
	varScope bool
	// hoistFuncs makes function declarations behave like var, as they do at
	// the top level of a script or function body.
	hoistFuncs bool
	// simpleCatch is the identifier parameter of a catch clause, which a
	// var in the clause body may redeclare.
	simpleCatch string
}

// earlyChecker reports the static errors a conforming parser raises before
// evaluation and that the grammar accepts: redeclared bindings, const
// without an initializer, return outside a function, let as a lexical name
// and legacy octal bigints.
type earlyChecker struct {
	source []byte
	scopes []*scope
	funcs  int
}

func checkEarly(root *sitter.Node, source []byte) error {
	c := &earlyChecker{source: source}
	c.push(true, true)
	return c.children(root)
}

func (c *earlyChecker) push(varScope, hoistFuncs bool) *scope {
	s := &scope{
		lexical:    make(map[string]bool),
		vars:       make(map[string]bool),
		functions:  make(map[string]bool),
		varScope:   varScope,
		hoistFuncs: hoistFuncs,
	}
	c.scopes = append(c.scopes, s)
	return s
}

func (c *earlyChecker) pop() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *earlyChecker) top() *scope {
	return c.scopes[len(c.scopes)-1]
}

func (c *earlyChecker) fail(n *sitter.Node, format string, args ...any) error {
	p := n.StartPoint()
	return &ParseError{Line: int(p.Row) + 1, Column: int(p.Column), Msg: fmt.Sprintf(format, args...)}
}

func (c *earlyChecker) children(n *sitter.Node) error {
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil {
			if err := c.visit(child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *earlyChecker) visit(n *sitter.Node) error {
	switch n.Type() {
	case "ambient_declaration":
		// TypeScript declarations have no runtime bindings.
		return nil

	case "function_declaration", "generator_function_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			if err := c.declareFunction(name); err != nil {
				return err
			}
		}
		return c.function(n)

	case "function_expression", "function", "generator_function", "arrow_function", "method_definition":
		// The function keyword token shares its type with the named node.
		if n.IsNamed() {
			return c.function(n)
		}
		return nil

	case "class_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			if err := c.declareLexical(name); err != nil {
				return err
			}
		}
		return c.children(n)

	case "class_static_block":
		c.push(true, false)
		defer c.pop()
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child == nil {
				continue
			}
			var err error
			if child.Type() == "statement_block" {
				err = c.children(child)
			} else {
				err = c.visit(child)
			}
			if err != nil {
				return err
			}
		}
		return nil

	case "statement_block", "switch_body", "for_statement":
		c.push(false, false)
		defer c.pop()
		return c.children(n)

	case "for_in_statement":
		c.push(false, false)
		defer c.pop()
		if err := c.forHead(n); err != nil {
			return err
		}
		return c.children(n)

	case "catch_clause":
		s := c.push(false, false)
		defer c.pop()
		if param := n.ChildByFieldName("parameter"); param != nil {
			if param.Type() == "identifier" {
				name := lang.NodeText(param, c.source)
				s.simpleCatch = name
				s.lexical[name] = true
			} else if err := c.declareAll(param, c.declareLexical); err != nil {
				return err
			}
			if err := c.visit(param); err != nil {
				return err
			}
		}
		// The catch body shares the clause's scope.
		if body := n.ChildByFieldName("body"); body != nil {
			return c.children(body)
		}
		return nil

	case "variable_declaration":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			d := n.NamedChild(i)
			if d == nil || d.Type() != "variable_declarator" {
				continue
			}
			if err := c.declareAll(d.ChildByFieldName("name"), c.declareVar); err != nil {
				return err
			}
		}
		return c.children(n)

	case "lexical_declaration":
		isConst := n.ChildCount() > 0 && n.Child(0).Type() == "const"
		for i := 0; i < int(n.NamedChildCount()); i++ {
			d := n.NamedChild(i)
			if d == nil || d.Type() != "variable_declarator" {
				continue
			}
			if isConst && d.ChildByFieldName("value") == nil {
				return c.fail(d, "missing initializer in const declaration")
			}
			if err := c.declareAll(d.ChildByFieldName("name"), c.declareLexical); err != nil {
				return err
			}
		}
		return c.children(n)

	case "return_statement":
		if c.funcs == 0 {
			return c.fail(n, "'return' outside of function")
		}

	case "number":
		if isLegacyOctalBigInt(lang.NodeText(n, c.source)) {
			return c.fail(n, "invalid bigint literal %q", lang.NodeText(n, c.source))
		}
		return nil
	}
	return c.children(n)
}

// function checks a function's parameters and body in a fresh var scope.
// The body block is that scope, not a nested one.
func (c *earlyChecker) function(n *sitter.Node) error {
	c.funcs++
	c.push(true, true)
	defer func() {
		c.pop()
		c.funcs--
	}()

	params := n.ChildByFieldName("parameters")
	if params == nil {
		params = n.ChildByFieldName("parameter")
	}
	if params != nil {
		if err := c.declareAll(params, c.declareVar); err != nil {
			return err
		}
		if err := c.visit(params); err != nil {
			return err
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	if body.Type() == "statement_block" {
		return c.children(body)
	}
	return c.visit(body)
}

// forHead binds the declaration in a for-in or for-of head.
func (c *earlyChecker) forHead(n *sitter.Node) error {
	left := n.ChildByFieldName("left")
	if left == nil {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "var":
			return c.declareAll(left, c.declareVar)
		case "let", "const":
			return c.declareAll(left, c.declareLexical)
		}
	}
	return nil
}

func (c *earlyChecker) declareAll(pattern *sitter.Node, declare func(*sitter.Node) error) error {
	for _, id := range bindingNames(pattern) {
		if err := declare(id); err != nil {
			return err
		}
	}
	return nil
}

func (c *earlyChecker) declareLexical(id *sitter.Node) error {
	name := lang.NodeText(id, c.source)
	if name == "let" {
		return c.fail(id, "let is disallowed as a lexically bound name")
	}
	s := c.top()
	if s.lexical[name] || s.vars[name] || s.functions[name] {
		return c.redeclared(id, name)
	}
	s.lexical[name] = true
	return nil
}

func (c *earlyChecker) declareFunction(id *sitter.Node) error {
	name := lang.NodeText(id, c.source)
	s := c.top()
	clash := s.lexical[name]
	if !s.hoistFuncs {
		clash = clash || s.vars[name]
	}
	if clash {
		return c.redeclared(id, name)
	}
	s.functions[name] = true
	return nil
}

// declareVar records name in every scope up to the nearest var scope, so a
// later let or const in any of them clashes with it.
func (c *earlyChecker) declareVar(id *sitter.Node) error {
	name := lang.NodeText(id, c.source)
	for i := len(c.scopes) - 1; i >= 0; i-- {
		s := c.scopes[i]
		if (s.lexical[name] && s.simpleCatch != name) || (!s.hoistFuncs && s.functions[name]) {
			return c.redeclared(id, name)
		}
		s.vars[name] = true
		if s.varScope {
			break
		}
	}
	return nil
}

func (c *earlyChecker) redeclared(id *sitter.Node, name string) error {
	return c.fail(id, "identifier %q has already been declared", name)
}

// bindingNames returns the identifiers a declaration target binds, skipping
// default values, computed keys and type annotations.
func bindingNames(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		return []*sitter.Node{n}
	case "pair_pattern":
		return bindingNames(n.ChildByFieldName("value"))
	case "assignment_pattern", "object_assignment_pattern":
		return bindingNames(n.ChildByFieldName("left"))
	case "required_parameter", "optional_parameter":
		return bindingNames(n.ChildByFieldName("pattern"))
	case "object_pattern", "array_pattern", "rest_pattern", "formal_parameters":
		var out []*sitter.Node
		for i := 0; i < int(n.NamedChildCount()); i++ {
			out = append(out, bindingNames(n.NamedChild(i))...)
		}
		return out
	}
	return nil
}

// isLegacyOctalBigInt matches 0-prefixed decimal literals such as 08n, which
// cannot carry the bigint suffix.
func isLegacyOctalBigInt(text string) bool {
	return len(text) > 2 && text[0] == '0' && text[1] >= '0' && text[1] <= '9' && text[len(text)-1] == 'n'
}

package parse

import (
	"math/big"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/jssuggest/internal/lang"
	"github.com/phobologic/jssuggest/internal/syntax"
)

// converter maps tree-sitter nodes onto the syntax package's node set.
// Semantic children are the named children of a node; anonymous tokens and
// comments are dropped.
type converter struct {
	source []byte
}

func (c *converter) program(root *sitter.Node) *syntax.Program {
	return &syntax.Program{Loc: c.loc(root), Body: c.convertAll(c.named(root))}
}

func (c *converter) loc(n *sitter.Node) syntax.Loc {
	s, e := n.StartPoint(), n.EndPoint()
	return syntax.Loc{
		Start: syntax.Pos{Line: int(s.Row) + 1, Column: int(s.Column)},
		End:   syntax.Pos{Line: int(e.Row) + 1, Column: int(e.Column)},
	}
}

func (c *converter) text(n *sitter.Node) string {
	return lang.NodeText(n, c.source)
}

// named returns the named, non-comment children of n.
func (c *converter) named(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.IsExtra() || child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

func (c *converter) convertAll(nodes []*sitter.Node) []syntax.Node {
	var out []syntax.Node
	for _, n := range nodes {
		if sn := c.convert(n); sn != nil {
			out = append(out, sn)
		}
	}
	return out
}

// first converts the first named child of n, if any.
func (c *converter) first(n *sitter.Node) syntax.Node {
	kids := c.named(n)
	if len(kids) == 0 {
		return nil
	}
	return c.convert(kids[0])
}

func (c *converter) field(n *sitter.Node, name string) syntax.Node {
	return c.convert(n.ChildByFieldName(name))
}

// convert returns nil for a nil node so callers can assign the result to an
// interface field without creating a typed nil.
func (c *converter) convert(n *sitter.Node) syntax.Node {
	if n == nil {
		return nil
	}
	loc := c.loc(n)

	switch n.Type() {
	case "program":
		return c.program(n)

	case "statement_block":
		return &syntax.BlockStatement{Loc: loc, Body: c.convertAll(c.named(n))}

	case "expression_statement":
		return &syntax.ExpressionStatement{Loc: loc, Expression: c.first(n)}

	case "variable_declaration", "lexical_declaration", "using_declaration":
		return c.declaration(n)

	case "variable_declarator":
		return c.declarator(n)

	case "identifier", "property_identifier", "shorthand_property_identifier",
		"shorthand_property_identifier_pattern", "private_property_identifier",
		"statement_identifier", "undefined":
		return c.identifier(n)

	case "string":
		raw := c.text(n)
		return &syntax.Literal{Loc: loc, Raw: raw, Value: decodeString(raw)}

	case "number":
		raw := c.text(n)
		return &syntax.Literal{Loc: loc, Raw: raw, Value: numberValue(raw)}

	case "true", "false":
		return &syntax.Literal{Loc: loc, Raw: c.text(n), Value: n.Type() == "true"}

	case "null":
		return &syntax.Literal{Loc: loc, Raw: "null"}

	case "regex":
		re := syntax.RegExp{}
		if p := n.ChildByFieldName("pattern"); p != nil {
			re.Pattern = c.text(p)
		}
		if f := n.ChildByFieldName("flags"); f != nil {
			re.Flags = c.text(f)
		}
		return &syntax.Literal{Loc: loc, Raw: c.text(n), Value: re}

	case "template_string":
		return c.template(n)

	case "array":
		return &syntax.ArrayExpression{Loc: loc, Elements: c.convertAll(c.named(n))}

	case "object":
		return &syntax.ObjectExpression{Loc: loc, Properties: c.properties(n)}

	case "object_pattern":
		return &syntax.ObjectPattern{Loc: loc, Properties: c.properties(n)}

	case "array_pattern":
		return &syntax.ArrayPattern{Loc: loc, Elements: c.convertAll(c.named(n))}

	case "assignment_pattern":
		return &syntax.AssignmentPattern{Loc: loc, Left: c.field(n, "left"), Right: c.field(n, "right")}

	case "rest_pattern":
		return &syntax.RestElement{Loc: loc, Argument: c.first(n)}

	case "spread_element":
		return &syntax.SpreadElement{Loc: loc, Argument: c.first(n)}

	case "function_declaration", "generator_function_declaration":
		return c.function(n, syntax.FuncDeclaration)

	case "function", "function_expression", "generator_function":
		return c.function(n, syntax.FuncExpression)

	case "arrow_function":
		return c.function(n, syntax.FuncArrow)

	case "method_definition":
		return c.function(n, syntax.FuncMethod)

	case "class_declaration", "class":
		return c.class(n)

	case "call_expression":
		return &syntax.CallExpression{
			Loc:       loc,
			Callee:    c.field(n, "function"),
			Arguments: c.convertAll(c.named(n.ChildByFieldName("arguments"))),
			Optional:  c.optional(n),
		}

	case "new_expression":
		return &syntax.CallExpression{
			Loc:       loc,
			Callee:    c.field(n, "constructor"),
			Arguments: c.convertAll(c.named(n.ChildByFieldName("arguments"))),
			New:       true,
		}

	case "member_expression":
		return &syntax.MemberExpression{
			Loc:      loc,
			Object:   c.field(n, "object"),
			Property: c.field(n, "property"),
			Optional: c.optional(n),
		}

	case "subscript_expression":
		return &syntax.MemberExpression{
			Loc:      loc,
			Object:   c.field(n, "object"),
			Property: c.field(n, "index"),
			Computed: true,
			Optional: c.optional(n),
		}

	case "parenthesized_expression":
		// ESTree has no node for parentheses.
		if kids := c.named(n); len(kids) == 1 {
			return c.convert(kids[0])
		}
	}

	return &syntax.Generic{Loc: loc, Type: n.Type(), Children: c.convertAll(c.named(n))}
}

func (c *converter) identifier(n *sitter.Node) *syntax.Identifier {
	return &syntax.Identifier{Loc: c.loc(n), Name: c.text(n)}
}

func (c *converter) declaration(n *sitter.Node) *syntax.VariableDeclaration {
	decl := &syntax.VariableDeclaration{Loc: c.loc(n), Kind: syntax.Var}
	if n.Type() != "variable_declaration" {
		kw := n.ChildByFieldName("kind")
		if kw == nil && n.ChildCount() > 0 {
			kw = n.Child(0)
		}
		if kw != nil {
			decl.Kind = syntax.DeclKind(c.text(kw))
		}
	}
	for _, child := range c.named(n) {
		if child.Type() == "variable_declarator" {
			decl.Declarations = append(decl.Declarations, c.declarator(child))
		}
	}
	return decl
}

func (c *converter) declarator(n *sitter.Node) *syntax.VariableDeclarator {
	return &syntax.VariableDeclarator{
		Loc:  c.loc(n),
		ID:   c.field(n, "name"),
		Init: c.field(n, "value"),
	}
}

func (c *converter) template(n *sitter.Node) *syntax.TemplateLiteral {
	t := &syntax.TemplateLiteral{Loc: c.loc(n)}
	for _, child := range c.named(n) {
		switch child.Type() {
		case "template_substitution":
			if e := c.first(child); e != nil {
				t.Expressions = append(t.Expressions, e)
			}
		case "string_fragment":
			t.Quasis = append(t.Quasis, c.text(child))
		}
	}
	return t
}

// properties converts the entries of an object literal or object pattern.
func (c *converter) properties(n *sitter.Node) []syntax.Node {
	var props []syntax.Node
	for _, child := range c.named(n) {
		loc := c.loc(child)
		switch child.Type() {
		case "pair", "pair_pattern":
			key := child.ChildByFieldName("key")
			p := &syntax.Property{Loc: loc, Value: c.field(child, "value")}
			if key != nil && key.Type() == "computed_property_name" {
				p.Computed = true
				p.Key = c.first(key)
			} else {
				p.Key = c.convert(key)
			}
			props = append(props, p)

		case "shorthand_property_identifier", "shorthand_property_identifier_pattern":
			props = append(props, &syntax.Property{
				Loc:       loc,
				Key:       c.identifier(child),
				Value:     c.identifier(child),
				Shorthand: true,
			})

		case "object_assignment_pattern":
			left := child.ChildByFieldName("left")
			props = append(props, &syntax.Property{
				Loc: loc,
				Key: c.convert(left),
				Value: &syntax.AssignmentPattern{
					Loc:   loc,
					Left:  c.convert(left),
					Right: c.field(child, "right"),
				},
				Shorthand: true,
			})

		case "method_definition":
			fn := c.function(child, syntax.FuncMethod)
			props = append(props, &syntax.Property{Loc: loc, Key: c.field(child, "name"), Value: fn})

		case "rest_pattern":
			props = append(props, &syntax.RestElement{Loc: loc, Argument: c.first(child)})

		default:
			if sn := c.convert(child); sn != nil {
				props = append(props, sn)
			}
		}
	}
	return props
}

func (c *converter) function(n *sitter.Node, kind syntax.FuncKind) *syntax.Function {
	fn := &syntax.Function{Loc: c.loc(n), Kind: kind}
	if name := n.ChildByFieldName("name"); name != nil && kind != syntax.FuncMethod {
		fn.ID = c.identifier(name)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		fn.Params = c.convertAll(c.named(params))
	} else if param := n.ChildByFieldName("parameter"); param != nil {
		fn.Params = []syntax.Node{c.convert(param)}
	}
	fn.Body = c.field(n, "body")

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || child.IsNamed() {
			continue
		}
		switch child.Type() {
		case "async":
			fn.Async = true
		case "*":
			fn.Generator = true
		}
	}
	if t := n.Type(); t == "generator_function" || t == "generator_function_declaration" {
		fn.Generator = true
	}
	return fn
}

func (c *converter) class(n *sitter.Node) *syntax.Class {
	cls := &syntax.Class{Loc: c.loc(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		cls.ID = c.identifier(name)
	}
	for _, child := range c.named(n) {
		switch child.Type() {
		case "class_heritage":
			cls.SuperClass = c.first(child)
		case "class_body":
			cls.Body = c.convertAll(c.named(child))
		}
	}
	return cls
}

// optional reports whether a call or member expression uses "?.".
func (c *converter) optional(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if t := child.Type(); t == "optional_chain" || t == "?." {
			return true
		}
	}
	return false
}

// decodeString returns the value of a quoted string literal.
func decodeString(raw string) string {
	if len(raw) < 2 {
		return ""
	}
	body := raw[1 : len(raw)-1]
	if !strings.Contains(body, `\`) {
		return body
	}

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch != '\\' || i+1 >= len(body) {
			b.WriteByte(ch)
			continue
		}
		i++
		switch e := body[i]; e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case 'x':
			if r, ok := hexRune(body, i+1, 2); ok {
				b.WriteRune(r)
				i += 2
			} else {
				b.WriteByte(e)
			}
		case 'u':
			if i+1 < len(body) && body[i+1] == '{' {
				end := strings.IndexByte(body[i:], '}')
				if end > 2 {
					if r, ok := hexRune(body, i+2, end-2); ok {
						b.WriteRune(r)
						i += end
						continue
					}
				}
				b.WriteByte(e)
			} else if r, ok := hexRune(body, i+1, 4); ok {
				b.WriteRune(r)
				i += 4
			} else {
				b.WriteByte(e)
			}
		case '\r':
			// Line continuation; swallow a following \n too.
			if i+1 < len(body) && body[i+1] == '\n' {
				i++
			}
		case '\n':
		default:
			b.WriteByte(e)
		}
	}
	return b.String()
}

func hexRune(s string, start, n int) (rune, bool) {
	if start+n > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[start:start+n], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}

// numberValue returns a float64 for numeric literals and a *big.Int for
// bigint literals.
func numberValue(raw string) any {
	s := strings.ReplaceAll(raw, "_", "")
	if strings.HasSuffix(s, "n") {
		v, ok := new(big.Int).SetString(s[:len(s)-1], 0)
		if !ok {
			return new(big.Int)
		}
		return v
	}

	lower := strings.ToLower(s)
	base := 0
	switch {
	case strings.HasPrefix(lower, "0x"):
		base = 16
	case strings.HasPrefix(lower, "0o"):
		base = 8
	case strings.HasPrefix(lower, "0b"):
		base = 2
	}
	if base != 0 {
		u, err := strconv.ParseUint(lower[2:], base, 64)
		if err != nil {
			f, _ := new(big.Float).SetString(s)
			if f == nil {
				return 0.0
			}
			v, _ := f.Float64()
			return v
		}
		return float64(u)
	}
	if len(s) > 1 && s[0] == '0' && strings.Trim(s, "01234567") == "" {
		// Legacy octal.
		if u, err := strconv.ParseUint(s[1:], 8, 64); err == nil {
			return float64(u)
		}
	}

	f, _ := strconv.ParseFloat(s, 64)
	return f
}

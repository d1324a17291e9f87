// Package syntax defines the ESTree-shaped syntax tree produced by the parse
// package and a pre-order walker over it.
//
// The node set is closed: every node type declares its child fields
// explicitly, and Walk descends into exactly those fields. Source positions
// are metadata and are never visited.
package syntax

// Pos is a source position. Line is 1-based, Column is a 0-based byte offset
// within the line.
type Pos struct {
	Line   int
	Column int
}

// Loc is the source range covered by a node.
type Loc struct {
	Start Pos
	End   Pos
}

// Range returns the node's source range.
func (l Loc) Range() Loc { return l }

// Node is implemented by every syntax tree node type in this package.
type Node interface {
	Range() Loc
	isNode()
}

// DeclKind is the keyword that introduced a variable declaration.
type DeclKind string

const (
	Var   DeclKind = "var"
	Let   DeclKind = "let"
	Const DeclKind = "const"
	Using DeclKind = "using"
)

// FuncKind distinguishes the syntactic forms of a function.
type FuncKind int

const (
	FuncDeclaration FuncKind = iota
	FuncExpression
	FuncArrow
	FuncMethod
)

// RegExp is the value of a regular expression literal.
type RegExp struct {
	Pattern string
	Flags   string
}

type (
	// Program is the root of a parsed source file.
	Program struct {
		Loc
		Body []Node
	}

	// BlockStatement is a braced list of statements.
	BlockStatement struct {
		Loc
		Body []Node
	}

	// ExpressionStatement is an expression evaluated for its effect.
	ExpressionStatement struct {
		Loc
		Expression Node
	}

	// VariableDeclaration is a var, let, const or using declaration.
	VariableDeclaration struct {
		Loc
		Kind         DeclKind
		Declarations []*VariableDeclarator
	}

	// VariableDeclarator is one binding target with its optional initializer.
	// ID is an *Identifier or a destructuring pattern. Init is nil when the
	// declarator has no initializer.
	VariableDeclarator struct {
		Loc
		ID   Node
		Init Node
	}

	// Identifier is a name reference or binding.
	Identifier struct {
		Loc
		Name string
	}

	// Literal is a primitive literal. Value holds a string, float64, bool,
	// *big.Int (bigint), RegExp, or nil for null.
	Literal struct {
		Loc
		Raw   string
		Value any
	}

	// TemplateLiteral is a backquoted template string.
	TemplateLiteral struct {
		Loc
		Quasis      []string
		Expressions []Node
	}

	// ArrayExpression is an array literal.
	ArrayExpression struct {
		Loc
		Elements []Node
	}

	// ObjectExpression is an object literal. Properties holds *Property and
	// *SpreadElement nodes.
	ObjectExpression struct {
		Loc
		Properties []Node
	}

	// Property is a key/value entry of an object literal or object pattern.
	Property struct {
		Loc
		Key       Node
		Value     Node
		Computed  bool
		Shorthand bool
	}

	// SpreadElement is "...expr" in an array, object or argument list.
	SpreadElement struct {
		Loc
		Argument Node
	}

	// ArrayPattern is an array destructuring target.
	ArrayPattern struct {
		Loc
		Elements []Node
	}

	// ObjectPattern is an object destructuring target.
	ObjectPattern struct {
		Loc
		Properties []Node
	}

	// AssignmentPattern is a binding target with a default value.
	AssignmentPattern struct {
		Loc
		Left  Node
		Right Node
	}

	// RestElement is "...target" in a pattern or parameter list.
	RestElement struct {
		Loc
		Argument Node
	}

	// Function covers declarations, expressions, arrows and methods.
	Function struct {
		Loc
		Kind      FuncKind
		ID        *Identifier
		Params    []Node
		Body      Node
		Async     bool
		Generator bool
	}

	// Class is a class declaration or expression.
	Class struct {
		Loc
		ID         *Identifier
		SuperClass Node
		Body       []Node
	}

	// CallExpression is a call or "new" expression.
	CallExpression struct {
		Loc
		Callee    Node
		Arguments []Node
		New       bool
		Optional  bool
	}

	// MemberExpression is "obj.prop" or "obj[expr]".
	MemberExpression struct {
		Loc
		Object   Node
		Property Node
		Computed bool
		Optional bool
	}

	// Generic is any construct without a dedicated node type. Type is the
	// grammar's name for it and Children its semantic sub-nodes in source
	// order.
	Generic struct {
		Loc
		Type     string
		Children []Node
	}
)

func (*Program) isNode()             {}
func (*BlockStatement) isNode()      {}
func (*ExpressionStatement) isNode() {}
func (*VariableDeclaration) isNode() {}
func (*VariableDeclarator) isNode()  {}
func (*Identifier) isNode()          {}
func (*Literal) isNode()             {}
func (*TemplateLiteral) isNode()     {}
func (*ArrayExpression) isNode()     {}
func (*ObjectExpression) isNode()    {}
func (*Property) isNode()            {}
func (*SpreadElement) isNode()       {}
func (*ArrayPattern) isNode()        {}
func (*ObjectPattern) isNode()       {}
func (*AssignmentPattern) isNode()   {}
func (*RestElement) isNode()         {}
func (*Function) isNode()            {}
func (*Class) isNode()               {}
func (*CallExpression) isNode()      {}
func (*MemberExpression) isNode()    {}
func (*Generic) isNode()             {}

// TypeName returns the ESTree type name of n, or the grammar type for
// Generic nodes.
func TypeName(n Node) string {
	switch n := n.(type) {
	case *Program:
		return "Program"
	case *BlockStatement:
		return "BlockStatement"
	case *ExpressionStatement:
		return "ExpressionStatement"
	case *VariableDeclaration:
		return "VariableDeclaration"
	case *VariableDeclarator:
		return "VariableDeclarator"
	case *Identifier:
		return "Identifier"
	case *Literal:
		return "Literal"
	case *TemplateLiteral:
		return "TemplateLiteral"
	case *ArrayExpression:
		return "ArrayExpression"
	case *ObjectExpression:
		return "ObjectExpression"
	case *Property:
		return "Property"
	case *SpreadElement:
		return "SpreadElement"
	case *ArrayPattern:
		return "ArrayPattern"
	case *ObjectPattern:
		return "ObjectPattern"
	case *AssignmentPattern:
		return "AssignmentPattern"
	case *RestElement:
		return "RestElement"
	case *Function:
		switch n.Kind {
		case FuncDeclaration:
			return "FunctionDeclaration"
		case FuncArrow:
			return "ArrowFunctionExpression"
		default:
			return "FunctionExpression"
		}
	case *Class:
		return "Class"
	case *CallExpression:
		if n.New {
			return "NewExpression"
		}
		return "CallExpression"
	case *MemberExpression:
		return "MemberExpression"
	case *Generic:
		return n.Type
	}
	return ""
}

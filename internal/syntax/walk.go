package syntax

// Walk visits root and every node reachable from it in depth-first
// pre-order: visit is called on a node before any of its children, and
// children are visited in field declaration order. A nil root is a no-op.
//
// Each node is visited at most once, even if it is reachable through more
// than one field.
func Walk(root Node, visit func(Node)) {
	w := walker{visit: visit, seen: make(map[Node]struct{})}
	w.walk(root)
}

type walker struct {
	visit func(Node)
	seen  map[Node]struct{}
}

func (w *walker) walk(n Node) {
	if n == nil {
		return
	}
	if _, ok := w.seen[n]; ok {
		return
	}
	w.seen[n] = struct{}{}
	w.visit(n)

	switch n := n.(type) {
	case *Program:
		w.list(n.Body)
	case *BlockStatement:
		w.list(n.Body)
	case *ExpressionStatement:
		w.walk(n.Expression)
	case *VariableDeclaration:
		for _, d := range n.Declarations {
			if d != nil {
				w.walk(d)
			}
		}
	case *VariableDeclarator:
		w.walk(n.ID)
		w.walk(n.Init)
	case *TemplateLiteral:
		w.list(n.Expressions)
	case *ArrayExpression:
		w.list(n.Elements)
	case *ObjectExpression:
		w.list(n.Properties)
	case *Property:
		w.walk(n.Key)
		w.walk(n.Value)
	case *SpreadElement:
		w.walk(n.Argument)
	case *ArrayPattern:
		w.list(n.Elements)
	case *ObjectPattern:
		w.list(n.Properties)
	case *AssignmentPattern:
		w.walk(n.Left)
		w.walk(n.Right)
	case *RestElement:
		w.walk(n.Argument)
	case *Function:
		if n.ID != nil {
			w.walk(n.ID)
		}
		w.list(n.Params)
		w.walk(n.Body)
	case *Class:
		if n.ID != nil {
			w.walk(n.ID)
		}
		w.walk(n.SuperClass)
		w.list(n.Body)
	case *CallExpression:
		w.walk(n.Callee)
		w.list(n.Arguments)
	case *MemberExpression:
		w.walk(n.Object)
		w.walk(n.Property)
	case *Generic:
		w.list(n.Children)
	case *Identifier, *Literal:
		// leaves
	}
}

func (w *walker) list(nodes []Node) {
	for _, c := range nodes {
		w.walk(c)
	}
}

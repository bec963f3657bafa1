package filter

// Node is a node of a parsed filter. The concrete types are *Comparison,
// *Present, *Substring, *And, *Or and *Not. Nodes returned by Parse must be
// treated as read-only.
type Node interface {
	node()
}

// Op is a comparison operator.
type Op uint8

// Comparison operators. Greater and Less are inclusive (>= and <=).
const (
	OpEqual Op = iota
	OpApprox
	OpGreater
	OpLess
)

// String returns the operator token.
func (o Op) String() string {
	switch o {
	case OpApprox:
		return "~="
	case OpGreater:
		return ">="
	case OpLess:
		return "<="
	default:
		return "="
	}
}

// Comparison compares an attribute against operand text. Value holds the
// unescaped operand; it is coerced at evaluation time.
type Comparison struct {
	Op    Op
	Attr  string
	Value string
}

// Present tests that an attribute is set.
type Present struct {
	Attr string
}

// Substring matches the string form of an attribute against literal parts
// separated by wildcards. An empty first part means a leading wildcard and
// an empty last part a trailing wildcard; Parts always has at least two
// elements.
type Substring struct {
	Attr  string
	Parts []string
}

// And is true when every child is true. An empty And is true.
type And struct {
	Children []Node
}

// Or is true when any child is true. An empty Or is false.
type Or struct {
	Children []Node
}

// Not negates its child.
type Not struct {
	Child Node
}

func (*Comparison) node() {}
func (*Present) node()    {}
func (*Substring) node()  {}
func (*And) node()        {}
func (*Or) node()         {}
func (*Not) node()        {}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the children of the current node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}

	switch t := n.(type) {
	case *And:
		for _, c := range t.Children {
			Walk(c, fn)
		}
	case *Or:
		for _, c := range t.Children {
			Walk(c, fn)
		}
	case *Not:
		Walk(t.Child, fn)
	}
}

// attrOf returns the attribute referenced by a leaf node.
func attrOf(n Node) (string, bool) {
	switch t := n.(type) {
	case *Comparison:
		return t.Attr, true
	case *Present:
		return t.Attr, true
	case *Substring:
		return t.Attr, true
	default:
		return "", false
	}
}

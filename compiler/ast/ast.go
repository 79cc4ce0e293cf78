package ast

import "fmt"

type (
	Kind uint8

	// ID indexes a node in its Tree.
	ID int32

	Flags uint8

	Node struct {
		Kind  Kind
		Value string

		Line int
		Col  int

		Flags Flags

		Children []ID
	}

	// Tree is an arena of nodes. Children are referenced by ID,
	// so the whole tree is released by dropping the Tree.
	Tree struct {
		nodes []Node
		root  ID
	}
)

const (
	Program Kind = iota
	Declaration
	Operation
	Identifier
	Number
	Group

	Function
	Params
	Param
	Block
	If
	While
	Return
	Assign
	Call
	Index

	kindCount
)

// Declaration and Param flags.
const (
	HasBound Flags = 1 << iota
	HasInit
	IsArray
	HasBody
)

const None ID = -1

var kindNames = [...]string{
	Program:     "Program",
	Declaration: "Declaration",
	Operation:   "Operation",
	Identifier:  "Identifier",
	Number:      "Number",
	Group:       "Group",
	Function:    "Function",
	Params:      "Params",
	Param:       "Param",
	Block:       "Block",
	If:          "If",
	While:       "While",
	Return:      "Return",
	Assign:      "Assign",
	Call:        "Call",
	Index:       "Index",
}

func New() *Tree {
	return &Tree{root: None}
}

func (t *Tree) Add(n Node) ID {
	id := ID(len(t.nodes))
	t.nodes = append(t.nodes, n)

	return id
}

func (t *Tree) AddChild(parent, child ID) {
	if parent == None || child == None {
		return
	}

	p := &t.nodes[parent]
	p.Children = append(p.Children, child)
}

func (t *Tree) Node(id ID) *Node {
	return &t.nodes[id]
}

func (t *Tree) Kind(id ID) Kind {
	return t.nodes[id].Kind
}

func (t *Tree) Child(id ID, i int) ID {
	ch := t.nodes[id].Children
	if i >= len(ch) {
		return None
	}

	return ch[i]
}

func (t *Tree) Root() ID { return t.root }

func (t *Tree) SetRoot(id ID) { t.root = id }

func (t *Tree) Len() int { return len(t.nodes) }

// Nodes returns the arena in creation order: children always precede their parents.
func (t *Tree) Nodes() []Node { return t.nodes }

// Truncate drops nodes created after the arena had n nodes.
// Used by the parser to backtrack.
func (t *Tree) Truncate(n int) {
	t.nodes = t.nodes[:n]
}

func (t *Tree) Reset() {
	t.nodes = t.nodes[:0]
	t.root = None
}

// Decl splits a Declaration or Param node into its optional parts.
func (t *Tree) Decl(id ID) (name, bound, init ID) {
	n := &t.nodes[id]
	name, bound, init = None, None, None

	i := 0
	next := func() ID {
		if i >= len(n.Children) {
			return None
		}

		i++

		return n.Children[i-1]
	}

	name = next()

	if n.Flags&HasBound != 0 {
		bound = next()
	}

	if n.Flags&HasInit != 0 {
		init = next()
	}

	return
}

// Walk visits nodes depth first, parents before children.
// Returning false from f skips the node's subtree.
func (t *Tree) Walk(id ID, f func(id ID, depth int) bool) {
	t.walk(id, 0, f)
}

func (t *Tree) walk(id ID, d int, f func(ID, int) bool) {
	if id == None || !f(id, d) {
		return
	}

	for _, ch := range t.nodes[id].Children {
		t.walk(ch, d+1, f)
	}
}

// Format renders a subtree as a compact s-expression, mostly for tests and traces.
func (t *Tree) Format(id ID) string {
	if id == None {
		return "<none>"
	}

	n := &t.nodes[id]

	s := n.Kind.String()
	if n.Value != "" {
		s += "(" + n.Value + ")"
	}

	if len(n.Children) == 0 {
		return s
	}

	s += "["

	for i, ch := range n.Children {
		if i != 0 {
			s += " "
		}

		s += t.Format(ch)
	}

	return s + "]"
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

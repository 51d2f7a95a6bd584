package types

// NodeKind identifies the kind of an expression tree node.
type NodeKind string

// Null represents an explicit null literal distinct from undefined (nil).
type Null struct{}

// MarshalJSON implements json.Marshaler for Null.
// This ensures that Null serializes to JSON null instead of {}.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// NullValue is the singleton value used for the null literal.
var NullValue = Null{}

// Expression tree node kinds.
const (
	// Literals
	NodeString  NodeKind = "string"
	NodeNumber  NodeKind = "number"
	NodeBoolean NodeKind = "boolean"
	NodeNull    NodeKind = "null"

	// Names and bindings
	NodeName  NodeKind = "name"  // Identifier resolved against bindings
	NodeBind  NodeKind = "bind"  // := assignment
	NodeBlock NodeKind = "block" // ( e1; e2; ... )

	// Operators
	NodeBinary    NodeKind = "binary"    // +, -, *, /, =, &, and, or, ...
	NodeUnary     NodeKind = "unary"     // -expr
	NodeCondition NodeKind = "condition" // cond ? then : else

	// Constructors
	NodeArray  NodeKind = "array"  // [...]
	NodeObject NodeKind = "object" // {...}

	// Calls and pipelines
	NodeCall NodeKind = "call" // Function call f(a, b)
	NodePipe NodeKind = "pipe" // |> pipeline step

	// Instrumentation (synthesized, never produced by the parser)
	NodeCapture NodeKind = "capture" // Records step value and elapsed time
	NodeInspect NodeKind = "inspect" // Evaluates a chain and emits a report
)

// Node represents a node in the expression tree.
//
// Line is the 1-based source line the node originates from, or 0 for
// synthesized nodes that carry no position metadata.
type Node struct {
	Kind     NodeKind
	Value    interface{}
	StrValue string  // Pre-typed string value; set by parser for string-valued nodes
	NumValue float64 // Pre-typed numeric value; set by parser for NodeNumber
	Position int     // Byte offset in the source
	Line     int     // 1-based source line, 0 when absent

	// Relations
	LHS         *Node   // Left-hand side (binary ops, pipe chains, wrapped steps)
	RHS         *Node   // Right-hand side (binary ops, pipe targets)
	Arguments   []*Node // Call arguments
	Expressions []*Node // Block, array and object entries
}

// NewNode creates a new expression tree node of the specified kind.
// Prefer NodeArena.Alloc when parsing to reduce per-node heap allocations.
func NewNode(kind NodeKind, position int) *Node {
	return &Node{
		Kind:     kind,
		Position: position,
	}
}

// ShallowCopy returns a copy of the node whose relation slices are shared
// with the original. Rewriters use it to build a new tree without mutating
// the one handed to them.
func (n *Node) ShallowCopy() *Node {
	if n == nil {
		return nil
	}
	cp := *n
	return &cp
}

// arenaChunkSize is the number of Node values pre-allocated per arena chunk.
// Most pipeline scripts fit in a single chunk.
const arenaChunkSize = 64

// NodeArena is a bump-pointer allocator for Node values.
//
// Instead of allocating each node individually on the heap, the arena
// pre-allocates fixed-size chunks of Node structs and hands out pointers
// into them. The arena must stay alive as long as any pointer returned by
// Alloc is reachable; attaching it to the parsed Expression achieves this.
//
// NodeArena is not thread-safe. Each parser owns its own arena and the
// arena is never shared across goroutines.
type NodeArena struct {
	chunks [][]Node
	pos    int // next free index in the last chunk
}

// NewNodeArena allocates an arena pre-warmed with one initial chunk.
func NewNodeArena() *NodeArena {
	return &NodeArena{
		chunks: [][]Node{make([]Node, arenaChunkSize)},
		pos:    0,
	}
}

// Alloc returns a pointer to a zero-valued Node inside the arena, with
// Kind and Position set. All other fields remain at their zero values and
// must be filled by the caller.
func (a *NodeArena) Alloc(kind NodeKind, position int) *Node {
	if a.pos >= arenaChunkSize {
		a.chunks = append(a.chunks, make([]Node, arenaChunkSize))
		a.pos = 0
	}
	n := &a.chunks[len(a.chunks)-1][a.pos]
	a.pos++
	n.Kind = kind
	n.Position = position
	return n
}

// String returns a string representation of the node kind.
func (n *Node) String() string {
	return string(n.Kind)
}

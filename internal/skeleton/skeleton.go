package skeleton

import (
	"fmt"
	"iter"
)

// NodeID indexes a node in its skeleton's arena.
type NodeID int

// NoNode is the parent of the root.
const NoNode NodeID = -1

// Node is one rigid body of the assembly.
type Node struct {
	ID       NodeID
	Name     string
	MeshFile string
	Parent   NodeID
	Children []NodeID
	Joint    *Joint // nil only for the root
}

func (n *Node) IsRoot() bool { return n.Parent == NoNode }

// JointOf returns the node's joint when it is of the given kind.
func (n *Node) JointOf(kind JointKind) (*Joint, bool) {
	if n == nil || n.Joint == nil || n.Joint.Kind != kind {
		return nil, false
	}
	return n.Joint, true
}

// DriverOf returns the node's driver when it is of the given kind.
func (n *Node) DriverOf(kind DriverKind) (*Driver, bool) {
	if n == nil || n.Joint == nil || n.Joint.Driver == nil || n.Joint.Driver.Kind != kind {
		return nil, false
	}
	return n.Joint.Driver, true
}

// Driver returns the node's driver of any kind.
func (n *Node) Driver() *Driver {
	if n == nil || n.Joint == nil {
		return nil
	}
	return n.Joint.Driver
}

// Skeleton owns every node of one robot.
type Skeleton struct {
	nodes []*Node
	root  NodeID
}

// New creates a skeleton holding only a root body.
func New(rootName, meshFile string) *Skeleton {
	return &Skeleton{
		nodes: []*Node{{ID: 0, Name: rootName, MeshFile: meshFile, Parent: NoNode}},
		root:  0,
	}
}

// AddChild attaches a new body to parent through joint.
func (s *Skeleton) AddChild(parent NodeID, name, meshFile string, joint *Joint) (NodeID, error) {
	p, ok := s.Node(parent)
	if !ok {
		return NoNode, structural(parent, "", "unknown parent for %q", name)
	}
	if joint == nil {
		return NoNode, structural(NoNode, name, "non-root node %q has no joint", name)
	}
	if err := joint.validate(); err != nil {
		return NoNode, structural(NoNode, name, "%v", err)
	}

	id := NodeID(len(s.nodes))
	s.nodes = append(s.nodes, &Node{
		ID:       id,
		Name:     name,
		MeshFile: meshFile,
		Parent:   parent,
		Joint:    joint,
	})
	p.Children = append(p.Children, id)
	return id, nil
}

// NodeSpec is a flat, parent-indexed node description as read from a file.
type NodeSpec struct {
	Name     string
	MeshFile string
	Parent   int
	Joint    *Joint
}

// Assemble builds a skeleton from flat specs. Node i gets NodeID i and
// children keep ascending index order. Any structural problem rejects the
// whole input.
func Assemble(specs []NodeSpec) (*Skeleton, error) {
	nodes := make([]*Node, len(specs))
	for i, sp := range specs {
		nodes[i] = &Node{
			ID:       NodeID(i),
			Name:     sp.Name,
			MeshFile: sp.MeshFile,
			Parent:   NodeID(sp.Parent),
			Joint:    sp.Joint,
		}
	}

	root, err := checkStructure(nodes)
	if err != nil {
		return nil, err
	}

	for _, n := range nodes {
		if n.Parent != NoNode {
			p := nodes[n.Parent]
			p.Children = append(p.Children, n.ID)
		}
	}

	return &Skeleton{nodes: nodes, root: root}, nil
}

// checkStructure verifies parent links, the single root, joints and
// acyclicity. It returns the root ID.
func checkStructure(nodes []*Node) (NodeID, error) {
	if len(nodes) == 0 {
		return NoNode, structural(NoNode, "", "no nodes")
	}

	root := NoNode
	for _, n := range nodes {
		switch {
		case n.Parent == NoNode:
			if root != NoNode {
				return NoNode, structural(n.ID, n.Name, "multiple roots (nodes %d and %d have no parent)", root, n.ID)
			}
			root = n.ID
		case n.Parent < 0 || int(n.Parent) >= len(nodes):
			return NoNode, structural(n.ID, n.Name, "parent index %d out of range", n.Parent)
		case n.Parent == n.ID:
			return NoNode, structural(n.ID, n.Name, "node is its own parent")
		}
	}
	if root == NoNode {
		return NoNode, structural(NoNode, "", "no root node")
	}

	for _, n := range nodes {
		if n.Parent == NoNode {
			if n.Joint != nil {
				return NoNode, structural(n.ID, n.Name, "root node has a joint")
			}
			continue
		}
		if n.Joint == nil {
			return NoNode, structural(n.ID, n.Name, "non-root node has no joint")
		}
		if err := n.Joint.validate(); err != nil {
			return NoNode, structural(n.ID, n.Name, "%v", err)
		}
	}

	// Walk every parent chain. Gray marks the chain being walked; reaching a
	// gray node again means a cycle.
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(nodes))
	for start := range nodes {
		var path []NodeID
		id := NodeID(start)
		for id != NoNode && color[id] == white {
			color[id] = gray
			path = append(path, id)
			id = nodes[id].Parent
		}
		if id != NoNode && color[id] == gray {
			return NoNode, structural(id, nodes[id].Name, "cycle detected through node %d", id)
		}
		for _, p := range path {
			color[p] = black
		}
	}

	return root, nil
}

// Validate re-checks the structural invariants of a built skeleton.
func (s *Skeleton) Validate() error {
	root, err := checkStructure(s.nodes)
	if err != nil {
		return err
	}
	if root != s.root {
		return structural(root, s.nodes[root].Name, "root mismatch: arena root is %d", s.root)
	}
	for _, n := range s.nodes {
		for _, c := range n.Children {
			if int(c) >= len(s.nodes) || c < 0 || s.nodes[c].Parent != n.ID {
				return structural(n.ID, n.Name, "child %d does not point back at its parent", c)
			}
		}
	}
	return nil
}

// Len is the number of nodes.
func (s *Skeleton) Len() int { return len(s.nodes) }

func (s *Skeleton) RootID() NodeID { return s.root }

func (s *Skeleton) Root() *Node { return s.nodes[s.root] }

func (s *Skeleton) Node(id NodeID) (*Node, bool) {
	if id < 0 || int(id) >= len(s.nodes) {
		return nil, false
	}
	return s.nodes[id], true
}

// Parent returns the parent of id; false for the root or an unknown node.
func (s *Skeleton) Parent(id NodeID) (*Node, bool) {
	n, ok := s.Node(id)
	if !ok || n.Parent == NoNode {
		return nil, false
	}
	return s.Node(n.Parent)
}

// Lookup finds a node by name.
func (s *Skeleton) Lookup(name string) (*Node, bool) {
	for n := range s.ListAllNodes() {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// ListAllNodes yields every node parent-before-child. The sequence is lazy and
// can be ranged over any number of times.
func (s *Skeleton) ListAllNodes() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		if len(s.nodes) == 0 {
			return
		}
		stack := []NodeID{s.root}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := s.nodes[id]
			if !yield(n) {
				return
			}
			for i := len(n.Children) - 1; i >= 0; i-- {
				stack = append(stack, n.Children[i])
			}
		}
	}
}

// Nodes collects ListAllNodes.
func (s *Skeleton) Nodes() []*Node {
	out := make([]*Node, 0, len(s.nodes))
	for n := range s.ListAllNodes() {
		out = append(out, n)
	}
	return out
}

// Index maps each node to its traversal position.
func (s *Skeleton) Index() map[NodeID]int {
	idx := make(map[NodeID]int, len(s.nodes))
	i := 0
	for n := range s.ListAllNodes() {
		idx[n.ID] = i
		i++
	}
	return idx
}

// Clone deep-copies the skeleton.
func (s *Skeleton) Clone() *Skeleton {
	nodes := make([]*Node, len(s.nodes))
	for i, n := range s.nodes {
		c := *n
		c.Children = append([]NodeID(nil), n.Children...)
		c.Joint = n.Joint.clone()
		nodes[i] = &c
	}
	return &Skeleton{nodes: nodes, root: s.root}
}

func (s *Skeleton) String() string {
	return fmt.Sprintf("skeleton(%d nodes, root %q)", len(s.nodes), s.Root().Name)
}

package skeleton

import (
	"errors"
	"fmt"
)

// ErrStructural marks a malformed tree: cycles, missing or multiple roots,
// dangling joints or parents. It is fatal at load time.
var ErrStructural = errors.New("skeleton: structural error")

// StructuralError wraps ErrStructural with the offending node.
type StructuralError struct {
	Node   NodeID
	Name   string
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Node == NoNode {
		return fmt.Sprintf("skeleton: %s", e.Reason)
	}
	if e.Name != "" {
		return fmt.Sprintf("skeleton: node %d (%s): %s", e.Node, e.Name, e.Reason)
	}
	return fmt.Sprintf("skeleton: node %d: %s", e.Node, e.Reason)
}

func (e *StructuralError) Unwrap() error {
	return ErrStructural
}

func structural(id NodeID, name, format string, args ...any) error {
	return &StructuralError{Node: id, Name: name, Reason: fmt.Sprintf(format, args...)}
}

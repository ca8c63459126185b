package drive

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/rigsim/internal/logging"
	"github.com/san-kum/rigsim/internal/observability"
	"github.com/san-kum/rigsim/internal/skeleton"
)

// ErrConfiguration marks a driver configuration gap. The affected node is
// skipped; the simulation continues.
var ErrConfiguration = errors.New("drive: configuration error")

// ConfigurationError wraps ErrConfiguration. Node is NoNode and Port is -1
// when not applicable.
type ConfigurationError struct {
	Node   skeleton.NodeID
	Name   string
	Port   int
	Reason string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Node != skeleton.NoNode && e.Port >= 0:
		return fmt.Sprintf("drive: node %d (%s) port %d: %s", e.Node, e.Name, e.Port, e.Reason)
	case e.Node != skeleton.NoNode:
		return fmt.Sprintf("drive: node %d (%s): %s", e.Node, e.Name, e.Reason)
	case e.Port >= 0:
		return fmt.Sprintf("drive: port %d: %s", e.Port, e.Reason)
	default:
		return "drive: " + e.Reason
	}
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

func configError(n *skeleton.Node, port int, format string, args ...any) *ConfigurationError {
	e := &ConfigurationError{Node: skeleton.NoNode, Port: port, Reason: fmt.Sprintf(format, args...)}
	if n != nil {
		e.Node, e.Name = n.ID, n.Name
	}
	return e
}

// reporter logs each distinct configuration error once.
type reporter struct {
	log     logging.Logger
	metrics *observability.DriveCollector
	seen    map[string]bool
	errs    []*ConfigurationError
}

func newReporter(log logging.Logger, metrics *observability.DriveCollector) *reporter {
	return &reporter{log: log, metrics: metrics, seen: make(map[string]bool)}
}

func (r *reporter) report(err *ConfigurationError) {
	key := err.Error()
	if r.seen[key] {
		return
	}
	r.seen[key] = true
	r.errs = append(r.errs, err)
	r.metrics.IncConfigError()
	r.log.Warn(context.Background(), "drive configuration error",
		logging.Int("node", int(err.Node)),
		logging.String("name", err.Name),
		logging.Int("port", err.Port),
		logging.String("reason", err.Reason),
	)
}

package control

import "github.com/san-kum/rigsim/internal/drive"

// Source supplies the control snapshot for time t. The returned vectors
// belong to the caller.
type Source interface {
	Poll(t float64) drive.Signals
}

// SourceFunc adapts a function to Source.
type SourceFunc func(t float64) drive.Signals

func (f SourceFunc) Poll(t float64) drive.Signals { return f(t) }

type None struct {
	pwm, can int
}

func NewNone(pwm, can int) *None {
	return &None{pwm: pwm, can: can}
}

func (n *None) Poll(t float64) drive.Signals {
	return drive.NewSignals(n.pwm, n.can)
}

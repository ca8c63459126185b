package sim

import (
	"errors"
	"fmt"
)

var ErrInvalidSample = errors.New("sim: invalid telemetry sample (NaN or Inf detected)")

// StepError wraps an error with the tick it happened on.
type StepError struct {
	Step int
	Time float64
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("sim: step %d (t=%.4f): %v", e.Step, e.Time, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

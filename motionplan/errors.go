package motionplan

import "github.com/pkg/errors"

// NewPlannerFailedError is returned when the search exhausts the open set
// without reaching the goal.
func NewPlannerFailedError() error {
	return errors.New("hybrid A* exhausted the open set without reaching the goal")
}

// NewInvalidSeedError is returned when a start or end pose is out of bounds
// or in collision.
func NewInvalidSeedError(which string) error {
	return errors.Errorf("%s pose is out of bounds or in collision", which)
}

// NewResultSizeError is returned when the assembled result violates the
// output size invariants.
func NewResultSizeError() error {
	return errors.New("result state and control sequence sizes are inconsistent")
}

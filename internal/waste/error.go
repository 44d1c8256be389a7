package waste

import (
	"errors"
	"fmt"
)

var (
	ErrReportNotFound = errors.New("waste report not found")
	ErrRiderRequired  = errors.New("report has no rider assigned")
	ErrRiderAlreadySet = errors.New("report already has a rider assigned")
	// ErrStaleTransition means the row changed between read and update,
	// usually a double-click or two dashboards racing.
	ErrStaleTransition = errors.New("report was modified concurrently")
)

// InvalidTransitionError rejects a lifecycle move whose precondition does
// not hold. It is raised at the controller boundary, never left to UI
// button visibility.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

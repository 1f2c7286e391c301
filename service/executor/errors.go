package executor

import "errors"

var (
	ErrStepFailed  = errors.New("step execution failed")
	ErrInvalidPlan = errors.New("record is not a plan")
)

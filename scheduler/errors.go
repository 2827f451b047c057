package scheduler

import "errors"

const Namespace = "scheduler"

var (
	ErrClosed        = errors.New(Namespace + ": scheduler is closed")
	ErrInvalidJob    = errors.New(Namespace + ": invalid job")
	ErrJobPanicked   = errors.New(Namespace + ": job panicked")
	ErrInvalidConfig = errors.New(Namespace + ": invalid configuration")
)

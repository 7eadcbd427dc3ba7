package shared

import "errors"

var (
	// ErrNotFound indicates a referenced order, user or inventory item is absent.
	ErrNotFound = errors.New("not found")
	// ErrInactiveActor indicates the assignee account is disabled.
	ErrInactiveActor = errors.New("actor is inactive")
	// ErrNotStarted occurs when a task is completed before it was started.
	ErrNotStarted = errors.New("task not started")
	// ErrForbidden indicates the actor's department or role does not gate the action.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition indicates a status change outside the state graph.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInsufficientStock is reported per inventory line, accumulated not thrown.
	ErrInsufficientStock = errors.New("insufficient stock")
)

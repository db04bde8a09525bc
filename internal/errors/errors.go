// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrContactNotFound is a sentinel error
type ErrContactNotFound struct {
	ContactID string
}

func (e *ErrContactNotFound) Error() string {
	return fmt.Sprintf("contact with ID %s not found", e.ContactID)
}

// Helper constructor
func NewContactNotFound(id string) error {
	return &ErrContactNotFound{ContactID: id}
}

type ErrLeadNotFound struct {
	LeadID string
}

func (e *ErrLeadNotFound) Error() string {
	return fmt.Sprintf("lead with ID %s not found", e.LeadID)
}

func NewLeadNotFound(id string) error {
	return &ErrLeadNotFound{LeadID: id}
}

type ErrTouchNotFound struct {
	TouchID string
}

func (e *ErrTouchNotFound) Error() string {
	return fmt.Sprintf("scheduled touch with ID %s not found", e.TouchID)
}

func NewTouchNotFound(id string) error {
	return &ErrTouchNotFound{TouchID: id}
}

type ErrTemplateNotFound struct {
	TemplateID string
}

func (e *ErrTemplateNotFound) Error() string {
	return fmt.Sprintf("template with ID %s not found", e.TemplateID)
}

func NewTemplateNotFound(id string) error {
	return &ErrTemplateNotFound{TemplateID: id}
}

// ErrInvalidStateTransition reports an operation whose precondition on
// entity state does not hold (e.g. sending an already-sent touch). It is
// always surfaced to the caller, never swallowed or retried.
type ErrInvalidStateTransition struct {
	Entity string
	ID     string
	Reason string
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition for %s %s: %s", e.Entity, e.ID, e.Reason)
}

func NewInvalidStateTransition(entity, id, reason string) error {
	return &ErrInvalidStateTransition{Entity: entity, ID: id, Reason: reason}
}

// ErrConcurrentModification reports a failed conditional write: another
// caller changed the row between read and write. Callers retry the logical
// operation once against fresh state and then give up.
type ErrConcurrentModification struct {
	Entity string
	ID     string
}

func (e *ErrConcurrentModification) Error() string {
	return fmt.Sprintf("concurrent modification of %s %s", e.Entity, e.ID)
}

func NewConcurrentModification(entity, id string) error {
	return &ErrConcurrentModification{Entity: entity, ID: id}
}

// ErrStorageUnavailable wraps a failure to reach the persistence layer.
// Fatal to the current operation; retry policy belongs to the caller.
type ErrStorageUnavailable struct {
	Err error
}

func (e *ErrStorageUnavailable) Error() string {
	return fmt.Sprintf("storage unavailable: %v", e.Err)
}

func (e *ErrStorageUnavailable) Unwrap() error { return e.Err }

func NewStorageUnavailable(err error) error {
	return &ErrStorageUnavailable{Err: err}
}

// IsNotFound reports whether err is any of the not-found errors.
func IsNotFound(err error) bool {
	var c *ErrContactNotFound
	var l *ErrLeadNotFound
	var t *ErrTouchNotFound
	var tp *ErrTemplateNotFound
	return errors.As(err, &c) || errors.As(err, &l) || errors.As(err, &t) || errors.As(err, &tp)
}

func IsInvalidStateTransition(err error) bool {
	var e *ErrInvalidStateTransition
	return errors.As(err, &e)
}

func IsConcurrentModification(err error) bool {
	var e *ErrConcurrentModification
	return errors.As(err, &e)
}

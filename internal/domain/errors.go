package domain

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError reports a missing or wrong-typed entity. It identifies both
// the type and the id so callers can build a structured failure response.
type NotFoundError struct {
	EntityType string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.EntityType, e.ID)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// DisabledVerbError reports a verb present in the schema's disabled set.
type DisabledVerbError struct {
	EntityType string
	Verb       string
}

func (e *DisabledVerbError) Error() string {
	return fmt.Sprintf("verb %q is disabled for %s", e.Verb, e.EntityType)
}

// UnknownVerbError reports a verb that is neither declared on the schema nor
// a recognized CRUD action.
type UnknownVerbError struct {
	EntityType string
	Verb       string
}

func (e *UnknownVerbError) Error() string {
	return fmt.Sprintf("verb %q is not declared for %s", e.Verb, e.EntityType)
}

// InvalidPayloadError reports payload data failing the declared field
// definitions of the entity type.
type InvalidPayloadError struct {
	EntityType string
	Details    []string
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("invalid %s payload: %s", e.EntityType, strings.Join(e.Details, "; "))
}

// AbortError reports a before-phase handler rejecting the verb. It
// guarantees no mutation occurred and no after-phase event fired.
type AbortError struct {
	QualifiedType string
	Err           error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("%s aborted: %v", e.QualifiedType, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

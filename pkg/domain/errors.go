package domain

import (
	"errors"
	"fmt"
)

// ErrEntityNotFound is returned by adapters when a referenced entity does
// not exist in the backing store.
var ErrEntityNotFound = errors.New("entity not found")

// ResolutionError reports a relationship name that does not exist on the
// entity's type. It aborts the whole clone invocation.
type ResolutionError struct {
	Type         TypeID
	Relationship string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("relationship %q is not declared on type %q", e.Relationship, e.Type)
}

// ConfigurationError reports a misconfigured type: its always-included
// policy names a relationship the type does not declare, or its descriptor
// set could not be read at all.
type ConfigurationError struct {
	Type   TypeID
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("type %q misconfigured: %s: %v", e.Type, e.Reason, e.Err)
	}
	return fmt.Sprintf("type %q misconfigured: %s", e.Type, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

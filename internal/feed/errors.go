package feed

import (
	"errors"
	"fmt"
)

// ErrorClass buckets transport failures for the controller's propagation
// policy: transient errors never clear existing data, policy errors trigger a
// variant re-resolution, and everything else is surfaced only when the feed
// would otherwise be empty.
type ErrorClass string

const (
	// ClassNetwork covers offline/timeout failures. Transient.
	ClassNetwork ErrorClass = "network"
	// ClassDisabled means the server rejected the feed variant as disabled.
	ClassDisabled ErrorClass = "feature_disabled"
	// ClassPermission covers auth and permission rejections.
	ClassPermission ErrorClass = "permission"
	// ClassNotFound covers missing targets (deleted note, unknown channel).
	ClassNotFound ErrorClass = "not_found"
	// ClassGeneric is everything else.
	ClassGeneric ErrorClass = "generic"
)

// TransportError is the classified error surface adapters are expected to
// return. Anything unclassified falls back to ClassGeneric.
type TransportError struct {
	Class ErrorClass
	Op    string
	Err   error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Class)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Classify returns the error class, defaulting to ClassGeneric for errors the
// adapter did not classify.
func Classify(err error) ErrorClass {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Class
	}
	return ClassGeneric
}

// IsTransient reports whether the error is eligible for silent retry.
func IsTransient(err error) bool {
	return Classify(err) == ClassNetwork
}

// IsPolicy reports whether the error should trigger a re-resolution of
// permitted feed variants.
func IsPolicy(err error) bool {
	c := Classify(err)
	return c == ClassDisabled || c == ClassPermission
}

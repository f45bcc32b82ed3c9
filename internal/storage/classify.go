package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrorClass buckets a per-row write error for the report.
type ErrorClass string

const (
	ClassConstraint ErrorClass = "constraint"
	ClassData       ErrorClass = "data"
	ClassConnection ErrorClass = "connection"
	ClassCanceled   ErrorClass = "canceled"
	ClassUnknown    ErrorClass = "unknown"
)

// Classifier recognises driver errors. ok is false when err is not one of
// the driver's error types.
type Classifier func(err error) (class ErrorClass, ok bool)

var (
	classMu     sync.RWMutex
	classifiers []Classifier
)

// RegisterClassifier adds a driver classifier. Backends call it from init.
func RegisterClassifier(c Classifier) {
	classMu.Lock()
	defer classMu.Unlock()
	classifiers = append(classifiers, c)
}

// Classify maps err to an ErrorClass using the registered classifiers.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassCanceled
	}
	classMu.RLock()
	defer classMu.RUnlock()
	for _, c := range classifiers {
		if class, ok := c(err); ok {
			return class
		}
	}
	return ClassUnknown
}

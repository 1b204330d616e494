package engine

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/trapped/pkg/logger"
)

var (
	// ErrConsistency marks a broken spatial index invariant
	ErrConsistency = errors.New("spatial index consistency violation")
	// ErrNotAnObject marks a target that selected an immovable entity
	ErrNotAnObject = errors.New("target contains an entity that is not an object")
	// ErrNothingToUndo is returned when the undo stack is empty
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrInvalidLevel wraps every level validation failure
	ErrInvalidLevel = errors.New("invalid level")
	// ErrNotSettled is returned when the loop does not go idle within the tick budget
	ErrNotSettled = errors.New("simulation did not settle")
	// ErrInvalidDirection is returned for unknown direction names
	ErrInvalidDirection = errors.New("invalid direction")
)

// ConsistencyError describes an invariant breach. It is raised with panic.
type ConsistencyError struct {
	Op     string
	Kind   Kind
	Pos    Position
	Entity EntityID
	Found  EntityID
	Err    error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s %s at %s: entity %d (found %d): %v", e.Op, e.Kind, e.Pos, e.Entity, e.Found, e.Err)
}

func (e *ConsistencyError) Unwrap() error {
	return e.Err
}

func violate(e *ConsistencyError) {
	if e.Err == nil {
		e.Err = ErrConsistency
	}
	logger.Log.WithFields(logrus.Fields{
		"component": "engine",
		"op":        e.Op,
		"kind":      e.Kind.String(),
		"pos":       e.Pos.String(),
		"entity":    e.Entity,
	}).Error(e.Error())
	panic(e)
}

package types

import (
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

var childIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// ErrInvalidChildID is returned when a child ID is malformed
var ErrInvalidChildID = goerr.New("invalid child ID")

// ChildID identifies the child that owns a memory set
type ChildID string

func (id ChildID) String() string {
	return string(id)
}

// Validate checks the ID is non-empty and path-safe, since backends use it
// as a document path segment.
func (id ChildID) Validate() error {
	if !childIDPattern.MatchString(string(id)) {
		return goerr.Wrap(ErrInvalidChildID, "child ID must be 1-128 alphanumerics, '-' or '_'", goerr.V("child_id", string(id)))
	}
	return nil
}

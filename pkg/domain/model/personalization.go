package model

import "github.com/appu-labs/appu/pkg/domain/types"

// ChildProfile is the parent-maintained profile. It is owned by the
// dashboard and passed in by the conversation handler.
type ChildProfile struct {
	ChildID  types.ChildID
	Name     string
	Age      int
	Language string
	Likes    []string
	Dislikes []string
}

// Milestone is a learning goal tracked for the child
type Milestone struct {
	Description string
	Progress    int
	Target      int
	Completed   bool
}

package stage

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindWorkspace    Kind = "workspace"
	KindCollaborator Kind = "collaborator"
	KindInternal     Kind = "internal"
)

type Name string

const (
	NameWorkspace Name = "workspace"
	NameScript    Name = "script"
	NameImage     Name = "image"
	NameSpeech    Name = "audio"
	NameAssembly  Name = "assembly"
	NamePipeline  Name = "pipeline"
)

// Error is the failure outcome of one pipeline step. Scene is the 1-based
// ordinal for per-scene steps and 0 otherwise.
type Error struct {
	Kind  Kind
	Stage Name
	Scene int
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed", e.Stage)
	}
	if e.Scene > 0 {
		return fmt.Sprintf("%s scene %d: %v", e.Stage, e.Scene, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Workspace(err error) *Error {
	return &Error{Kind: KindWorkspace, Stage: NameWorkspace, Err: err}
}

func Collaborator(name Name, scene int, err error) *Error {
	return &Error{Kind: KindCollaborator, Stage: name, Scene: scene, Err: err}
}

// KindOf classifies err; anything untagged is internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

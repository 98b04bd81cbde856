package saver

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tsawler/pagenum/model"
)

// DocumentWriter persists a snapshot. It is called on the worker goroutine.
type DocumentWriter interface {
	Write(ctx context.Context, input, output string, overwrite bool, snap *model.Snapshot) error
}

// Dispatcher runs functions on the goroutine that owns the model.
// Dispatch must be safe to call from any goroutine.
type Dispatcher interface {
	Dispatch(fn func())
}

// InputSource reports the path of the document being edited.
type InputSource interface {
	Path() string
}

// Job is one save request. It is never modified after creation.
type Job struct {
	ID         uuid.UUID
	Snapshot   *model.Snapshot
	InputPath  string
	OutputPath string
	Overwrite  bool
}

func (j *Job) String() string {
	return fmt.Sprintf("job %s: %s -> %s", j.ID, j.InputPath, j.OutputPath)
}

// StartedSaving is posted when a job is submitted.
type StartedSaving struct {
	Job *Job
}

// Finished is posted when the latest job completes. ErrorMessage is empty
// on success.
type Finished struct {
	Job          *Job
	ErrorMessage string
}

// Succeeded reports whether the job was written.
func (f *Finished) Succeeded() bool { return f.ErrorMessage == "" }

// OutputPathChanged is posted when the output path changes.
type OutputPathChanged struct {
	Path string
}

// OverwriteChanged is posted when the overwrite flag changes.
type OverwriteChanged struct {
	Overwrite bool
}

// AutoSaveChanged is posted by an AutoSaver when it is switched on or off.
type AutoSaveChanged struct {
	Enabled bool
}

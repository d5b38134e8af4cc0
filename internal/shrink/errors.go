package shrink

import "fmt"

// Exit codes for stage failures. Config and path validation codes (1-4) are
// owned by the CLI, database errors (10) by internal/db.
const (
	ExitPrecondition    = 5 // stage-1 environment not suitable
	ExitFileExpectation = 6 // export artifact missing after flush
	ExitImportMissing   = 7 // stage-2 run without stage-1 state
)

// PreconditionError means the environment is not suitable for the stage:
// filesystem mismatch, feature disabled, non-empty workdir, or missing
// stage-1 state. Nothing has been mutated when it is returned.
type PreconditionError struct {
	Code   int
	Reason string
}

func (e *PreconditionError) Error() string { return e.Reason }

func (e *PreconditionError) ExitCode() int { return e.Code }

// FileExpectationError means a flushed tablespace file did not show up in
// the data directory, so the export cannot be trusted.
type FileExpectationError struct {
	Path string
}

func (e *FileExpectationError) Error() string {
	return fmt.Sprintf("file %s was expected but it does not exist", e.Path)
}

func (e *FileExpectationError) ExitCode() int { return ExitFileExpectation }

package script

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for script resolution and parsing.
var (
	// ErrCyclicInclude indicates a file includes itself through a chain of
	// include directives.
	ErrCyclicInclude = errors.New("cyclic include")

	// ErrFileAccess indicates a source file could not be opened or read.
	ErrFileAccess = errors.New("file access")

	// ErrMalformedDirective indicates a recognized directive with an empty
	// argument.
	ErrMalformedDirective = errors.New("malformed directive")
)

// CycleError reports an include cycle.
type CycleError struct {
	// Path is the file that was about to be opened a second time.
	Path string

	// Chain is the list of files being resolved, outermost first.
	Chain []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic include of %s via %s", e.Path, strings.Join(e.Chain, " -> "))
}

// Unwrap returns ErrCyclicInclude.
func (e *CycleError) Unwrap() error {
	return ErrCyclicInclude
}

// FileError wraps an I/O failure on a source file.
type FileError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *FileError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying filesystem error.
func (e *FileError) Unwrap() error {
	return e.Err
}

// Is reports ErrFileAccess so callers can classify without knowing the
// underlying filesystem error.
func (e *FileError) Is(target error) bool {
	return target == ErrFileAccess
}

// DirectiveError reports a directive line that could not be interpreted.
type DirectiveError struct {
	// Path is the file containing the directive. For command scripts this
	// is the script itself, since parsing runs over resolved lines.
	Path string

	// Line is the 1-based line number within the scanned sequence.
	Line int

	// Keyword is the directive keyword (include, model, data).
	Keyword string

	// Text is the offending line without its terminator.
	Text string
}

// Error implements the error interface.
func (e *DirectiveError) Error() string {
	return fmt.Sprintf("%s:%d: %s directive has no path: %q", e.Path, e.Line, e.Keyword, e.Text)
}

// Unwrap returns ErrMalformedDirective.
func (e *DirectiveError) Unwrap() error {
	return ErrMalformedDirective
}

// IsCyclicInclude returns true if err is an include cycle.
func IsCyclicInclude(err error) bool {
	return errors.Is(err, ErrCyclicInclude)
}

// IsFileAccess returns true if err is a source file I/O failure.
func IsFileAccess(err error) bool {
	return errors.Is(err, ErrFileAccess)
}

// IsMalformedDirective returns true if err is a directive without argument.
func IsMalformedDirective(err error) bool {
	return errors.Is(err, ErrMalformedDirective)
}

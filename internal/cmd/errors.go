package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/3leaps/goneos/pkg/job"
	"github.com/3leaps/goneos/pkg/neos"
	"github.com/3leaps/goneos/pkg/output"
	"github.com/3leaps/goneos/pkg/provider"
	"github.com/3leaps/goneos/pkg/script"
	"github.com/3leaps/goneos/pkg/submission"
)

// exitFailure is used for errors without a more specific exit code.
const exitFailure = 1

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: %v (exit code %d)", e.Message, e.Err, e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode returns the exit code carried by err, or 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return exitFailure
}

// classifyError maps a submission or lifecycle failure to an exit code and
// an ErrorRecord code.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return foundry.ExitSignalInt, output.ErrCodeCancelled
	case script.IsCyclicInclude(err):
		return foundry.ExitInvalidArgument, output.ErrCodeCyclicInclude
	case script.IsMalformedDirective(err):
		return foundry.ExitInvalidArgument, output.ErrCodeMalformedDirective
	case script.IsFileAccess(err):
		if errors.Is(err, os.ErrNotExist) {
			return foundry.ExitFileNotFound, output.ErrCodeFileAccess
		}
		return foundry.ExitFileReadError, output.ErrCodeFileAccess
	case errors.Is(err, submission.ErrInvalidRequest):
		return foundry.ExitInvalidArgument, output.ErrCodeInternal
	case job.IsPollLimit(err):
		return foundry.ExitExternalServiceUnavailable, output.ErrCodePollLimit
	case neos.IsRemoteRejection(err):
		return foundry.ExitExternalServiceUnavailable, output.ErrCodeRemoteRejection
	case neos.IsTransport(err):
		return foundry.ExitExternalServiceUnavailable, output.ErrCodeTransport
	default:
		return exitFailure, output.ErrCodeInternal
	}
}

// errorPath extracts the source file a script error relates to.
func errorPath(err error) string {
	var fe *script.FileError
	if errors.As(err, &fe) {
		return fe.Path
	}
	var ce *script.CycleError
	if errors.As(err, &ce) {
		return ce.Path
	}
	var de *script.DirectiveError
	if errors.As(err, &de) {
		return de.Path
	}
	return ""
}

// archiveExitCode maps an archive failure to an exit code. Credential,
// permission and availability failures point at the storage service
// rather than the local write.
func archiveExitCode(err error, fallback int) int {
	switch {
	case provider.IsInvalidCredentials(err), provider.IsAccessDenied(err),
		provider.IsBucketNotFound(err), provider.IsProviderUnavailable(err), provider.IsThrottled(err):
		return foundry.ExitExternalServiceUnavailable
	case provider.IsNotFound(err):
		return foundry.ExitFileNotFound
	default:
		return fallback
	}
}

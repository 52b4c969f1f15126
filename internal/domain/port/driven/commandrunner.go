package driven

import (
	"context"
	"errors"
	"fmt"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

// ErrCommandNotFound is returned when the executable cannot be resolved.
var ErrCommandNotFound = errors.New("command not found")

// ExitError is returned for a non-zero exit when model.Command.Check is set.
type ExitError struct {
	Command string
	Result  model.CommandResult
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Result.ExitCode)
}

// CommandRunner executes external programs. A non-zero exit is reported in
// the result, not as an error, unless the command asks to be checked.
type CommandRunner interface {
	Run(ctx context.Context, cmd model.Command) (model.CommandResult, error)
}

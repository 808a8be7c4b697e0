package ssh

import (
	"context"
	"io"
)

// Executor abstracts remote command execution for testability.
type Executor interface {
	Exec(ctx context.Context, command string) (*ExecResult, error)
	// Push runs a remote command with stdin connected to r. Used to stream a
	// tar archive of the local tree into the remote scratch directory.
	Push(ctx context.Context, r io.Reader, command string) error
	Close() error
}

package ssh

import (
	"context"
	"io"
)

// MockExecutor is a test double that records commands and returns configured
// results.
type MockExecutor struct {
	ExecFunc func(ctx context.Context, command string) (*ExecResult, error)
	PushFunc func(ctx context.Context, r io.Reader, command string) error
	Commands []string
	Pushed   []string
}

// Exec records the command and delegates to ExecFunc.
func (m *MockExecutor) Exec(ctx context.Context, command string) (*ExecResult, error) {
	m.Commands = append(m.Commands, command)
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, command)
	}
	return &ExecResult{Stdout: "", Stderr: "", ExitCode: 0}, nil
}

// Push records the command and delegates to PushFunc. The reader is drained
// so callers streaming from a pipe do not block.
func (m *MockExecutor) Push(ctx context.Context, r io.Reader, command string) error {
	m.Pushed = append(m.Pushed, command)
	m.Commands = append(m.Commands, command)
	if m.PushFunc != nil {
		return m.PushFunc(ctx, r, command)
	}
	_, _ = io.Copy(io.Discard, r)
	return nil
}

// Close is a no-op for the mock.
func (m *MockExecutor) Close() error {
	return nil
}

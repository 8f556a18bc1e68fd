package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// DirPermission is used when creating jail root directories
const DirPermission = 0755

// CommandRunner defines an interface for executing system commands
type CommandRunner interface {
	RunCommand(ctx context.Context, args []string) (stdout, stderr string, exitCode int, err error)
}

// RealCommandRunner implements CommandRunner using actual exec commands
type RealCommandRunner struct{}

// RunCommand executes the given command with arguments and captures its output
func (RealCommandRunner) RunCommand(ctx context.Context, args []string) (stdout, stderr string, exitCode int, err error) {
	if len(args) < 1 {
		return "", "", 0, ErrNoCommand
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // Arguments come from configuration

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err = cmd.Run()

	exitCode = 0
	if err != nil {
		var exitError *exec.ExitError
		if !errors.As(err, &exitError) {
			return "", "", 0, err
		}
		exitCode = exitError.ExitCode()
	}

	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// FileSystem defines an interface for file system operations
type FileSystem interface {
	MkdirAll(path string, perm os.FileMode) error
	Remove(path string) error
	FileSize(path string) (int64, error)
}

// RealFileSystem implements FileSystem using actual file system operations
type RealFileSystem struct{}

func (RealFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (RealFileSystem) Remove(path string) error {
	return os.Remove(path)
}

func (RealFileSystem) FileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Stdio holds the standard streams handed to a contained command
type Stdio struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// InheritStdio returns the current process's standard streams.
func InheritStdio() Stdio {
	return Stdio{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Process is a started child process
type Process interface {
	// Wait blocks until the process exits and returns its exit code. An
	// error means the exit status could not be collected.
	Wait() (int, error)
}

// ProcessLauncher starts child processes without waiting for them
type ProcessLauncher interface {
	Launch(ctx context.Context, argv []string, stdio Stdio) (Process, error)
}

// ExecLauncher implements ProcessLauncher with os/exec
type ExecLauncher struct{}

func (ExecLauncher) Launch(ctx context.Context, argv []string, stdio Stdio) (Process, error) {
	if len(argv) < 1 {
		return nil, ErrNoCommand
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec // Running the caller's command is the point
	cmd.Stdin = stdio.Stdin
	cmd.Stdout = stdio.Stdout
	cmd.Stderr = stdio.Stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		return exitError.ExitCode(), nil
	}
	return -1, fmt.Errorf("failed to wait for command: %w", err)
}

// List runs the external jail listing tool, jls(8) by default.
func List(ctx context.Context, launcher ProcessLauncher, tool string, stdio Stdio) error {
	proc, err := launcher.Launch(ctx, []string{tool}, stdio)
	if err != nil {
		return &LaunchError{Command: []string{tool}, Err: err}
	}
	code, err := proc.Wait()
	if err != nil {
		return err
	}
	if code != 0 {
		return &CommandFailure{ExitCode: code}
	}
	return nil
}

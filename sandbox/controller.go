package sandbox

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Config holds configuration for the jail controller
type Config struct {
	DefaultPath string
	Persist     bool
	ExecTool    string
	ListTool    string
}

// Controller owns the create, run, destroy lifecycle of a jail
type Controller struct {
	logger   *zap.Logger
	config   *Config
	kernel   Kernel
	launcher ProcessLauncher
}

// ControllerOption defines a functional option for Controller
type ControllerOption func(*Controller)

// WithKernel sets the Kernel for Controller
func WithKernel(kernel Kernel) ControllerOption {
	return func(c *Controller) {
		c.kernel = kernel
	}
}

// WithProcessLauncher sets the ProcessLauncher for Controller
func WithProcessLauncher(launcher ProcessLauncher) ControllerOption {
	return func(c *Controller) {
		c.launcher = launcher
	}
}

// NewController creates a new Controller with default implementations and optional interfaces
func NewController(logger *zap.Logger, config *Config, opts ...ControllerOption) *Controller {
	c := &Controller{
		logger:   logger,
		config:   config,
		kernel:   NewKernel(),
		launcher: ExecLauncher{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Launcher returns the process launcher used for contained commands.
func (c *Controller) Launcher() ProcessLauncher { return c.launcher }

// Kernel returns the kernel used to create and remove jails.
func (c *Controller) Kernel() Kernel { return c.kernel }

// State is a lifecycle stage
type State int

const (
	StateIdle State = iota
	StateCreated
	StateRunning
	StateDone
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateDestroyed:
		return "destroyed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Result describes a finished contained command
type Result struct {
	Handle    Handle
	ExitCode  int
	Destroyed bool
}

// Failure returns a CommandFailure for a non-zero exit code, nil otherwise.
func (r Result) Failure() error {
	if r.ExitCode == 0 {
		return nil
	}
	return &CommandFailure{ExitCode: r.ExitCode}
}

// handoff carries the created handle, or the creation error, from the
// worker to the caller of Start. It is sent exactly once.
type handoff struct {
	handle Handle
	err    error
}

// Lifecycle is a jail created by Start together with the worker running
// its contained command.
type Lifecycle struct {
	id     string
	handle Handle
	logger *zap.Logger
	kernel Kernel

	done   chan struct{}
	result Result
	err    error

	mu    sync.Mutex
	state State
}

// Start creates a jail on a worker goroutine and launches argv once the
// jail exists. It returns after the jail handle has been delivered, while
// the command may still be running. A creation failure is returned
// directly and no command is launched.
func (c *Controller) Start(ctx context.Context, params *ParameterSet, argv []string, stdio Stdio) (*Lifecycle, error) {
	if len(argv) == 0 {
		return nil, ErrNoCommand
	}

	params = params.Clone()
	params.SetDefault(ParamPath, Text(c.config.DefaultPath))
	if c.config.Persist {
		params.SetDefault(ParamPersist, Flag())
	}

	lc := &Lifecycle{
		id:     uuid.NewString(),
		kernel: c.kernel,
		done:   make(chan struct{}),
	}
	lc.logger = c.logger.With(zap.String("run_id", lc.id))

	handoffCh := make(chan handoff, 1)
	go c.work(ctx, lc, params, argv, stdio, handoffCh)

	h := <-handoffCh
	if h.err != nil {
		<-lc.done
		return nil, h.err
	}
	lc.handle = h.handle
	return lc, nil
}

func (c *Controller) work(ctx context.Context, lc *Lifecycle, params *ParameterSet, argv []string, stdio Stdio, handoffCh chan<- handoff) {
	defer close(lc.done)

	handle, err := c.kernel.Create(params)
	if err != nil {
		var creationErr *CreationError
		if !errors.As(err, &creationErr) {
			err = &CreationError{Err: err}
		}
		lc.logger.Error("jail creation failed", zap.Error(err))
		handoffCh <- handoff{err: err}
		return
	}
	lc.setState(StateCreated)
	lc.logger.Info("jail created", zap.Int("jid", handle.ID))

	cmdline := c.commandLine(handle, argv)
	lc.result.Handle = handle
	handoffCh <- handoff{handle: handle}

	proc, err := c.launcher.Launch(ctx, cmdline, stdio)
	if err != nil {
		lc.err = &LaunchError{Command: cmdline, Err: err}
		lc.logger.Error("command launch failed", zap.Strings("command", cmdline), zap.Error(err))
		lc.setState(StateDone)
		return
	}
	lc.setState(StateRunning)

	code, err := proc.Wait()
	lc.result.ExitCode = code
	if err != nil {
		lc.err = err
		lc.logger.Error("command wait failed", zap.Error(err))
	} else if failure := lc.result.Failure(); failure != nil {
		lc.logger.Warn("command exited with error", zap.Strings("command", cmdline), zap.Error(failure))
	}
	lc.setState(StateDone)
}

// commandLine prefixes argv with the exec tool so the command runs inside
// the jail. It is computed before the handle is handed off.
func (c *Controller) commandLine(handle Handle, argv []string) []string {
	if c.config.ExecTool == "" {
		return argv
	}
	cmdline := make([]string, 0, len(argv)+2)
	cmdline = append(cmdline, c.config.ExecTool, handle.String())
	return append(cmdline, argv...)
}

func (lc *Lifecycle) ID() string { return lc.id }

func (lc *Lifecycle) Handle() Handle { return lc.handle }

func (lc *Lifecycle) State() State {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.state
}

// setState never moves a destroyed lifecycle back to an earlier state.
func (lc *Lifecycle) setState(s State) {
	lc.mu.Lock()
	if lc.state != StateDestroyed {
		lc.state = s
	}
	lc.mu.Unlock()
}

// Wait blocks until the worker has finished. The error is a *LaunchError
// when the command never started; a non-zero exit is reported only
// through Result.
func (lc *Lifecycle) Wait() (Result, error) {
	<-lc.done
	return lc.result, lc.err
}

// Destroy removes the jail. A lifecycle retires its handle once; later
// calls return a DestructionError wrapping ErrHandleRetired.
func (lc *Lifecycle) Destroy() error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if lc.state == StateDestroyed {
		return &DestructionError{Handle: lc.handle, Err: ErrHandleRetired}
	}
	if err := lc.kernel.Destroy(lc.handle); err != nil {
		var destructionErr *DestructionError
		if !errors.As(err, &destructionErr) {
			err = &DestructionError{Handle: lc.handle, Err: err}
		}
		lc.logger.Warn("jail removal failed", zap.Int("jid", lc.handle.ID), zap.Error(err))
		return err
	}
	lc.state = StateDestroyed
	lc.logger.Info("jail removed", zap.Int("jid", lc.handle.ID))
	return nil
}

// RunRequest describes one complete lifecycle
type RunRequest struct {
	Params  *ParameterSet
	Command []string
	Destroy bool
	Stdio   Stdio

	// OnCreated is called with the handle before the command finishes.
	OnCreated func(Handle)
}

// Run creates the jail, runs the command, and destroys the jail when
// requested. Creation and launch failures are returned; a failed removal
// is only returned alongside a launch failure.
func (c *Controller) Run(ctx context.Context, req RunRequest) (Result, error) {
	lc, err := c.Start(ctx, req.Params, req.Command, req.Stdio)
	if err != nil {
		return Result{}, err
	}
	if req.OnCreated != nil {
		req.OnCreated(lc.Handle())
	}

	result, waitErr := lc.Wait()
	if !req.Destroy {
		return result, waitErr
	}

	destroyErr := lc.Destroy()
	result.Destroyed = destroyErr == nil
	if waitErr == nil {
		return result, nil
	}
	if destroyErr != nil {
		return result, multierror.Append(waitErr, destroyErr)
	}
	return result, waitErr
}

package sandbox

import (
	"context"
	"errors"
	"math/rand"
	"os/exec"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// eventLog records the order in which kernel, launcher, and test events happen
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) index(event string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Index(l.events, event)
}

// MockKernel implements Kernel in memory
type MockKernel struct {
	mu        sync.Mutex
	log       *eventLog
	nextID    int
	live      map[int]bool
	created   []*ParameterSet
	createErr error
	destroyed []Handle
	delay     func()
}

func newMockKernel(log *eventLog) *MockKernel {
	return &MockKernel{log: log, nextID: 1, live: make(map[int]bool)}
}

func (k *MockKernel) Create(params *ParameterSet) (Handle, error) {
	if k.delay != nil {
		k.delay()
	}
	if _, err := Marshal(params); err != nil {
		return Handle{}, &CreationError{Err: err}
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.createErr != nil {
		return Handle{}, k.createErr
	}
	h := Handle{ID: k.nextID}
	k.nextID++
	k.live[h.ID] = true
	k.created = append(k.created, params)
	if k.log != nil {
		k.log.add("create")
	}
	return h, nil
}

func (k *MockKernel) Destroy(h Handle) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.live[h.ID] {
		return errors.New("no such jail")
	}
	delete(k.live, h.ID)
	k.destroyed = append(k.destroyed, h)
	if k.log != nil {
		k.log.add("destroy")
	}
	return nil
}

// MockLauncher implements ProcessLauncher without starting processes
type MockLauncher struct {
	mu        sync.Mutex
	log       *eventLog
	launched  [][]string
	launchErr error
	exitCode  int
	waitErr   error
	release   chan struct{}
}

func (l *MockLauncher) Launch(_ context.Context, argv []string, _ Stdio) (Process, error) {
	l.mu.Lock()
	l.launched = append(l.launched, argv)
	l.mu.Unlock()
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	if l.log != nil {
		l.log.add("launch")
	}
	return &mockProcess{launcher: l}, nil
}

func (l *MockLauncher) calls() [][]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.launched)
}

type mockProcess struct {
	launcher *MockLauncher
}

func (p *mockProcess) Wait() (int, error) {
	if p.launcher.release != nil {
		<-p.launcher.release
	}
	if p.launcher.log != nil {
		p.launcher.log.add("exit")
	}
	return p.launcher.exitCode, p.launcher.waitErr
}

func newTestController(t *testing.T, cfg *Config, kernel Kernel, launcher ProcessLauncher) *Controller {
	t.Helper()
	return NewController(zaptest.NewLogger(t), cfg, WithKernel(kernel), WithProcessLauncher(launcher))
}

func TestControllerConstructors(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := &Config{DefaultPath: "/", Persist: true, ExecTool: "jexec", ListTool: "jls"}

	t.Run("DefaultConstructor", func(t *testing.T) {
		c := NewController(logger, cfg)
		require.NotNil(t, c)
		assert.Equal(t, logger, c.logger)
		assert.Equal(t, cfg, c.config)
		assert.Equal(t, SystemKernel{}, c.Kernel())
		assert.Equal(t, ExecLauncher{}, c.Launcher())
	})

	t.Run("ConstructorWithOptions", func(t *testing.T) {
		kernel := newMockKernel(nil)
		launcher := &MockLauncher{}
		c := NewController(logger, cfg, WithKernel(kernel), WithProcessLauncher(launcher))
		assert.Equal(t, kernel, c.Kernel())
		assert.Equal(t, launcher, c.Launcher())
	})
}

func TestControllerHandleObservedBeforeCommandFinishes(t *testing.T) {
	log := &eventLog{}
	kernel := newMockKernel(log)
	launcher := &MockLauncher{log: log, release: make(chan struct{})}
	c := newTestController(t, &Config{DefaultPath: "/"}, kernel, launcher)

	lc, err := c.Start(context.Background(), NewParameterSet(), []string{"/bin/true"}, Stdio{})
	require.NoError(t, err)
	log.add("observed")

	assert.Equal(t, 1, lc.Handle().ID)
	assert.NotEmpty(t, lc.ID())
	assert.GreaterOrEqual(t, int(lc.State()), int(StateCreated))

	close(launcher.release)
	result, err := lc.Wait()
	require.NoError(t, err)
	assert.Equal(t, StateDone, lc.State())
	assert.Equal(t, Handle{ID: 1}, result.Handle)

	require.NoError(t, lc.Destroy())
	assert.Equal(t, StateDestroyed, lc.State())

	assert.Less(t, log.index("create"), log.index("observed"))
	assert.Less(t, log.index("create"), log.index("launch"))
	assert.Less(t, log.index("observed"), log.index("exit"))
	assert.Less(t, log.index("exit"), log.index("destroy"))
}

func TestControllerOrderingUnderRandomScheduling(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var rngMu sync.Mutex
	jitter := func() {
		rngMu.Lock()
		d := time.Duration(rng.Intn(200)) * time.Microsecond
		rngMu.Unlock()
		time.Sleep(d)
	}

	for i := 0; i < 100; i++ {
		log := &eventLog{}
		kernel := newMockKernel(log)
		kernel.delay = jitter
		launcher := &MockLauncher{log: log}
		c := newTestController(t, &Config{DefaultPath: "/"}, kernel, launcher)

		result, err := c.Run(context.Background(), RunRequest{
			Params:  NewParameterSet(),
			Command: []string{"/bin/true"},
			Destroy: true,
			OnCreated: func(Handle) {
				assert.Equal(t, -1, log.index("destroy"))
				log.add("observed")
			},
		})
		require.NoError(t, err)
		assert.True(t, result.Destroyed)

		create, observed, destroy := log.index("create"), log.index("observed"), log.index("destroy")
		require.GreaterOrEqual(t, create, 0)
		assert.Less(t, create, observed, "iteration %d: %v", i, log.events)
		assert.Less(t, observed, destroy, "iteration %d: %v", i, log.events)
		assert.Less(t, log.index("exit"), destroy, "iteration %d: %v", i, log.events)
	}
}

func TestControllerDefaults(t *testing.T) {
	kernel := newMockKernel(nil)
	launcher := &MockLauncher{}
	c := newTestController(t, &Config{DefaultPath: "/jails/default", Persist: true}, kernel, launcher)

	params := NewParameterSet().Set("name", Text("myjail"))
	_, err := c.Run(context.Background(), RunRequest{Params: params, Command: []string{"/bin/true"}})
	require.NoError(t, err)

	require.Len(t, kernel.created, 1)
	assert.Equal(t, []Entry{
		{Key: "name", Value: Text("myjail")},
		{Key: ParamPath, Value: Text("/jails/default")},
		{Key: ParamPersist, Value: Flag()},
	}, kernel.created[0].Entries())
	assert.Equal(t, 1, params.Len(), "caller's parameters must not change")

	t.Run("ExplicitPathWins", func(t *testing.T) {
		kernel := newMockKernel(nil)
		c := newTestController(t, &Config{DefaultPath: "/"}, kernel, &MockLauncher{})
		_, err := c.Run(context.Background(), RunRequest{
			Params:  NewParameterSet().Apply(RootPath("/jails/a")),
			Command: []string{"/bin/true"},
		})
		require.NoError(t, err)
		path, _ := kernel.created[0].Path()
		assert.Equal(t, "/jails/a", path)
		assert.False(t, kernel.created[0].Has(ParamPersist))
	})
}

func TestControllerExecTool(t *testing.T) {
	t.Run("WrapsCommand", func(t *testing.T) {
		launcher := &MockLauncher{}
		c := newTestController(t, &Config{DefaultPath: "/", ExecTool: "jexec"}, newMockKernel(nil), launcher)
		_, err := c.Run(context.Background(), RunRequest{Params: NewParameterSet(), Command: []string{"sh", "-c", "id"}})
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"jexec", "1", "sh", "-c", "id"}}, launcher.calls())
	})

	t.Run("HostCommandWhenEmpty", func(t *testing.T) {
		launcher := &MockLauncher{}
		c := newTestController(t, &Config{DefaultPath: "/"}, newMockKernel(nil), launcher)
		_, err := c.Run(context.Background(), RunRequest{Params: NewParameterSet(), Command: []string{"sh"}})
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"sh"}}, launcher.calls())
	})
}

func TestControllerCreationFailure(t *testing.T) {
	kernel := newMockKernel(nil)
	kernel.createErr = errors.New("children.max exceeded")
	launcher := &MockLauncher{}
	c := newTestController(t, &Config{DefaultPath: "/"}, kernel, launcher)

	called := false
	_, err := c.Run(context.Background(), RunRequest{
		Params:    NewParameterSet(),
		Command:   []string{"/bin/true"},
		Destroy:   true,
		OnCreated: func(Handle) { called = true },
	})
	require.Error(t, err)

	var creationErr *CreationError
	require.ErrorAs(t, err, &creationErr)
	assert.Contains(t, err.Error(), "children.max exceeded")
	assert.False(t, called)
	assert.Empty(t, launcher.calls(), "no command may run without a jail")
	assert.Empty(t, kernel.destroyed)
}

func TestControllerMissingPathIsCreationError(t *testing.T) {
	launcher := &MockLauncher{}
	c := newTestController(t, &Config{}, newMockKernel(nil), launcher)

	_, err := c.Start(context.Background(), NewParameterSet().Set("path", Integer(0)), []string{"/bin/true"}, Stdio{})
	require.ErrorIs(t, err, ErrMissingPath)
	assert.Empty(t, launcher.calls())
}

func TestControllerNoCommand(t *testing.T) {
	kernel := newMockKernel(nil)
	c := newTestController(t, &Config{DefaultPath: "/"}, kernel, &MockLauncher{})

	_, err := c.Start(context.Background(), NewParameterSet(), nil, Stdio{})
	require.ErrorIs(t, err, ErrNoCommand)
	assert.Empty(t, kernel.created)
}

func TestControllerLaunchFailure(t *testing.T) {
	t.Run("HandleDeliveredAndJailDestroyed", func(t *testing.T) {
		kernel := newMockKernel(nil)
		launcher := &MockLauncher{launchErr: exec.ErrNotFound}
		c := newTestController(t, &Config{DefaultPath: "/"}, kernel, launcher)

		var observed Handle
		result, err := c.Run(context.Background(), RunRequest{
			Params:    NewParameterSet(),
			Command:   []string{"does-not-exist"},
			Destroy:   true,
			OnCreated: func(h Handle) { observed = h },
		})
		require.Error(t, err)

		var launchErr *LaunchError
		require.ErrorAs(t, err, &launchErr)
		require.ErrorIs(t, err, exec.ErrNotFound)
		assert.Equal(t, Handle{ID: 1}, observed)
		assert.Equal(t, []Handle{{ID: 1}}, kernel.destroyed)
		assert.True(t, result.Destroyed)
	})

	t.Run("TeardownFailureIsReportedToo", func(t *testing.T) {
		kernel := newMockKernel(nil)
		launcher := &MockLauncher{launchErr: exec.ErrNotFound}
		c := newTestController(t, &Config{DefaultPath: "/"}, kernel, launcher)

		_, err := c.Run(context.Background(), RunRequest{
			Params:  NewParameterSet(),
			Command: []string{"does-not-exist"},
			Destroy: true,
			OnCreated: func(h Handle) {
				require.NoError(t, kernel.Destroy(h))
			},
		})
		require.Error(t, err)

		var launchErr *LaunchError
		var destructionErr *DestructionError
		assert.ErrorAs(t, err, &launchErr)
		assert.ErrorAs(t, err, &destructionErr)
	})

	t.Run("NoTeardownWhenNotRequested", func(t *testing.T) {
		kernel := newMockKernel(nil)
		c := newTestController(t, &Config{DefaultPath: "/"}, kernel, &MockLauncher{launchErr: exec.ErrNotFound})

		result, err := c.Run(context.Background(), RunRequest{Params: NewParameterSet(), Command: []string{"x"}})
		require.Error(t, err)
		assert.Empty(t, kernel.destroyed)
		assert.False(t, result.Destroyed)
	})
}

func TestControllerCommandFailureIsNotFatal(t *testing.T) {
	kernel := newMockKernel(nil)
	c := newTestController(t, &Config{DefaultPath: "/"}, kernel, &MockLauncher{exitCode: 3})

	result, err := c.Run(context.Background(), RunRequest{
		Params:  NewParameterSet(),
		Command: []string{"/bin/false"},
		Destroy: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitCode)
	assert.True(t, result.Destroyed)

	var failure *CommandFailure
	require.ErrorAs(t, result.Failure(), &failure)
	assert.Equal(t, 3, failure.ExitCode)
}

func TestControllerPersistsWithoutDestroy(t *testing.T) {
	kernel := newMockKernel(nil)
	c := newTestController(t, &Config{DefaultPath: "/", Persist: true}, kernel, &MockLauncher{})

	result, err := c.Run(context.Background(), RunRequest{Params: NewParameterSet(), Command: []string{"/bin/true"}})
	require.NoError(t, err)
	assert.False(t, result.Destroyed)
	assert.True(t, kernel.live[result.Handle.ID])
}

func TestDestroyTwice(t *testing.T) {
	t.Run("Kernel", func(t *testing.T) {
		kernel := newMockKernel(nil)
		h, err := kernel.Create(NewParameterSet().Apply(RootPath("/")))
		require.NoError(t, err)

		require.NoError(t, kernel.Destroy(h))
		assert.NotPanics(t, func() {
			assert.Error(t, kernel.Destroy(h))
		})
	})

	t.Run("Lifecycle", func(t *testing.T) {
		kernel := newMockKernel(nil)
		c := newTestController(t, &Config{DefaultPath: "/"}, kernel, &MockLauncher{})
		lc, err := c.Start(context.Background(), NewParameterSet(), []string{"/bin/true"}, Stdio{})
		require.NoError(t, err)
		_, err = lc.Wait()
		require.NoError(t, err)

		require.NoError(t, lc.Destroy())
		err = lc.Destroy()
		require.ErrorIs(t, err, ErrHandleRetired)

		var destructionErr *DestructionError
		require.ErrorAs(t, err, &destructionErr)
		assert.Equal(t, lc.Handle(), destructionErr.Handle)
		assert.Len(t, kernel.destroyed, 1)
	})

	t.Run("KernelFailureIsWrapped", func(t *testing.T) {
		kernel := newMockKernel(nil)
		c := newTestController(t, &Config{DefaultPath: "/"}, kernel, &MockLauncher{})
		lc, err := c.Start(context.Background(), NewParameterSet(), []string{"/bin/true"}, Stdio{})
		require.NoError(t, err)
		_, _ = lc.Wait()

		require.NoError(t, kernel.Destroy(lc.Handle()))
		err = lc.Destroy()

		var destructionErr *DestructionError
		require.ErrorAs(t, err, &destructionErr)
		assert.NotErrorIs(t, err, ErrHandleRetired)
		assert.Equal(t, StateDone, lc.State())
	})
}

func TestDestroyWhileRunning(t *testing.T) {
	kernel := newMockKernel(nil)
	launcher := &MockLauncher{release: make(chan struct{})}
	c := newTestController(t, &Config{DefaultPath: "/"}, kernel, launcher)

	lc, err := c.Start(context.Background(), NewParameterSet(), []string{"/bin/sleep", "10"}, Stdio{})
	require.NoError(t, err)
	require.NoError(t, lc.Destroy())

	close(launcher.release)
	_, err = lc.Wait()
	require.NoError(t, err)
	assert.Equal(t, StateDestroyed, lc.State())
	require.ErrorIs(t, lc.Destroy(), ErrHandleRetired)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "created", StateCreated.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "destroyed", StateDestroyed.String())
}

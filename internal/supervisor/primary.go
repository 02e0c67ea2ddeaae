package supervisor

import (
	"context"
	"log/slog"
	"os"
	"syscall"
	"time"
)

// Observer is notified about pool changes.
type Observer interface {
	WorkerRestarted(reason string)
	WorkersAlive(n int)
}

// Primary keeps a fixed-size pool of worker processes alive.
type Primary struct {
	Spawner         Spawner
	Workers         int
	Backoff         time.Duration
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
	Observer        Observer
}

type exit struct {
	pid int
	err error
}

// Run forks the pool and replaces every worker that exits, one replacement per
// exit after Backoff. When ctx is done the workers receive SIGTERM and Run
// returns once all of them have exited.
func (p *Primary) Run(ctx context.Context) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}

	procs := make(map[int]Process, workers)
	exits := make(chan exit, workers)
	respawn := make(chan struct{}, workers)

	start := func() bool {
		proc, err := p.Spawner.Spawn(ctx)
		if err != nil {
			logger.Error("spawn worker", slog.Any("error", err))
			return false
		}
		procs[proc.Pid()] = proc
		logger.Info("worker started", slog.Int("pid", proc.Pid()))
		go func() {
			exits <- exit{pid: proc.Pid(), err: proc.Wait()}
		}()
		p.observeAlive(len(procs))
		return true
	}
	schedule := func() {
		go func() {
			t := time.NewTimer(p.Backoff)
			defer t.Stop()
			select {
			case <-t.C:
				respawn <- struct{}{}
			case <-ctx.Done():
			}
		}()
	}

	for i := 0; i < workers; i++ {
		if !start() {
			schedule()
		}
	}

	for {
		select {
		case e := <-exits:
			delete(procs, e.pid)
			p.observeAlive(len(procs))
			code := ExitCode(e.err)
			logger.Warn("worker exited", slog.Int("pid", e.pid), slog.Int("code", code))
			if p.Observer != nil {
				p.Observer.WorkerRestarted(exitReason(code))
			}
			schedule()

		case <-respawn:
			if ctx.Err() != nil {
				continue
			}
			if !start() {
				schedule()
			}

		case <-ctx.Done():
			return p.shutdown(logger, procs, exits)
		}
	}
}

func (p *Primary) shutdown(logger *slog.Logger, procs map[int]Process, exits <-chan exit) error {
	logger.Info("stopping workers", slog.Int("count", len(procs)))
	for pid, proc := range procs {
		if err := proc.Signal(syscall.SIGTERM); err != nil {
			logger.Warn("signal worker", slog.Int("pid", pid), slog.Any("error", err))
		}
	}

	timeout := p.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for len(procs) > 0 {
		select {
		case e := <-exits:
			delete(procs, e.pid)
			p.observeAlive(len(procs))
		case <-deadline.C:
			for pid, proc := range procs {
				logger.Error("worker did not stop in time", slog.Int("pid", pid))
				_ = proc.Signal(os.Kill)
			}
			deadline.Reset(timeout)
		}
	}
	return nil
}

func (p *Primary) observeAlive(n int) {
	if p.Observer != nil {
		p.Observer.WorkersAlive(n)
	}
}

func exitReason(code int) string {
	switch code {
	case 0:
		return "exit"
	case FaultExitCode:
		return "fault"
	default:
		return "crash"
	}
}

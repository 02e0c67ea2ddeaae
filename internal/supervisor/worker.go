package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// FaultExitCode is the status a worker exits with after an unrecoverable fault.
const FaultExitCode = 3

// Service is what a worker serves; Close must drain in-flight work.
type Service interface {
	Serve(ln net.Listener) error
	Close() error
}

// Worker runs a Service and turns faults into a controlled exit.
type Worker struct {
	FaultDelay time.Duration
	Logger     *slog.Logger

	faults chan error
}

func NewWorker(faultDelay time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{FaultDelay: faultDelay, Logger: logger, faults: make(chan error, 1)}
}

// Fault reports an unrecoverable error. Only the first fault is kept.
func (w *Worker) Fault(err error) {
	select {
	case w.faults <- err:
	default:
	}
}

// Guard runs fn in a goroutine and reports a panic as a fault.
func (w *Worker) Guard(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				w.Fault(fmt.Errorf("%s: panic: %v", name, r))
			}
		}()
		fn()
	}()
}

// Run serves until ctx is done or a fault occurs and returns the process exit code.
// A cancelled ctx closes gracefully and yields 0. A fault closes gracefully, waits
// FaultDelay so the primary's replacement can bind, and yields FaultExitCode.
func (w *Worker) Run(ctx context.Context, svc Service, ln net.Listener) int {
	served := make(chan error, 1)
	w.Guard("serve", func() {
		served <- svc.Serve(ln)
	})

	var fault error
	select {
	case <-ctx.Done():
		w.Logger.Info("worker stopping")
		if err := svc.Close(); err != nil {
			w.Logger.Error("graceful close", slog.Any("error", err))
		}
		return 0
	case err := <-served:
		if err == nil {
			err = errors.New("listener closed unexpectedly")
		}
		fault = err
	case fault = <-w.faults:
	}

	w.Logger.Error("worker fault", slog.Any("error", fault))
	if err := svc.Close(); err != nil {
		w.Logger.Error("graceful close", slog.Any("error", err))
	}
	select {
	case <-time.After(w.FaultDelay):
	case <-ctx.Done():
	}
	return FaultExitCode
}

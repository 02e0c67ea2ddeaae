package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
)

// Process is a running worker as seen by the primary.
type Process interface {
	Pid() int
	Signal(sig os.Signal) error
	Wait() error
}

// Spawner starts worker processes.
type Spawner interface {
	Spawn(ctx context.Context) (Process, error)
}

// ExecSpawner re-executes a binary, normally the running one with its worker subcommand.
type ExecSpawner struct {
	Path   string
	Args   []string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// SelfSpawner re-executes the current binary with args.
func SelfSpawner(args ...string) (*ExecSpawner, error) {
	path, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("supervisor: resolve executable: %w", err)
	}
	return &ExecSpawner{Path: path, Args: args, Stdout: os.Stdout, Stderr: os.Stderr}, nil
}

func (s *ExecSpawner) Spawn(ctx context.Context) (Process, error) {
	// not CommandContext: workers must outlive ctx long enough to drain on a forwarded signal
	cmd := exec.Command(s.Path, s.Args...)
	cmd.Env = append(os.Environ(), s.Env...)
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("supervisor: start worker: %w", err)
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int                   { return p.cmd.Process.Pid }
func (p *execProcess) Signal(sig os.Signal) error { return p.cmd.Process.Signal(sig) }
func (p *execProcess) Wait() error                { return p.cmd.Wait() }

// ExitCode extracts the status of a finished process; -1 when unknown.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// DetectWorkers returns override when positive, otherwise the number of logical CPUs.
func DetectWorkers(override int) int {
	if override > 0 {
		return override
	}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

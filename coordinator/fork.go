package coordinator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	stderrors "github.com/aleksip/RecordManager/errors"
)

// Forker launches the merged-record stream as a sibling process, used when
// threaded_merged_record_update is enabled (spec.md §4.I). Each worker owns
// its own document-store and Solr-cluster connections, so the child is a
// fresh process rather than a goroutine (§3 Ownership).
type Forker interface {
	Fork(ctx context.Context, opts Options) (ChildHandle, error)
}

// ChildHandle represents a running merged-stream child process.
type ChildHandle interface {
	// Wait blocks until the child exits, returning its exit code:
	// 0 = nothing updated, 1 = updates applied (requires a final commit),
	// 2 = failure (spec.md §4.I).
	Wait(ctx context.Context) (int, error)

	// Signal asks the child to stop (forwarded SIGINT), without waiting
	// for it to exit.
	Signal(ctx context.Context) error
}

// ExecForker forks the merged-record stream by re-executing the current
// binary with a hidden flag that selects the merged-only code path,
// grounded on cmd/semstreams/main.go's single-binary, flag-driven entry
// point.
type ExecForker struct {
	// Executable is the path to re-exec. Defaults to os.Executable().
	Executable string

	// Args are the flags to pass through to the child beyond the hidden
	// merged-stream selector (e.g. --config, --source, --from).
	Args []string

	// Env overrides the child's environment. Defaults to os.Environ().
	Env []string
}

// execChild adapts an in-flight *exec.Cmd to ChildHandle.
type execChild struct {
	cmd    *exec.Cmd
	stderr *bytes.Buffer
}

// MergedStreamFlag is the hidden flag the child process recognizes to run
// only the merged-record stream and then exit, rather than the full
// updateRecords operation.
const MergedStreamFlag = "--merged-stream-worker"

// Fork implements Forker.
func (f *ExecForker) Fork(ctx context.Context, opts Options) (ChildHandle, error) {
	exe := f.Executable
	if exe == "" {
		path, err := os.Executable()
		if err != nil {
			return nil, stderrors.Wrap(err, "coordinator", "Fork", "resolve executable")
		}
		exe = path
	}

	args := append([]string{MergedStreamFlag}, f.Args...)
	args = append(args, optionsToArgs(opts)...)

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Env = f.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.Stdout = os.Stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, stderrors.Wrap(err, "coordinator", "Fork", "start merged-stream child")
	}

	return &execChild{cmd: cmd, stderr: &stderr}, nil
}

// optionsToArgs reproduces the subset of Options relevant to the merged
// stream as CLI flags for the child, skipping anything that only matters
// to the single-record stream.
func optionsToArgs(opts Options) []string {
	var args []string
	switch {
	case opts.SourceRaw != "":
		args = append(args, "--source", opts.SourceRaw)
	case opts.SourceID != "":
		args = append(args, "--source", opts.SourceID)
	}
	if opts.SingleID != "" {
		args = append(args, "--single", opts.SingleID)
	}
	if opts.FromDate != nil {
		args = append(args, "--from", opts.FromDate.Format(time.RFC3339))
	}
	if opts.DatePerServer {
		args = append(args, "--date-per-server")
	}
	if opts.DumpPrefix != "" {
		args = append(args, "--dump-prefix", opts.DumpPrefix)
	}
	return args
}

func (c *execChild) Wait(ctx context.Context) (int, error) {
	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = c.cmd.Process.Signal(syscall.SIGINT)
		<-done
		return 2, ctx.Err()
	case err := <-done:
		if err == nil {
			return 0, nil
		}
		var exitErr *exec.ExitError
		if ok := asExitError(err, &exitErr); ok {
			return exitErr.ExitCode(), nil
		}
		return 2, stderrors.Wrap(fmt.Errorf("%s: %s", err, c.stderr.String()), "coordinator", "Wait", "merged-stream child")
	}
}

func (c *execChild) Signal(ctx context.Context) error {
	if c.cmd.Process == nil {
		return nil
	}
	return c.cmd.Process.Signal(syscall.SIGINT)
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

// exitCodeFromResult maps a merged-stream Result to the child process exit
// code the parent expects (spec.md §4.I).
func exitCodeFromResult(updatesApplied bool, failed bool) int {
	switch {
	case failed:
		return 2
	case updatesApplied:
		return 1
	default:
		return 0
	}
}

/*
Package wasmrun sandboxes execution of a job's WASM program bytes against a
single task's argument bytes (C5). It instantiates each module with no
ambient capabilities beyond what the host ABI explicitly grants: the
argument is written into the module's own linear memory and the result is
read back out. WASI preview1 imports are linked so that WASI-built
modules instantiate, but the module config mounts no filesystem and
grants no network sockets.
*/
package wasmrun

import (
	"context"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// FailureKind classifies why a run failed (spec.md §4.5).
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureInstantiation
	FailureRunning
	FailureTimeout
	FailureAborted
)

func (k FailureKind) String() string {
	switch k {
	case FailureInstantiation:
		return "instantiation"
	case FailureRunning:
		return "running"
	case FailureTimeout:
		return "timeout"
	case FailureAborted:
		return "aborted"
	default:
		return "none"
	}
}

// RunError reports a classified WASM execution failure.
type RunError struct {
	Kind FailureKind
	Err  error
}

func (e *RunError) Error() string { return fmt.Sprintf("wasmrun: %s: %v", e.Kind, e.Err) }
func (e *RunError) Unwrap() error { return e.Err }

// entrypoint is the host ABI's exported function name: it reads its
// argument from linear memory at (argPtr, argLen) and returns a packed
// (resultPtr<<32 | resultLen) per wazero's canonical ABI convention.
const entrypoint = "run_task"

// Runner executes WASM programs under a wall-clock deadline.
type Runner struct {
	rt wazero.Runtime
}

// New constructs a Runner backed by a fresh wazero runtime that closes a
// running module once its call's context is done, so Run's deadline
// interrupts execution.
func New(ctx context.Context) (*Runner, error) {
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("wasmrun: instantiate WASI: %w", err)
	}
	return &Runner{rt: rt}, nil
}

// Close releases every module and compilation cache held by the runner.
func (r *Runner) Close(ctx context.Context) error {
	return r.rt.Close(ctx)
}

// Run instantiates program, invokes its entrypoint with argument, and
// returns the result bytes. The timeout is enforced as a wall-clock
// deadline: once it elapses the module's context is cancelled and
// execution is aborted promptly (spec.md §4.5, §5 "release the WASM
// instance promptly").
func (r *Runner) Run(ctx context.Context, program, argument []byte, timeout time.Duration) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	compiled, err := r.rt.CompileModule(runCtx, program)
	if err != nil {
		return nil, &RunError{Kind: FailureInstantiation, Err: err}
	}
	defer compiled.Close(runCtx)

	modCfg := wazero.NewModuleConfig().WithStartFunctions("_start")
	mod, err := r.rt.InstantiateModule(runCtx, compiled, modCfg)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, &RunError{Kind: FailureTimeout, Err: err}
		}
		return nil, &RunError{Kind: FailureInstantiation, Err: err}
	}
	defer mod.Close(runCtx)

	result, err := r.invoke(runCtx, mod, argument)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, &RunError{Kind: FailureTimeout, Err: err}
		}
		return nil, &RunError{Kind: FailureRunning, Err: err}
	}
	return result, nil
}

func (r *Runner) invoke(ctx context.Context, mod api.Module, argument []byte) ([]byte, error) {
	fn := mod.ExportedFunction(entrypoint)
	if fn == nil {
		return nil, fmt.Errorf("wasmrun: module has no %q export", entrypoint)
	}

	mem := mod.Memory()
	const argPtr = uint32(8) // low memory reserved by the host ABI for scratch writes
	if !mem.Write(argPtr, argument) {
		return nil, fmt.Errorf("wasmrun: argument of %d bytes does not fit in linear memory", len(argument))
	}

	packed, err := fn.Call(ctx, uint64(argPtr), uint64(len(argument)))
	if err != nil {
		return nil, err
	}
	if len(packed) != 1 {
		return nil, fmt.Errorf("wasmrun: %s returned %d values, want 1", entrypoint, len(packed))
	}

	resultPtr := uint32(packed[0] >> 32)
	resultLen := uint32(packed[0])
	result, ok := mem.Read(resultPtr, resultLen)
	if !ok {
		return nil, fmt.Errorf("wasmrun: result region (%d,%d) out of bounds", resultPtr, resultLen)
	}
	// Copy out: the source slice aliases the module's memory, which this
	// function is about to close.
	out := make([]byte, len(result))
	copy(out, result)
	return out, nil
}

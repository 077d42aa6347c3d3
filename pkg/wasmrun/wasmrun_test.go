package wasmrun

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureKindString(t *testing.T) {
	assert.Equal(t, "timeout", FailureTimeout.String())
	assert.Equal(t, "none", FailureNone.String())
}

func TestRunRejectsUninstantiableModule(t *testing.T) {
	if testing.Short() {
		t.Skip("compiles a module; skipped in short mode")
	}
	ctx := context.Background()
	runner, err := New(ctx)
	require.NoError(t, err)
	defer runner.Close(ctx)

	_, err = runner.Run(ctx, []byte("not a wasm module"), nil, time.Second)
	require.Error(t, err)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, FailureInstantiation, runErr.Kind)
}

package runcmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesStdout(t *testing.T) {
	r := New(5 * time.Second)
	out, err := r.Run(context.Background(), "sh", "-c", "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestRunNonZeroExit(t *testing.T) {
	r := New(5 * time.Second)
	_, err := r.Run(context.Background(), "sh", "-c", "echo oops >&2; exit 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")
}

func TestRunTimeout(t *testing.T) {
	r := New(50 * time.Millisecond)
	start := time.Now()
	_, err := r.Run(context.Background(), "sh", "-c", "sleep 5")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRunMissingBinary(t *testing.T) {
	r := New(time.Second)
	_, err := r.Run(context.Background(), "definitely-not-a-binary-xyz")
	assert.Error(t, err)
}

func TestNewDefaultsTimeout(t *testing.T) {
	r := New(0)
	assert.Equal(t, 10*time.Second, r.Timeout)
}

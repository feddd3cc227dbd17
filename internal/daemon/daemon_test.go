package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coreflow.pid")

	guard, err := Acquire(path)
	require.NoError(t, err)
	require.NotNil(t, guard)

	running, pid := Status(path)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)

	guard.Release()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireRejectsLiveHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coreflow.pid")

	guard, err := Acquire(path)
	require.NoError(t, err)
	defer guard.Release()

	_, err = Acquire(path)
	require.Error(t, err)
}

func TestAcquireReplacesStalePidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coreflow.pid")
	// A PID essentially guaranteed not to be a live process in the test sandbox.
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(999999)), 0o644))

	guard, err := Acquire(path)
	require.NoError(t, err)
	defer guard.Release()

	running, pid := Status(path)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)
}

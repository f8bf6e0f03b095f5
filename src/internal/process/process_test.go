package process

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRebooterMissingBinary(t *testing.T) {
	r := &CommandRebooter{Command: "definitely-not-a-reboot-binary"}
	err := r.Reboot()

	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.Equal(t, "definitely-not-a-reboot-binary", spawnErr.Command)
}

func TestPIDFileLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "updater.pid")
	p := NewPIDFile(path)

	require.NoError(t, p.Acquire())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(data))

	require.NoError(t, p.Release())
	assert.NoFileExists(t, path)
	require.NoError(t, p.Release())
}

func TestPIDFileReplacesGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "updater.pid")
	require.NoError(t, os.WriteFile(path, []byte("not a pid"), 0o644))

	require.NoError(t, NewPIDFile(path).Acquire())
}

func TestPIDFileRejectsLiveOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "updater.pid")
	// the parent of the test binary is alive for the duration of the test
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o644))

	err := NewPIDFile(path).Acquire()
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

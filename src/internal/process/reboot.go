package process

import (
	"os"
	"os/exec"

	"github.com/cli/safeexec"
	log "github.com/sirupsen/logrus"
)

// ExitRestartRequired is the exit status that tells the launcher script to
// start the updater again after a self-update
const ExitRestartRequired = 5

// DefaultRebootCommand is the device reboot binary
const DefaultRebootCommand = "reboot"

// Rebooter restarts the device
type Rebooter interface {
	Reboot() error
}

// Exiter terminates the current process
type Exiter func(code int)

// CommandRebooter reboots by spawning an external command without waiting for it
type CommandRebooter struct {
	Command string
	Args    []string
}

// NewCommandRebooter creates a rebooter that runs the system reboot binary
func NewCommandRebooter() *CommandRebooter {
	return &CommandRebooter{Command: DefaultRebootCommand}
}

// Reboot looks up and starts the reboot command
func (r *CommandRebooter) Reboot() error {
	path, err := safeexec.LookPath(r.Command)
	if err != nil {
		return &SpawnError{Command: r.Command, Err: err}
	}

	cmd := exec.Command(path, r.Args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return &SpawnError{Command: path, Err: err}
	}

	log.WithField("pid", cmd.Process.Pid).Info("reboot command started")
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Warnf("reboot command exited: %v", err)
		}
	}()
	return nil
}

// OSExit is the Exiter used outside tests. Deferred calls do not run.
func OSExit(code int) {
	log.Infof("exiting with status %d", code)
	os.Exit(code)
}

package process

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
)

// ErrAlreadyRunning is returned by Acquire when another live updater owns the PID file
var ErrAlreadyRunning = errors.New("another updater instance is running")

// PIDFile keeps a single updater instance per data directory
type PIDFile struct {
	filePath string
	mu       sync.Mutex
	held     bool
}

// NewPIDFile creates a PID file guard at filePath
func NewPIDFile(filePath string) *PIDFile {
	return &PIDFile{filePath: filePath}
}

// Acquire writes the current PID. A stale file left by a dead process is
// replaced; a file naming a live process yields ErrAlreadyRunning.
func (p *PIDFile) Acquire() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pid, err := p.read(); err == nil && pid != os.Getpid() && alive(pid) {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	} else if err != nil && !os.IsNotExist(err) && !errors.Is(err, strconv.ErrSyntax) {
		return fmt.Errorf("failed to read PID file: %w", err)
	}

	if err := os.WriteFile(p.filePath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	p.held = true
	return nil
}

// Release removes the PID file if this instance wrote it
func (p *PIDFile) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.held {
		return nil
	}
	p.held = false
	if err := os.Remove(p.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

func (p *PIDFile) read() (int, error) {
	data, err := os.ReadFile(p.filePath)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

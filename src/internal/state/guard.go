package state

// TryBegin marks a background task as running. It returns false, and changes
// nothing, when another task already holds the state.
func (m *Manager) TryBegin() bool {
	m.mu.Lock()
	if m.rec.busy {
		m.mu.Unlock()
		return false
	}
	m.rec.busy = true
	m.mu.Unlock()

	m.notify(true)
	return true
}

// End releases the task slot taken by TryBegin
func (m *Manager) End() {
	m.mu.Lock()
	m.rec.busy = false
	m.mu.Unlock()

	m.notify(false)
}

// Busy reports whether a background task is running
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec.busy
}

// OnBusyChange registers fn to be called after every TryBegin/End transition.
// fn runs on the calling goroutine without the state lock held.
func (m *Manager) OnBusyChange(fn func(busy bool)) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) notify(busy bool) {
	m.listenersMu.Lock()
	listeners := make([]func(bool), len(m.listeners))
	copy(listeners, m.listeners)
	m.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(busy)
	}
}

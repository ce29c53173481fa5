package poller

import (
	"sort"
	"sync"
	"time"
)

// Scheduler defers work. The poller never touches wall-clock timers directly
// so tests can drive the schedule deterministically.
type Scheduler interface {
	// Schedule runs fn after d and returns a cancel func. Cancel after the
	// func has fired is a no-op.
	Schedule(d time.Duration, fn func()) CancelFunc
}

// CancelFunc cancels a scheduled call
type CancelFunc func()

// TimerScheduler is the production scheduler backed by time.AfterFunc
type TimerScheduler struct{}

// Schedule implements Scheduler
func (TimerScheduler) Schedule(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// ManualScheduler queues scheduled calls and fires them only when told to,
// so tests advance virtual time instead of sleeping.
type ManualScheduler struct {
	mu    sync.Mutex
	seq   int
	tasks map[int]manualTask
}

type manualTask struct {
	seq   int
	delay time.Duration
	fn    func()
}

// NewManualScheduler creates an empty manual scheduler
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tasks: make(map[int]manualTask)}
}

// Schedule implements Scheduler
func (m *ManualScheduler) Schedule(d time.Duration, fn func()) CancelFunc {
	m.mu.Lock()
	id := m.seq
	m.seq++
	m.tasks[id] = manualTask{seq: id, delay: d, fn: fn}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.tasks, id)
		m.mu.Unlock()
	}
}

// Pending returns the number of queued calls
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Fire runs every currently-queued call in scheduling order and returns how
// many ran. Calls queued during Fire wait for the next Fire.
func (m *ManualScheduler) Fire() int {
	m.mu.Lock()
	batch := make([]manualTask, 0, len(m.tasks))
	for _, task := range m.tasks {
		batch = append(batch, task)
	}
	m.tasks = make(map[int]manualTask)
	m.mu.Unlock()

	sort.Slice(batch, func(i, j int) bool { return batch[i].seq < batch[j].seq })
	for _, task := range batch {
		task.fn()
	}
	return len(batch)
}

package activity

import (
	"sync"
	"time"
)

// Snapshot is the process activity state polled by the dashboard
type Snapshot struct {
	Status        string    `json:"status"`
	Message       string    `json:"message"`
	CurrentSymbol string    `json:"current_symbol,omitempty"`
	Processed     int       `json:"processed"`
	Total         int       `json:"total"`
	Errors        int       `json:"errors"`
	APICalls      int64     `json:"api_calls"`
	TotalRequests int64     `json:"total_requests"`
	StartedAt     time.Time `json:"started_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Tracker holds the live activity snapshot. Writers are the ranking engine
// and the exchange client; readers are UI polls. Updates never block the
// batch: each write is a short critical section on a plain mutex.
// ⭐ SSOT: 프로세스 활동 상태는 이 트래커에서만
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a tracker in the idle state
func NewTracker() *Tracker {
	now := time.Now()
	return &Tracker{
		snap: Snapshot{
			Status:    "idle",
			Message:   "DCA ranking service initialized",
			StartedAt: now,
			UpdatedAt: now,
		},
	}
}

// Set updates the status line
func (t *Tracker) Set(status, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Status = status
	t.snap.Message = message
	t.snap.CurrentSymbol = ""
	t.snap.UpdatedAt = time.Now()
}

// Progress records one completed unit of work
func (t *Tracker) Progress(symbol string, processed, total, errorCount int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Status = "calculating"
	t.snap.CurrentSymbol = symbol
	t.snap.Processed = processed
	t.snap.Total = total
	t.snap.Errors = errorCount
	t.snap.UpdatedAt = time.Now()
}

// CountAPICall increments the outbound API call counter
func (t *Tracker) CountAPICall() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.APICalls++
}

// CountRequest increments the ranking request counter
func (t *Tracker) CountRequest() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.TotalRequests++
}

// Current returns a copy of the snapshot
func (t *Tracker) Current() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.snap
}

// Package monitor periodically reports the recorder's state to the log and
// to a status file next to it.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/arenalab/arena-recorder/internal/logging"
	"github.com/arenalab/arena-recorder/internal/session"
)

// DefaultInterval is used when Dependencies.Interval is zero.
const DefaultInterval = time.Second

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager *logging.SlogManager
	Session    *session.Context
	Pending    func() int
	Saved      func() int
	StatusPath string
	Interval   time.Duration
}

// Status is one report of the recorder state.
type Status struct {
	Time       time.Time `json:"time"`
	Active     bool      `json:"active"`
	SessionID  string    `json:"session_id,omitempty"`
	Tick       uint64    `json:"tick"`
	Wave       int       `json:"wave"`
	Started    int       `json:"sessions_started"`
	Pending    int       `json:"pending_saves"`
	Saved      int       `json:"saved"`
	Goroutines int       `json:"goroutines"`
	HeapBytes  uint64    `json:"heap_bytes"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus collects the current recorder status.
func (s *Service) GetStatus() Status {
	st := Status{
		Time:       time.Now(),
		Started:    s.deps.Session.Started(),
		Goroutines: runtime.NumGoroutine(),
	}
	st.SessionID, st.Tick, st.Wave, st.Active = s.deps.Session.Snapshot()
	if s.deps.Pending != nil {
		st.Pending = s.deps.Pending()
	}
	if s.deps.Saved != nil {
		st.Saved = s.deps.Saved()
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	st.HeapBytes = mem.HeapAlloc
	return st
}

// WriteStatus replaces the status file with st.
func (s *Service) WriteStatus(st Status) error {
	if s.deps.StatusPath == "" {
		return nil
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	tmp := s.deps.StatusPath + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	return os.Rename(tmp, s.deps.StatusPath)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(done)
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				st := s.GetStatus()
				if err := s.WriteStatus(st); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
				if st.Active {
					logger.Debug("Recorder status",
						"pending_saves", st.Pending,
						"saved", st.Saved,
						"goroutines", st.Goroutines,
						"heap_bytes", st.HeapBytes)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for its goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}

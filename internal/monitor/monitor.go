// Package monitor tracks in-flight tour downloads, detects stalls and
// excessive total duration, and force-aborts stuck sessions so partial
// state never leaks.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/mikaelweill/audio-guide-sub001/internal/constants"
	"github.com/mikaelweill/audio-guide-sub001/internal/domain"
	"github.com/mikaelweill/audio-guide-sub001/internal/logger"
)

// CleanupFunc is invoked after a forced abort to purge any partial state
// the download left behind. Best-effort; failures are logged.
type CleanupFunc func(tourID string)

type session struct {
	id           uint64
	tourID       string
	startTime    time.Time
	lastProgress time.Time
	progress     float64
	cancel       context.CancelCauseFunc
	timer        *time.Timer
}

// DownloadMonitor holds one session per tour id. Health checks are
// cooperative: each check reschedules the next via a delayed callback, and
// removing a session deterministically stops its pending check.
type DownloadMonitor struct {
	mu       sync.Mutex
	sessions map[string]*session
	nextID   uint64

	stallTimeout  time.Duration
	maxDuration   time.Duration
	checkInterval time.Duration
	cleanup       CleanupFunc
	log           *logger.Logger
}

type Options struct {
	StallTimeout  time.Duration
	MaxDuration   time.Duration
	CheckInterval time.Duration
}

func New(opts Options, log *logger.Logger) *DownloadMonitor {
	if opts.StallTimeout <= 0 {
		opts.StallTimeout = constants.DefaultStallTimeout
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = constants.DefaultMaxDownload
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = constants.HealthCheckInterval
	}
	if log == nil {
		log = logger.Default()
	}

	return &DownloadMonitor{
		sessions:      make(map[string]*session),
		stallTimeout:  opts.StallTimeout,
		maxDuration:   opts.MaxDuration,
		checkInterval: opts.CheckInterval,
		log:           log.WithComponent("monitor"),
	}
}

// SetCleanup installs the partial-state cleanup hook. Wired after
// construction because the persistence manager and the monitor reference
// each other.
func (m *DownloadMonitor) SetCleanup(fn CleanupFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanup = fn
}

// Register starts tracking a download and returns its session token. A
// prior session for the same tour is aborted first: no two concurrent
// downloads for one tour. The token identifies this session to Complete,
// so a superseded download unwinding cannot remove its replacement.
func (m *DownloadMonitor) Register(tourID string, cancel context.CancelCauseFunc) uint64 {
	m.mu.Lock()

	prev, superseded := m.sessions[tourID]
	if superseded {
		prev.timer.Stop()
	}

	now := time.Now()
	m.nextID++
	s := &session{
		id:           m.nextID,
		tourID:       tourID,
		startTime:    now,
		lastProgress: now,
		cancel:       cancel,
	}
	s.timer = time.AfterFunc(m.checkInterval, func() { m.healthCheck(s) })
	m.sessions[tourID] = s
	m.mu.Unlock()

	if superseded {
		m.log.Info("Aborting superseded download", "tour_id", tourID)
		prev.cancel(domain.ErrDownloadAborted)
	}
	m.log.Debug("Registered download session", "tour_id", tourID)
	return s.id
}

// ReportProgress refreshes the session's liveness marker.
func (m *DownloadMonitor) ReportProgress(tourID string, progress float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[tourID]
	if !ok {
		return
	}
	s.lastProgress = time.Now()
	s.progress = progress
}

// Progress returns the last reported progress for a session, or false if
// no session exists.
func (m *DownloadMonitor) Progress(tourID string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[tourID]
	if !ok {
		return 0, false
	}
	return s.progress, true
}

// Complete removes a session without firing its cancel func. No further
// health checks run for it. The token must match the live session: a
// superseded download calling Complete on its way out leaves the
// replacement's session untouched.
func (m *DownloadMonitor) Complete(tourID string, token uint64) {
	m.mu.Lock()
	s, ok := m.sessions[tourID]
	if ok && s.id == token {
		s.timer.Stop()
		delete(m.sessions, tourID)
	} else {
		ok = false
	}
	m.mu.Unlock()

	if ok {
		m.log.Debug("Download session completed", "tour_id", tourID)
	}
}

// Abort cancels a session explicitly (user-initiated). The cleanup hook is
// not invoked here; the aborted download's own exit path handles cleanup.
func (m *DownloadMonitor) Abort(tourID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[tourID]
	if ok {
		s.timer.Stop()
		delete(m.sessions, tourID)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	m.log.Info("Download aborted", "tour_id", tourID)
	s.cancel(domain.ErrDownloadAborted)
	return true
}

// healthCheck runs once per interval per session. It compares the session
// in the map against the one the timer was scheduled for, so a check
// scheduled before Complete or a re-Register can never abort the
// replacement session.
func (m *DownloadMonitor) healthCheck(s *session) {
	m.mu.Lock()
	current, ok := m.sessions[s.tourID]
	if !ok || current != s {
		m.mu.Unlock()
		return
	}

	now := time.Now()
	stalled := now.Sub(s.lastProgress) > m.stallTimeout
	overtime := now.Sub(s.startTime) > m.maxDuration

	if !stalled && !overtime {
		s.timer = time.AfterFunc(m.checkInterval, func() { m.healthCheck(s) })
		m.mu.Unlock()
		return
	}

	delete(m.sessions, s.tourID)
	cleanup := m.cleanup
	m.mu.Unlock()

	if stalled {
		m.log.Warn("Download stalled, aborting",
			"tour_id", s.tourID,
			"last_progress", s.progress,
			"idle", now.Sub(s.lastProgress),
		)
	} else {
		m.log.Warn("Download exceeded max duration, aborting",
			"tour_id", s.tourID,
			"elapsed", now.Sub(s.startTime),
		)
	}

	s.cancel(domain.ErrDownloadTimeout)
	if cleanup != nil {
		cleanup(s.tourID)
	}
}

// ActiveCount returns the number of tracked sessions.
func (m *DownloadMonitor) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

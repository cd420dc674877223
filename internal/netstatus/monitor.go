// Package netstatus provides the live online/offline signal consumed by the
// resolver and the persistence manager at decision points.
package netstatus

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mikaelweill/audio-guide-sub001/internal/constants"
	"github.com/mikaelweill/audio-guide-sub001/internal/logger"
)

// Monitor tracks connectivity by probing an HTTP endpoint on an interval
// and pushes transitions to subscribers. The signal is event-driven; the
// current belief is also readable synchronously via Online.
type Monitor struct {
	probeURL string
	interval time.Duration
	client   *http.Client
	log      *logger.Logger

	online atomic.Bool

	mu     sync.Mutex
	subs   []chan bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMonitor(probeURL string, interval time.Duration, log *logger.Logger) *Monitor {
	if log == nil {
		log = logger.Default()
	}
	m := &Monitor{
		probeURL: probeURL,
		interval: interval,
		client:   &http.Client{Timeout: constants.DefaultProbeTimeout},
		log:      log.WithComponent("netstatus"),
	}
	// Assume online until the first probe says otherwise.
	m.online.Store(true)
	return m
}

// Start begins probing. Stop with Stop or by cancelling ctx.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go m.probeLoop(ctx)
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) probeLoop(ctx context.Context) {
	defer m.wg.Done()

	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		m.log.Error("Failed to build probe request", "error", err)
		return
	}

	resp, err := m.client.Do(req)
	if err != nil {
		m.SetOnline(false)
		return
	}
	_ = resp.Body.Close()
	m.SetOnline(resp.StatusCode < 500)
}

// Online returns the current connectivity belief.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// SetOnline records a connectivity state and notifies subscribers on
// transitions. Also the hook for tests and for wiring an external signal.
func (m *Monitor) SetOnline(online bool) {
	if m.online.Swap(online) == online {
		return
	}

	m.log.Info("Network status changed", "online", online)

	m.mu.Lock()
	subs := make([]chan bool, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- online:
		default:
			// Slow subscriber; it will read the current state next time.
		}
	}
}

// Subscribe returns a channel receiving every online/offline transition.
func (m *Monitor) Subscribe() <-chan bool {
	ch := make(chan bool, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

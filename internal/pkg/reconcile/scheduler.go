package reconcile

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/rodrigomv/ticketpix/internal/pkg/cache"
	"github.com/rodrigomv/ticketpix/internal/pkg/database"
	"github.com/rodrigomv/ticketpix/internal/pkg/env"
	"github.com/rodrigomv/ticketpix/internal/pkg/metrics/counter"
	"github.com/rodrigomv/ticketpix/internal/pkg/payment"
)

const (
	sweepLockKey = "payment:reconcile:lock"
	sweepLockTTL = 4 * time.Minute
)

// Manager runs the periodic reconciliation sweep that corrects drift when
// webhooks are lost or never sent.
type Manager struct {
	sweepTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	running     bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global reconciliation manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// Start starts the background sweep worker
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so the manager can be
	// restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true

	interval := sweepInterval()
	m.sweepTicker = time.NewTicker(interval)
	m.wg.Add(1)
	go m.sweepWorker()

	log.Infof("[Reconcile Manager] Started (interval: %s)", interval)
}

// Stop stops the background sweep worker
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.sweepTicker != nil {
		m.sweepTicker.Stop()
	}

	close(m.stopCh)
	m.running = false

	m.wg.Wait()

	log.Info("[Reconcile Manager] Stopped")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) sweepWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[Reconcile Manager] Sweep worker stopping")
			return
		case <-m.sweepTicker.C:
			if _, err := RunSweep(); err != nil {
				log.Errorf("[Reconcile Manager] Sweep error: %v", err)
			}
		}
	}
}

// RunSweep executes one bounded reconciliation pass. A Redis lock ensures
// only one process sweeps at a time; when another process holds the lock,
// (nil, nil) is returned. The manual POST /reconcile endpoint shares this
// path with the ticker.
func RunSweep() (*payment.SweepSummary, error) {
	token, locked, err := cache.TryLock(sweepLockKey, sweepLockTTL)
	if err != nil {
		log.Warnf("[Reconcile] Sweep lock unavailable, proceeding unlocked: %v", err)
	} else if !locked {
		log.Debug("[Reconcile] Sweep already running elsewhere, skipping")
		return nil, nil
	} else {
		defer func() {
			_ = cache.Unlock(sweepLockKey, token)
		}()
	}

	svc := payment.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	summary, err := svc.ReconcilePending(ctx, payment.SweepOptions{
		GraceWindow: graceWindow(),
		BatchSize:   batchSize(),
	})
	if err != nil {
		return nil, err
	}

	counter.Incr(counter.SweepsRun)
	counter.IncrBy(counter.SweepOrdersMoved, int64(summary.Updated))
	return summary, nil
}

func sweepInterval() time.Duration {
	if v, err := strconv.Atoi(env.GetEnv("RECONCILE_INTERVAL_SECONDS", "")); err == nil && v > 0 {
		return time.Duration(v) * time.Second
	}
	return 5 * time.Minute
}

func graceWindow() time.Duration {
	if v, err := strconv.Atoi(env.GetEnv("RECONCILE_GRACE_SECONDS", "")); err == nil && v > 0 {
		return time.Duration(v) * time.Second
	}
	return 2 * time.Minute
}

func batchSize() int {
	if v, err := strconv.Atoi(env.GetEnv("RECONCILE_BATCH_SIZE", "")); err == nil && v > 0 {
		return v
	}
	return 50
}

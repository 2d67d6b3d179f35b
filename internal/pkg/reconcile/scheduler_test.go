package reconcile

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetManager(t *testing.T) {
	// Reset the singleton for testing
	globalManager = nil
	managerOnce = sync.Once{}

	manager1 := GetManager()
	manager2 := GetManager()

	assert.NotNil(t, manager1)
	assert.Same(t, manager1, manager2, "GetManager should return the same instance")

	assert.NotNil(t, manager1.stopCh)
	assert.False(t, manager1.running)
}

func TestManager_IsRunning(t *testing.T) {
	// Reset the singleton for testing
	globalManager = nil
	managerOnce = sync.Once{}

	manager := GetManager()

	assert.False(t, manager.IsRunning())

	manager.mu.Lock()
	manager.running = true
	manager.mu.Unlock()

	assert.True(t, manager.IsRunning())

	manager.mu.Lock()
	manager.running = false
	manager.mu.Unlock()

	assert.False(t, manager.IsRunning())
}

func TestManager_StopWithoutStart(t *testing.T) {
	// Reset the singleton for testing
	globalManager = nil
	managerOnce = sync.Once{}

	manager := GetManager()

	// Stop without starting should be safe
	assert.False(t, manager.IsRunning())
	manager.Stop()
	assert.False(t, manager.IsRunning())
}

func TestManager_StartStopCycle(t *testing.T) {
	// Reset the singleton for testing
	globalManager = nil
	managerOnce = sync.Once{}

	manager := GetManager()

	// The default interval is minutes, so no sweep fires during the test.
	manager.Start()
	assert.True(t, manager.IsRunning())

	// Second Start is a no-op while running
	manager.Start()
	assert.True(t, manager.IsRunning())

	manager.Stop()
	assert.False(t, manager.IsRunning())

	// The manager can be restarted after a stop
	manager.Start()
	assert.True(t, manager.IsRunning())
	manager.Stop()
	assert.False(t, manager.IsRunning())
}

func TestSweepConfigDefaults(t *testing.T) {
	t.Setenv("RECONCILE_INTERVAL_SECONDS", "")
	t.Setenv("RECONCILE_GRACE_SECONDS", "")
	t.Setenv("RECONCILE_BATCH_SIZE", "")

	assert.Equal(t, 5*time.Minute, sweepInterval())
	assert.Equal(t, 2*time.Minute, graceWindow())
	assert.Equal(t, 50, batchSize())
}

func TestSweepConfigFromEnv(t *testing.T) {
	t.Setenv("RECONCILE_INTERVAL_SECONDS", "30")
	t.Setenv("RECONCILE_GRACE_SECONDS", "90")
	t.Setenv("RECONCILE_BATCH_SIZE", "10")

	assert.Equal(t, 30*time.Second, sweepInterval())
	assert.Equal(t, 90*time.Second, graceWindow())
	assert.Equal(t, 10, batchSize())
}

func TestSweepConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("RECONCILE_INTERVAL_SECONDS", "not-a-number")
	t.Setenv("RECONCILE_GRACE_SECONDS", "-5")
	t.Setenv("RECONCILE_BATCH_SIZE", "0")

	assert.Equal(t, 5*time.Minute, sweepInterval())
	assert.Equal(t, 2*time.Minute, graceWindow())
	assert.Equal(t, 50, batchSize())
}

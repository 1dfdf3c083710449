package api

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nyashahama/counselling-portal-backend/internal/assessment"
)

// fakeClock is a settable time source for the registry.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedRegistry() (*wizardRegistry, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	reg := newWizardRegistry()
	reg.now = clock.now
	return reg, clock
}

func TestWizardRegistry_SweepDropsIdleEntries(t *testing.T) {
	reg, clock := newClockedRegistry()
	bank := assessment.DefaultBank()
	idle, active := uuid.New(), uuid.New()

	reg.start(idle, bank)
	clock.advance(wizardIdleTTL)
	reg.start(active, bank)
	clock.advance(time.Hour)

	// Any start runs the sweep once wizardSweepEvery has passed.
	reg.start(uuid.New(), bank)

	if _, ok := reg.get(idle); ok {
		t.Error("idle wizard should have been evicted")
	}
	if _, ok := reg.get(active); !ok {
		t.Error("recently used wizard should be kept")
	}
}

func TestWizardRegistry_SweepKeepsPendingSaves(t *testing.T) {
	reg, clock := newClockedRegistry()
	userID := uuid.New()
	reg.start(userID, assessment.DefaultBank())
	if _, err := reg.update(userID, func(e *wizardEntry) error {
		e.save = savePending
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	clock.advance(2 * wizardIdleTTL)
	reg.start(uuid.New(), assessment.DefaultBank())

	if _, ok := reg.get(userID); !ok {
		t.Fatal("wizard with a save in flight must not be evicted")
	}
}

func TestWizardRegistry_UpdateRefreshesIdleClock(t *testing.T) {
	reg, clock := newClockedRegistry()
	userID := uuid.New()
	reg.start(userID, assessment.DefaultBank())

	clock.advance(wizardIdleTTL - time.Minute)
	if _, err := reg.update(userID, func(*wizardEntry) error { return nil }); err != nil {
		t.Fatalf("update: %v", err)
	}
	clock.advance(time.Hour)
	reg.start(uuid.New(), assessment.DefaultBank())

	if _, ok := reg.get(userID); !ok {
		t.Error("wizard touched within the TTL should be kept")
	}
}

func TestWizardRegistry_StaleSaveIgnoredAfterReset(t *testing.T) {
	reg, _ := newClockedRegistry()
	userID := uuid.New()
	first, _ := reg.start(userID, assessment.DefaultBank())

	second := reg.reset(userID, assessment.DefaultBank())
	reg.finishSave(userID, first.gen, saveDone)

	got, _ := reg.get(userID)
	if got.gen != second.gen || got.save != "" {
		t.Errorf("stale save leaked into the new pass: %+v", got)
	}
}

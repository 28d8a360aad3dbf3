package scheduler

import (
	"testing"
	"time"

	"github.com/example/factbot/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(t *testing.T, store *database.Store, notifier Notifier) *Reconciler {
	t.Helper()
	r := NewReconciler(database.NewFactRepository(store), notifier, time.UTC)
	r.now = func() time.Time { return testNow }
	return r
}

// scheduleRefs claims one fact per day with the given refs and returns the
// fact ids in ref order.
func scheduleRefs(t *testing.T, store *database.Store, refs []string) []int {
	t.Helper()
	repo := database.NewFactRepository(store)
	ids := make([]int, 0, len(refs))
	for i, ref := range refs {
		slot := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		fact, err := repo.ClaimForSlot(slot, "")
		require.NoError(t, err)
		if ref != "" {
			require.NoError(t, repo.SetScheduleRef(fact.ID, ref))
		}
		ids = append(ids, fact.ID)
	}
	return ids
}

func TestSyncWithOS_ClearsOnlyMissing(t *testing.T) {
	store := newTestStore(t)
	seedFacts(t, store, 3)
	rec := newTestReconciler(t, store, newFakeNotifier())

	ids := scheduleRefs(t, store, []string{"A", "B", "C"})

	cleared, err := rec.SyncWithOS([]string{"A", "C"})
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	repo := database.NewFactRepository(store)
	for i, ref := range []string{"A", "B", "C"} {
		fact, err := repo.GetByID(ids[i])
		require.NoError(t, err)
		if ref == "B" {
			assert.False(t, fact.ScheduledAt.Valid, "B must be cleared")
			assert.False(t, fact.ScheduleRef.Valid)
		} else {
			assert.True(t, fact.ScheduledAt.Valid, "%s must stay scheduled", ref)
		}
	}
}

func TestSyncWithOS_EmptySetClearsAllPending(t *testing.T) {
	store := newTestStore(t)
	seedFacts(t, store, 3)
	rec := newTestReconciler(t, store, newFakeNotifier())

	scheduleRefs(t, store, []string{"A", "B", "C"})

	cleared, err := rec.SyncWithOS(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cleared)

	scheduled, err := database.NewFactRepository(store).FutureScheduled(testNow)
	require.NoError(t, err)
	assert.Empty(t, scheduled)
}

func TestSyncWithOS_KeepsDeferredRegistrations(t *testing.T) {
	store := newTestStore(t)
	seedFacts(t, store, 2)
	rec := newTestReconciler(t, store, newFakeNotifier())

	// One fact confirmed by the OS, one still awaiting its ref.
	ids := scheduleRefs(t, store, []string{"A", ""})

	cleared, err := rec.SyncWithOS([]string{"A"})
	require.NoError(t, err)
	assert.Equal(t, 0, cleared)

	fact, err := database.NewFactRepository(store).GetByID(ids[1])
	require.NoError(t, err)
	assert.True(t, fact.ScheduledAt.Valid, "null-ref slot is pending confirmation, not stale")
}

func TestSyncWithOS_IgnoresShownItems(t *testing.T) {
	store := newTestStore(t)
	seedFacts(t, store, 1)
	rec := newTestReconciler(t, store, newFakeNotifier())

	ids := scheduleRefs(t, store, []string{"A"})
	repo := database.NewFactRepository(store)
	require.NoError(t, repo.MarkShown(ids[0]))

	cleared, err := rec.SyncWithOS(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, cleared)
}

func TestAuditDayCounts_CleanSchedule(t *testing.T) {
	store := newTestStore(t)
	seedFacts(t, store, 5)
	notifier := newFakeNotifier()
	s := newTestScheduler(t, store, notifier, Config{Capacity: 5})
	rec := newTestReconciler(t, store, notifier)

	_, err := s.FillSchedule()
	require.NoError(t, err)

	report, err := rec.AuditDayCounts(1)
	require.NoError(t, err)
	assert.True(t, report.Clean())
}

func TestAuditDayCounts_LastDayShortfallIsLegal(t *testing.T) {
	store := newTestStore(t)
	seedFacts(t, store, 5)
	notifier := newFakeNotifier()
	// Two slots per day, capacity 5: the third day legitimately gets one.
	s := newTestScheduler(t, store, notifier, Config{
		Capacity:  5,
		SlotTimes: []SlotTime{{Hour: 9}, {Hour: 20}},
	})
	rec := newTestReconciler(t, store, notifier)

	_, err := s.FillSchedule()
	require.NoError(t, err)

	report, err := rec.AuditDayCounts(2)
	require.NoError(t, err)
	assert.Empty(t, report.Excess)
	assert.Empty(t, report.Deficit, "capacity shortfall on the final day is not a defect")
	assert.Equal(t, "2026-03-12", report.LastDay)
}

func TestAuditDayCounts_MidScheduleDeficit(t *testing.T) {
	store := newTestStore(t)
	seedFacts(t, store, 5)
	notifier := newFakeNotifier()
	s := newTestScheduler(t, store, notifier, Config{Capacity: 5})
	rec := newTestReconciler(t, store, notifier)

	_, err := s.FillSchedule()
	require.NoError(t, err)

	// Knock out the slot in the middle of the schedule.
	scheduled, err := s.facts.FutureScheduled(testNow)
	require.NoError(t, err)
	require.Len(t, scheduled, 5)
	_, err = s.facts.Unschedule([]int{scheduled[2].ID})
	require.NoError(t, err)

	report, err := rec.AuditDayCounts(1)
	require.NoError(t, err)
	require.Len(t, report.Deficit, 1)
	assert.Equal(t, "2026-03-12", report.Deficit[0].Day)
	assert.Equal(t, 0, report.Deficit[0].Count)
}

func TestAuditDayCounts_OverScheduledDayIsAlwaysADefect(t *testing.T) {
	store := newTestStore(t)
	seedFacts(t, store, 10)
	notifier := newFakeNotifier()
	s := newTestScheduler(t, store, notifier, Config{Capacity: 3})
	rec := newTestReconciler(t, store, notifier)

	_, err := s.FillSchedule()
	require.NoError(t, err)

	// Reproduce the historical over-scheduling bug on today's slot.
	added, err := s.ScheduleDuplicate(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 1, added)

	report, err := rec.AuditDayCounts(1)
	require.NoError(t, err)
	require.Len(t, report.Excess, 1)
	assert.Equal(t, "2026-03-10", report.Excess[0].Day)
	assert.Equal(t, 2, report.Excess[0].Count)
}

func TestRepairDayCounts_TrimsSurplus(t *testing.T) {
	store := newTestStore(t)
	seedFacts(t, store, 10)
	notifier := newFakeNotifier()
	s := newTestScheduler(t, store, notifier, Config{Capacity: 3})
	rec := newTestReconciler(t, store, notifier)

	_, err := s.FillSchedule()
	require.NoError(t, err)
	_, err = s.ScheduleDuplicate(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	trimmed, err := rec.RepairDayCounts(1)
	require.NoError(t, err)
	assert.Equal(t, 1, trimmed)

	report, err := rec.AuditDayCounts(1)
	require.NoError(t, err)
	assert.True(t, report.Clean())
}

func TestClearFutureSchedule_PreservesShownHistory(t *testing.T) {
	store := newTestStore(t)
	seedFacts(t, store, 3)
	notifier := newFakeNotifier()
	rec := newTestReconciler(t, store, notifier)
	repo := database.NewFactRepository(store)

	// A delivered fact with a past slot, plus two future pending ones.
	past, err := repo.ClaimForSlot(testNow.AddDate(0, 0, -1), "")
	require.NoError(t, err)
	require.NoError(t, repo.MarkShown(past.ID))
	scheduleRefs(t, store, []string{"A", "B"})

	cleared, err := rec.ClearFutureSchedule()
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)

	shown, err := repo.GetByID(past.ID)
	require.NoError(t, err)
	assert.True(t, shown.ScheduledAt.Valid, "delivered history is immutable")
	assert.True(t, shown.ShownInFeed)

	pending, err := notifier.ListPending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

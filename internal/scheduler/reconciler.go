package scheduler

import (
	"log"
	"sort"
	"time"

	"github.com/example/factbot/internal/database"
	"github.com/example/factbot/pkg/models"
)

// DayCount is the audited slot count for one local calendar day.
type DayCount struct {
	Day   string // YYYY-MM-DD
	Count int
}

// AuditReport lists the days whose slot counts violate the per-day policy.
// The chronologically last scheduled day is allowed to fall short: that is
// where a capacity-bounded fill legitimately stops.
type AuditReport struct {
	Excess  []DayCount
	Deficit []DayCount
	LastDay string
}

// Clean reports whether the audit found no defects.
func (r *AuditReport) Clean() bool {
	return len(r.Excess) == 0 && len(r.Deficit) == 0
}

// Reconciler repairs drift between the store's schedule and the OS's actual
// pending-notification set. The OS is authoritative for whether a
// registration still exists; the store is authoritative for what should be
// scheduled next.
type Reconciler struct {
	facts    *database.FactRepository
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
}

// NewReconciler creates a reconciler over the given repository and
// notification collaborator.
func NewReconciler(facts *database.FactRepository, notifier Notifier, loc *time.Location) *Reconciler {
	if loc == nil {
		loc = time.Local
	}
	return &Reconciler{
		facts:    facts,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
	}
}

// SyncWithOS clears the schedule state of every future pending fact whose
// external id the OS no longer knows, returning them to the candidate pool.
// An empty id set (permission revoked, reinstall) clears all future pending
// facts. Facts with a null ref are awaiting OS confirmation and are never
// reaped; shown facts are delivered history and are never touched.
func (r *Reconciler) SyncWithOS(osValidIDs []string) (int, error) {
	now := r.now()
	pending, err := r.facts.FutureScheduled(now)
	if err != nil {
		return 0, err
	}

	valid := make(map[string]bool, len(osValidIDs))
	for _, id := range osValidIDs {
		valid[id] = true
	}

	var stale []int
	for _, f := range pending {
		if !f.ScheduleRef.Valid {
			continue
		}
		if !valid[f.ScheduleRef.String] {
			stale = append(stale, f.ID)
		}
	}

	cleared, err := r.facts.Unschedule(stale)
	if err != nil {
		return 0, err
	}
	if cleared > 0 {
		log.Printf("reconciled %d facts missing from the OS pending set", cleared)
	}
	return cleared, nil
}

// AuditDayCounts buckets the future, not-yet-shown schedule by local
// calendar day and reports days with more or fewer slots than expectedPerDay.
// Over-counts are always defects; an under-count is a defect unless it falls
// on the chronologically last day. The audit never repairs — repair is a
// separate explicit operation so callers can decide to notify or auto-fix.
func (r *Reconciler) AuditDayCounts(expectedPerDay int) (*AuditReport, error) {
	counts, days, err := r.futureDayCounts()
	if err != nil {
		return nil, err
	}

	report := &AuditReport{}
	if len(days) == 0 {
		return report, nil
	}
	report.LastDay = days[len(days)-1]

	// Walk every calendar day between the first and last scheduled day so a
	// gap day with zero slots is caught as a deficit, not skipped.
	first, err := time.ParseInLocation("2006-01-02", days[0], r.loc)
	if err != nil {
		return nil, err
	}
	last, err := time.ParseInLocation("2006-01-02", report.LastDay, r.loc)
	if err != nil {
		return nil, err
	}

	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		day := d.Format("2006-01-02")
		n := counts[day]
		switch {
		case n > expectedPerDay:
			report.Excess = append(report.Excess, DayCount{Day: day, Count: n})
		case n < expectedPerDay && day != report.LastDay:
			report.Deficit = append(report.Deficit, DayCount{Day: day, Count: n})
		}
	}
	return report, nil
}

// RepairDayCounts unschedules surplus facts on every over-counted day,
// cancelling their OS registrations where one exists. Latest-claimed slots
// go first so the surviving slots keep the day's earlier delivery times.
func (r *Reconciler) RepairDayCounts(expectedPerDay int) (int, error) {
	now := r.now()
	scheduled, err := r.facts.FutureScheduled(now)
	if err != nil {
		return 0, err
	}

	byDay := make(map[string][]models.ScheduledFact)
	for _, f := range scheduled {
		day := f.ScheduledAt.Time.In(r.loc).Format("2006-01-02")
		byDay[day] = append(byDay[day], f)
	}

	var surplus []int
	for _, facts := range byDay {
		if len(facts) <= expectedPerDay {
			continue
		}
		sort.Slice(facts, func(i, j int) bool {
			return facts[i].ScheduledAt.Time.After(facts[j].ScheduledAt.Time)
		})
		for _, f := range facts[:len(facts)-expectedPerDay] {
			surplus = append(surplus, f.ID)
			if f.ScheduleRef.Valid {
				if err := r.notifier.Cancel(f.ScheduleRef.String); err != nil {
					log.Printf("failed to cancel notification %s: %v", f.ScheduleRef.String, err)
				}
			}
		}
	}

	return r.facts.Unschedule(surplus)
}

// ClearFutureSchedule cancels every OS registration and unschedules every
// fact that has not been shown in the feed, past or future slot time alike.
// Shown facts keep their schedule state: delivered history is immutable.
// Used before a full schedule rebuild.
func (r *Reconciler) ClearFutureSchedule() (int, error) {
	if err := r.notifier.CancelAll(); err != nil {
		return 0, err
	}
	return r.facts.UnscheduleAllNotShown()
}

func (r *Reconciler) futureDayCounts() (map[string]int, []string, error) {
	now := r.now()
	scheduled, err := r.facts.FutureScheduled(now)
	if err != nil {
		return nil, nil, err
	}

	counts := make(map[string]int)
	for _, f := range scheduled {
		day := f.ScheduledAt.Time.In(r.loc).Format("2006-01-02")
		counts[day]++
	}

	days := make([]string, 0, len(counts))
	for day := range counts {
		days = append(days, day)
	}
	sort.Strings(days)
	return counts, days, nil
}

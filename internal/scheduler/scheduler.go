package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/example/factbot/internal/database"
	"github.com/example/factbot/pkg/models"
)

// DefaultCapacity is the default ceiling on simultaneously pending slots,
// matching the tightest limit imposed by host notification subsystems.
const DefaultCapacity = 64

// DefaultMaxDays bounds how many calendar days a single FillSchedule call
// will walk, so one invocation never schedules unboundedly.
const DefaultMaxDays = 90

// SlotTime is one configured delivery time of day.
type SlotTime struct {
	Hour   int
	Minute int
}

// Config controls the slot-filling engine. SlotTimes is required — there is
// no default number of deliveries per day.
type Config struct {
	SlotTimes []SlotTime
	Capacity  int
	MaxDays   int
	Language  string
	Location  *time.Location
}

// FillReport summarizes one scheduling pass. Unfilled counts the slots that
// stayed empty because the candidate pool ran dry; that is a reported
// condition, not an error.
type FillReport struct {
	Scheduled     int
	Unfilled      int
	PoolExhausted bool
}

// Scheduler keeps every future day populated with one fact per configured
// slot time, up to the capacity ceiling. Already-scheduled items are never
// moved; filling only appends.
type Scheduler struct {
	facts    *database.FactRepository
	notifier Notifier
	cfg      Config
	now      func() time.Time
}

// New creates a scheduler over the given repository and notification
// collaborator.
func New(facts *database.FactRepository, notifier Notifier, cfg Config) *Scheduler {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = DefaultMaxDays
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Scheduler{
		facts:    facts,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// FillSchedule tops the schedule up to the capacity ceiling. Each slot gets
// one uniformly random fact from the pool of unscheduled, not-yet-shown
// facts; slot times are computed as local wall-clock times so they stay
// correct across DST transitions. When capacity runs out mid-day the final
// day is left partially filled, which the reconciler treats as legal.
func (s *Scheduler) FillSchedule() (*FillReport, error) {
	if len(s.cfg.SlotTimes) == 0 {
		return nil, fmt.Errorf("no slot times configured")
	}

	now := s.now().In(s.cfg.Location)
	report := &FillReport{}

	pending, err := s.facts.CountPendingScheduled(now)
	if err != nil {
		return nil, err
	}
	remaining := s.cfg.Capacity - pending
	if remaining <= 0 {
		return report, nil
	}

	occupied, counts, err := s.occupiedSlots(now)
	if err != nil {
		return nil, err
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Location)
	for processed := 0; processed < s.cfg.MaxDays && remaining > 0; processed++ {
		key := day.Format("2006-01-02")
		for _, st := range s.cfg.SlotTimes {
			if counts[key] >= len(s.cfg.SlotTimes) {
				break // day already full
			}
			slotAt := time.Date(day.Year(), day.Month(), day.Day(), st.Hour, st.Minute, 0, 0, s.cfg.Location)
			if !slotAt.After(now) {
				continue
			}
			if occupied[slotAt.Unix()] {
				continue
			}

			if _, err := s.fillSlot(slotAt); err != nil {
				if err == database.ErrNoCandidates {
					report.Unfilled = remaining
					report.PoolExhausted = true
					log.Printf("scheduling stopped: candidate pool empty with %d slots unfilled", remaining)
					return report, nil
				}
				return report, err
			}

			occupied[slotAt.Unix()] = true
			counts[key]++
			report.Scheduled++
			remaining--
			if remaining == 0 {
				break
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	return report, nil
}

// fillSlot claims one random candidate for the slot, registers the delivery
// with the notification collaborator and persists the external id. The
// claim itself is atomic; if registration fails the claim is rolled back so
// the fact re-enters the pool.
func (s *Scheduler) fillSlot(slotAt time.Time) (*models.ScheduledFact, error) {
	fact, err := s.facts.ClaimForSlot(slotAt, s.cfg.Language)
	if err != nil {
		return nil, err
	}

	ref, err := s.notifier.Schedule(Payload{
		FactID:  fact.ID,
		Title:   fact.Title,
		Summary: fact.Summary,
	}, slotAt)
	if err != nil {
		if _, uerr := s.facts.Unschedule([]int{fact.ID}); uerr != nil {
			log.Printf("failed to release claim on fact %d: %v", fact.ID, uerr)
		}
		return nil, fmt.Errorf("failed to register notification: %v", err)
	}

	// An empty ref means the registration is deferred; the slot stays
	// persisted and the reconciler will not reap it.
	if ref != "" {
		if err := s.facts.SetScheduleRef(fact.ID, ref); err != nil {
			return nil, err
		}
	}
	return fact, nil
}

// occupiedSlots buckets the existing future schedule by exact slot time and
// by local day.
func (s *Scheduler) occupiedSlots(now time.Time) (map[int64]bool, map[string]int, error) {
	scheduled, err := s.facts.FutureScheduled(now)
	if err != nil {
		return nil, nil, err
	}

	occupied := make(map[int64]bool, len(scheduled))
	counts := make(map[string]int)
	for _, f := range scheduled {
		at := f.ScheduledAt.Time.In(s.cfg.Location)
		occupied[at.Unix()] = true
		counts[at.Format("2006-01-02")]++
	}
	return occupied, counts, nil
}

// ScheduleDuplicate deliberately books one extra fact into every future slot
// of the given day, ignoring the per-day limit. Developer tool for
// reproducing the historical over-scheduling defect that AuditDayCounts
// exists to catch.
func (s *Scheduler) ScheduleDuplicate(day time.Time) (int, error) {
	if len(s.cfg.SlotTimes) == 0 {
		return 0, fmt.Errorf("no slot times configured")
	}

	now := s.now().In(s.cfg.Location)
	added := 0
	for _, st := range s.cfg.SlotTimes {
		slotAt := time.Date(day.Year(), day.Month(), day.Day(), st.Hour, st.Minute, 0, 0, s.cfg.Location)
		if !slotAt.After(now) {
			continue
		}
		if _, err := s.fillSlot(slotAt); err != nil {
			if err == database.ErrNoCandidates {
				break
			}
			return added, err
		}
		added++
	}
	return added, nil
}

package feed

import (
	"sync"
	"time"

	"github.com/example/factbot/internal/database"
	"github.com/example/factbot/pkg/models"
)

// Projector turns store state into the feed views the UI renders. It is a
// pure reader apart from the single-slot random-fact cache.
type Projector struct {
	facts *database.FactRepository
	loc   *time.Location
	now   func() time.Time

	mu         sync.Mutex
	lastRandom *models.ScheduledFact
}

// New creates a projector reading through the given repository, bucketing
// days in loc.
func New(facts *database.FactRepository, loc *time.Location) *Projector {
	if loc == nil {
		loc = time.Local
	}
	return &Projector{
		facts: facts,
		loc:   loc,
		now:   time.Now,
	}
}

// TodaysItems returns facts slated for the local-today calendar date,
// regardless of clock time: an item scheduled for 20:00 is already visible
// at 00:01. Membership is by local date bucket, never by comparison against
// now.
func (p *Projector) TodaysItems(lang string) ([]models.ScheduledFact, error) {
	now := p.now().In(p.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.loc)
	end := start.AddDate(0, 0, 1)
	return p.facts.ScheduledBetween(start, end, lang)
}

// HistorySince returns delivered facts (shown in feed, or slot time in the
// past) from the trailing window of the given number of days, newest first.
func (p *Projector) HistorySince(days int, lang string) ([]models.ScheduledFact, error) {
	now := p.now().In(p.loc)
	cutoff := now.AddDate(0, 0, -days)
	return p.facts.DeliveredSince(cutoff, now, lang)
}

// HistoryByDay groups a HistorySince window by local calendar date, newest
// day first, preserving the newest-first order inside each day.
func (p *Projector) HistoryByDay(days int, lang string) ([]DayGroup, error) {
	items, err := p.HistorySince(days, lang)
	if err != nil {
		return nil, err
	}

	var groups []DayGroup
	for _, item := range items {
		at := item.CreatedAt
		if item.ScheduledAt.Valid {
			at = item.ScheduledAt.Time
		}
		day := at.In(p.loc).Format("2006-01-02")

		if len(groups) == 0 || groups[len(groups)-1].Day != day {
			groups = append(groups, DayGroup{Day: day})
		}
		last := &groups[len(groups)-1]
		last.Items = append(last.Items, item)
	}
	return groups, nil
}

// DayGroup is one feed section: a local date and its delivered facts.
type DayGroup struct {
	Day   string // YYYY-MM-DD
	Items []models.ScheduledFact
}

// Search finds facts matching the query, title hits ranked first.
func (p *Projector) Search(query, lang string) ([]models.ScheduledFact, error) {
	return p.facts.Search(query, lang)
}

// RandomUnseen returns a random not-yet-shown fact. The result is held in a
// single-slot cache so the UI can re-render it without re-querying; the
// slot is cleared when the fact is consumed.
func (p *Projector) RandomUnseen(lang string) (*models.ScheduledFact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastRandom != nil {
		return p.lastRandom, nil
	}

	fact, err := p.facts.RandomUnseen(lang)
	if err != nil {
		return nil, err
	}
	p.lastRandom = fact
	return fact, nil
}

// ConsumeRandom clears the random-fact cache slot, typically after the fact
// has been displayed and marked shown.
func (p *Projector) ConsumeRandom() {
	p.mu.Lock()
	p.lastRandom = nil
	p.mu.Unlock()
}

// Package recurrence expands recurring events into concrete occurrences
// within a time window, and validates recurrence rules before they are
// persisted.
package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"agenda/internal/models"
)

// DefaultMaxOccurrences bounds expansion of unbounded rules.
const DefaultMaxOccurrences = 1000

var weekdayMap = map[models.Weekday]rrule.Weekday{
	models.Monday:    rrule.MO,
	models.Tuesday:   rrule.TU,
	models.Wednesday: rrule.WE,
	models.Thursday:  rrule.TH,
	models.Friday:    rrule.FR,
	models.Saturday:  rrule.SA,
	models.Sunday:    rrule.SU,
}

// InvalidRuleError reports a malformed or self-contradictory recurrence rule.
type InvalidRuleError struct {
	Problems []string
}

func (e *InvalidRuleError) Error() string {
	return "invalid recurrence rule: " + strings.Join(e.Problems, "; ")
}

// Engine performs recurrence expansion. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	// MaxOccurrences caps how many occurrences a single Generate call may
	// produce. Zero means DefaultMaxOccurrences.
	MaxOccurrences int
}

// NewEngine creates an engine with the default occurrence cap
func NewEngine() *Engine {
	return &Engine{MaxOccurrences: DefaultMaxOccurrences}
}

func (e *Engine) cap() int {
	if e.MaxOccurrences > 0 {
		return e.MaxOccurrences
	}
	return DefaultMaxOccurrences
}

// Generate expands event+rule into occurrences whose starts fall inside
// [windowStart, windowEnd], both inclusive, in ascending start order.
//
// A nil rule, or a rule whose frequency is not recognized, yields the anchor
// itself as a single occurrence. Structurally invalid rules are expected to
// have been rejected by ValidateRule before anything was persisted; this
// fallback only matters when bad data reaches the store anyway.
func (e *Engine) Generate(event *models.Event, rule *models.RecurrenceRule, windowStart, windowEnd time.Time) ([]models.Occurrence, error) {
	if windowEnd.Before(windowStart) {
		return nil, fmt.Errorf("generate: window end %s is before window start %s", windowEnd, windowStart)
	}

	if rule == nil {
		return []models.Occurrence{makeOccurrence(event, event.StartDatetime.UTC())}, nil
	}

	freq, ok := frequencyOf(rule.Frequency)
	if !ok {
		// Graceful degradation: treat the event as non-recurring.
		return []models.Occurrence{makeOccurrence(event, event.StartDatetime.UTC())}, nil
	}

	opt := rrule.ROption{
		Freq:     freq,
		Dtstart:  event.StartDatetime.UTC(),
		Interval: rule.Interval,
		Wkst:     rrule.MO,
	}
	if opt.Interval < 1 {
		opt.Interval = 1
	}

	if rule.Frequency == models.FreqWeekly && len(rule.DaysOfWeek) > 0 {
		for _, code := range rule.DaysOfWeek {
			if wd, ok := weekdayMap[code]; ok {
				opt.Byweekday = append(opt.Byweekday, wd)
			}
		}
	}

	if rule.Frequency == models.FreqMonthly {
		switch {
		case rule.DayOfMonth != nil:
			// Months lacking the target day are skipped outright, never
			// clamped to their last day.
			opt.Bymonthday = []int{*rule.DayOfMonth}
		case rule.WeekOfMonth != nil && rule.DayOfWeek != nil:
			if wd, ok := weekdayMap[*rule.DayOfWeek]; ok {
				nth := *rule.WeekOfMonth
				if nth == 5 {
					// "Last week" counts back from month end so that months
					// with only four of that weekday still match.
					nth = -1
				}
				opt.Byweekday = []rrule.Weekday{wd.Nth(nth)}
			}
		}
	}

	switch {
	case rule.EndDate != nil:
		opt.Until = rule.EndDate.UTC()
	case rule.OccurrenceCount != nil:
		opt.Count = *rule.OccurrenceCount
		if opt.Count > e.cap() {
			opt.Count = e.cap()
		}
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("generate: building rule: %w", err)
	}

	windowStart = windowStart.UTC()
	windowEnd = windowEnd.UTC()

	var starts []time.Time
	if opt.Count > 0 {
		// Count is anchored at the rule's own start, so materialize the full
		// series first and clip to the window afterwards.
		for _, t := range r.All() {
			if t.Before(windowStart) || t.After(windowEnd) {
				continue
			}
			starts = append(starts, t)
		}
	} else {
		starts = r.Between(windowStart, windowEnd, true)
	}

	if len(starts) > e.cap() {
		starts = starts[:e.cap()]
	}

	occurrences := make([]models.Occurrence, 0, len(starts))
	for _, start := range starts {
		occurrences = append(occurrences, makeOccurrence(event, start))
	}
	return occurrences, nil
}

// makeOccurrence projects event onto a concrete start instant, preserving
// the anchor's duration when it has one.
func makeOccurrence(event *models.Event, start time.Time) models.Occurrence {
	occ := models.Occurrence{
		InstanceID:   fmt.Sprintf("%d_%s", event.ID, start.Format("20060102_150405")),
		EventID:      event.ID,
		Title:        event.Title,
		Description:  event.Description,
		Start:        start,
		IsAllDay:     event.IsAllDay,
		Color:        event.Color,
		IsRecurring:  event.IsRecurring,
		RecurrenceID: event.RecurrenceID,
	}
	if dur, ok := event.Duration(); ok {
		end := start.Add(dur)
		occ.End = &end
	}
	return occ
}

func frequencyOf(f models.Frequency) (rrule.Frequency, bool) {
	switch f {
	case models.FreqDaily:
		return rrule.DAILY, true
	case models.FreqWeekly:
		return rrule.WEEKLY, true
	case models.FreqMonthly:
		return rrule.MONTHLY, true
	case models.FreqYearly:
		return rrule.YEARLY, true
	}
	return 0, false
}

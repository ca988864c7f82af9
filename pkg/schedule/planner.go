package schedule

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/podforge-ai/podforge/pkg/config"
	"github.com/podforge-ai/podforge/pkg/models"
)

// minLeadTime is how far in the future a slot must lie to be usable.
const minLeadTime = time.Hour

// Planner generates admissible future publish-time candidates and
// greedily assigns content items to them.
type Planner struct {
	cfg config.PublishingConfig
	now func() time.Time
}

// New creates a Planner over the given publishing configuration.
func New(cfg config.PublishingConfig) *Planner {
	return &Planner{cfg: cfg, now: time.Now}
}

// GenerateSlots returns the admissible publish times over the horizon,
// sorted ascending. The list is recomputed fresh on every call because
// "now" advances between calls; it is never cached.
func (p *Planner) GenerateSlots() []time.Time {
	now := p.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	times := p.cfg.OptimalTimes
	if p.cfg.PostsPerDay > 0 && len(times) > p.cfg.PostsPerDay {
		times = times[:p.cfg.PostsPerDay]
	}

	var slots []time.Time
	for offset := 0; offset < p.cfg.HorizonDays; offset++ {
		day := dayStart.AddDate(0, 0, offset)
		if p.cfg.AvoidWeekends && (day.Weekday() == time.Saturday || day.Weekday() == time.Sunday) {
			continue
		}
		for _, ts := range times {
			hour, minute, ok := parseClock(ts)
			if !ok {
				continue
			}
			slot := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
			if slot.After(now.Add(minLeadTime)) {
				slots = append(slots, slot)
			}
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return slots
}

// parseClock parses an "HH:MM" string.
func parseClock(s string) (hour, minute int, ok bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// Assign places content items onto slots. Threads go first, each slot
// at least the minimum spacing away from every other selected thread
// slot; single posts fill the remaining slots in ascending order.
// Items with no available slot are omitted; the caller treats omitted
// items as needing a future retry round. Output is sorted by publish
// time ascending.
func (p *Planner) Assign(items []models.ContentItem, slots []time.Time) []models.ScheduledItem {
	if len(items) == 0 || len(slots) == 0 {
		return nil
	}

	var threads, singles []models.ContentItem
	for _, item := range items {
		if item.Kind == models.KindThread {
			threads = append(threads, item)
		} else {
			singles = append(singles, item)
		}
	}

	threadSlots := p.selectThreadSlots(slots, len(threads))

	var out []models.ScheduledItem
	used := make(map[time.Time]bool, len(threadSlots))
	for i, slot := range threadSlots {
		if i >= len(threads) {
			break
		}
		used[slot] = true
		out = append(out, models.ScheduledItem{
			Item:        threads[i],
			PublishTime: slot,
			Status:      models.StatusScheduled,
		})
	}

	next := 0
	for _, slot := range slots {
		if next >= len(singles) {
			break
		}
		if used[slot] {
			continue
		}
		out = append(out, models.ScheduledItem{
			Item:        singles[next],
			PublishTime: slot,
			Status:      models.StatusScheduled,
		})
		next++
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PublishTime.Before(out[j].PublishTime) })
	return out
}

// selectThreadSlots greedily picks up to count slots such that every
// selected slot is at least the minimum spacing from every previously
// selected one. Greedy over ascending slots is good enough at the slot
// counts involved (tens at most).
func (p *Planner) selectThreadSlots(slots []time.Time, count int) []time.Time {
	if count == 0 || len(slots) == 0 {
		return nil
	}

	spacing := p.cfg.MinThreadSpacing()
	var selected []time.Time
	for _, slot := range slots {
		ok := true
		for _, prev := range selected {
			if absDuration(slot.Sub(prev)) < spacing {
				ok = false
				break
			}
		}
		if ok {
			selected = append(selected, slot)
			if len(selected) >= count {
				break
			}
		}
	}
	return selected
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

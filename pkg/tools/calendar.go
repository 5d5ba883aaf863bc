package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tabletalk-io/tabletalk/pkg/config"
)

const minFreeSlotMinutes = 30

// groupSchedule answers availability questions from the configured member
// roster. Busy windows are daily "HH:MM-HH:MM" ranges in local time; a
// window whose end precedes its start wraps past midnight.
type groupSchedule struct {
	members []config.MemberConfig
	now     func() time.Time
}

func newGroupSchedule(members []config.MemberConfig) *groupSchedule {
	return &groupSchedule{members: members, now: time.Now}
}

type busyInterval struct {
	start time.Time
	end   time.Time
}

func parseBusyWindow(window string, reference time.Time) (busyInterval, error) {
	parts := strings.SplitN(strings.TrimSpace(window), "-", 2)
	if len(parts) != 2 {
		return busyInterval{}, fmt.Errorf("busy window %q: want HH:MM-HH:MM", window)
	}
	start, err := time.Parse("15:04", strings.TrimSpace(parts[0]))
	if err != nil {
		return busyInterval{}, fmt.Errorf("busy window %q: %w", window, err)
	}
	end, err := time.Parse("15:04", strings.TrimSpace(parts[1]))
	if err != nil {
		return busyInterval{}, fmt.Errorf("busy window %q: %w", window, err)
	}

	day := time.Date(reference.Year(), reference.Month(), reference.Day(), 0, 0, 0, 0, reference.Location())
	interval := busyInterval{
		start: day.Add(time.Duration(start.Hour())*time.Hour + time.Duration(start.Minute())*time.Minute),
		end:   day.Add(time.Duration(end.Hour())*time.Hour + time.Duration(end.Minute())*time.Minute),
	}
	if !interval.end.After(interval.start) {
		interval.end = interval.end.Add(24 * time.Hour)
	}
	return interval, nil
}

// busyWithin returns the member's busy intervals overlapping [from, to),
// considering today's and tomorrow's occurrence of each daily window.
func busyWithin(member config.MemberConfig, from, to time.Time) ([]busyInterval, error) {
	var out []busyInterval
	for _, window := range member.Busy {
		interval, err := parseBusyWindow(window, from)
		if err != nil {
			return nil, err
		}
		for _, candidate := range []busyInterval{
			interval,
			{start: interval.start.Add(24 * time.Hour), end: interval.end.Add(24 * time.Hour)},
		} {
			if candidate.start.Before(to) && candidate.end.After(from) {
				out = append(out, candidate)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start.Before(out[j].start) })
	return out, nil
}

func (s *groupSchedule) selectMembers(people []string) []config.MemberConfig {
	if len(people) == 0 {
		return s.members
	}
	wanted := make(map[string]bool, len(people))
	for _, p := range people {
		wanted[strings.ToLower(strings.TrimSpace(p))] = true
	}
	var out []config.MemberConfig
	for _, member := range s.members {
		if wanted[strings.ToLower(member.Name)] {
			out = append(out, member)
		}
	}
	return out
}

func (s *groupSchedule) names() []string {
	names := make([]string, 0, len(s.members))
	for _, member := range s.members {
		names = append(names, member.Name)
	}
	return names
}

func peopleParameter() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": "Names of people to check; omit to check everyone",
	}
}

func hoursAheadParameter(def int) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": fmt.Sprintf("Number of hours to look ahead (default %d)", def),
	}
}

type checkAvailabilityTool struct {
	schedule *groupSchedule
}

func NewCheckAvailabilityTool(members []config.MemberConfig) Tool {
	return &checkAvailabilityTool{schedule: newGroupSchedule(members)}
}

func (t *checkAvailabilityTool) Name() string { return "check_availability" }

func (t *checkAvailabilityTool) Description() string {
	return "Check schedule availability for group members over the next few hours."
}

func (t *checkAvailabilityTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"people":      peopleParameter(),
			"hours_ahead": hoursAheadParameter(2),
		},
	}
}

func (t *checkAvailabilityTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if len(t.schedule.members) == 0 {
		return ErrorResult("no group members configured")
	}

	people := stringSliceArg(args, "people")
	hours := intArg(args, "hours_ahead", 2)
	selected := t.schedule.selectMembers(people)
	if len(selected) == 0 {
		return SilentResult(fmt.Sprintf("No matching people found. Available people: %s",
			strings.Join(t.schedule.names(), ", ")))
	}

	from := t.schedule.now()
	to := from.Add(time.Duration(hours) * time.Hour)

	var b strings.Builder
	fmt.Fprintf(&b, "Availability for the next %d hours:\n", hours)
	for _, member := range selected {
		busy, err := busyWithin(member, from, to)
		if err != nil {
			return ErrorResult(fmt.Sprintf("schedule for %s is invalid: %v", member.Name, err)).WithError(err)
		}
		if len(busy) == 0 {
			fmt.Fprintf(&b, "%s: Available\n", member.Name)
		} else {
			fmt.Fprintf(&b, "%s: Busy (event at %s)\n", member.Name, busy[0].start.Format("15:04"))
		}
	}
	return SilentResult(b.String())
}

type availablePeopleTool struct {
	schedule *groupSchedule
}

func NewAvailablePeopleTool(members []config.MemberConfig) Tool {
	return &availablePeopleTool{schedule: newGroupSchedule(members)}
}

func (t *availablePeopleTool) Name() string { return "get_available_people" }

func (t *availablePeopleTool) Description() string {
	return "List all people with a configured schedule."
}

func (t *availablePeopleTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *availablePeopleTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if len(t.schedule.members) == 0 {
		return SilentResult("No people configured in the calendar system")
	}
	return SilentResult("People with schedules: " + strings.Join(t.schedule.names(), ", "))
}

type currentLocationsTool struct {
	schedule *groupSchedule
}

func NewCurrentLocationsTool(members []config.MemberConfig) Tool {
	return &currentLocationsTool{schedule: newGroupSchedule(members)}
}

func (t *currentLocationsTool) Name() string { return "get_current_locations" }

func (t *currentLocationsTool) Description() string {
	return "Get each person's base location and upcoming busy slots."
}

func (t *currentLocationsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"people":      peopleParameter(),
			"hours_ahead": hoursAheadParameter(2),
		},
	}
}

func (t *currentLocationsTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if len(t.schedule.members) == 0 {
		return ErrorResult("no group members configured")
	}

	people := stringSliceArg(args, "people")
	hours := intArg(args, "hours_ahead", 2)
	selected := t.schedule.selectMembers(people)
	if len(selected) == 0 {
		return SilentResult(fmt.Sprintf("No matching people found. Available people: %s",
			strings.Join(t.schedule.names(), ", ")))
	}

	from := t.schedule.now()
	to := from.Add(time.Duration(hours) * time.Hour)

	var b strings.Builder
	fmt.Fprintf(&b, "Locations for the next %d hours:\n", hours)
	for _, member := range selected {
		fmt.Fprintf(&b, "%s: %s\n", member.Name, member.Address)
		busy, err := busyWithin(member, from, to)
		if err != nil {
			return ErrorResult(fmt.Sprintf("schedule for %s is invalid: %v", member.Name, err)).WithError(err)
		}
		if len(busy) == 0 {
			b.WriteString("   No scheduled events\n")
			continue
		}
		for _, interval := range busy {
			fmt.Fprintf(&b, "   Busy %s - %s\n", interval.start.Format("15:04"), interval.end.Format("15:04"))
		}
	}
	return SilentResult(b.String())
}

type commonFreeTimeTool struct {
	schedule *groupSchedule
}

func NewCommonFreeTimeTool(members []config.MemberConfig) Tool {
	return &commonFreeTimeTool{schedule: newGroupSchedule(members)}
}

func (t *commonFreeTimeTool) Name() string { return "find_common_free_time" }

func (t *commonFreeTimeTool) Description() string {
	return "Find time slots when all specified people are free."
}

func (t *commonFreeTimeTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"people":      peopleParameter(),
			"hours_ahead": hoursAheadParameter(8),
		},
	}
}

func (t *commonFreeTimeTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if len(t.schedule.members) == 0 {
		return ErrorResult("no group members configured")
	}

	people := stringSliceArg(args, "people")
	hours := intArg(args, "hours_ahead", 8)
	selected := t.schedule.selectMembers(people)
	if len(selected) == 0 {
		return SilentResult("No matching people found")
	}

	from := t.schedule.now()
	to := from.Add(time.Duration(hours) * time.Hour)

	var allBusy []busyInterval
	names := make([]string, 0, len(selected))
	for _, member := range selected {
		names = append(names, member.Name)
		busy, err := busyWithin(member, from, to)
		if err != nil {
			return ErrorResult(fmt.Sprintf("schedule for %s is invalid: %v", member.Name, err)).WithError(err)
		}
		allBusy = append(allBusy, busy...)
	}

	if len(allBusy) == 0 {
		return SilentResult(fmt.Sprintf("All people (%s) are completely free for the next %d hours",
			strings.Join(names, ", "), hours))
	}

	sort.Slice(allBusy, func(i, j int) bool { return allBusy[i].start.Before(allBusy[j].start) })

	type freeSlot struct {
		start, end time.Time
	}
	var slots []freeSlot
	current := from
	for _, busy := range allBusy {
		if current.Before(busy.start) && busy.start.Sub(current) >= minFreeSlotMinutes*time.Minute {
			slots = append(slots, freeSlot{start: current, end: busy.start})
		}
		if busy.end.After(current) {
			current = busy.end
		}
	}
	if current.Before(to) && to.Sub(current) >= minFreeSlotMinutes*time.Minute {
		slots = append(slots, freeSlot{start: current, end: to})
	}

	if len(slots) == 0 {
		return SilentResult(fmt.Sprintf("No common free time found for %s in the next %d hours",
			strings.Join(names, ", "), hours))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Common free times for %s:\n", strings.Join(names, ", "))
	for _, slot := range slots {
		fmt.Fprintf(&b, "%s - %s (%d minutes)\n",
			slot.start.Format("15:04"), slot.end.Format("15:04"), int(slot.end.Sub(slot.start).Minutes()))
	}
	return SilentResult(b.String())
}

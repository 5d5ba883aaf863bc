package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tabletalk-io/tabletalk/pkg/config"
)

func fixedClock(hour, minute int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
	}
}

func TestParseBusyWindow(t *testing.T) {
	reference := fixedClock(9, 0)()

	interval, err := parseBusyWindow("10:00-11:30", reference)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if interval.start.Hour() != 10 || interval.end.Hour() != 11 || interval.end.Minute() != 30 {
		t.Errorf("unexpected interval: %v - %v", interval.start, interval.end)
	}

	if _, err := parseBusyWindow("not a window", reference); err == nil {
		t.Error("expected error for malformed window")
	}
}

func TestParseBusyWindow_WrapsPastMidnight(t *testing.T) {
	reference := fixedClock(22, 0)()

	interval, err := parseBusyWindow("23:00-01:00", reference)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !interval.end.After(interval.start) {
		t.Errorf("wrapped window should end after it starts: %v - %v", interval.start, interval.end)
	}
	if interval.end.Day() == interval.start.Day() {
		t.Errorf("wrapped window should cross midnight: %v - %v", interval.start, interval.end)
	}
}

func TestCheckAvailability(t *testing.T) {
	members := []config.MemberConfig{
		{Name: "Alice", Address: "Sidney Sussex College, Cambridge", Busy: []string{"10:00-12:00"}},
		{Name: "Bob", Address: "Trinity College, Cambridge", Busy: []string{"15:00-16:00"}},
	}
	tool := NewCheckAvailabilityTool(members).(*checkAvailabilityTool)
	tool.schedule.now = fixedClock(9, 30)

	result := tool.Execute(context.Background(), map[string]interface{}{"hours_ahead": float64(2)})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "Alice: Busy") {
		t.Errorf("Alice should be busy at 10:00 within 2h of 09:30: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "Bob: Available") {
		t.Errorf("Bob should be available until 15:00: %s", result.ForLLM)
	}
}

func TestCheckAvailability_UnknownPerson(t *testing.T) {
	members := []config.MemberConfig{{Name: "Alice"}}
	tool := NewCheckAvailabilityTool(members).(*checkAvailabilityTool)
	tool.schedule.now = fixedClock(9, 0)

	result := tool.Execute(context.Background(), map[string]interface{}{
		"people": []interface{}{"Zed"},
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "No matching people found") {
		t.Errorf("expected roster hint, got: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "Alice") {
		t.Errorf("roster hint should list configured people: %s", result.ForLLM)
	}
}

func TestCheckAvailability_CaseInsensitiveNames(t *testing.T) {
	members := []config.MemberConfig{{Name: "Alice", Busy: []string{"10:00-12:00"}}}
	tool := NewCheckAvailabilityTool(members).(*checkAvailabilityTool)
	tool.schedule.now = fixedClock(9, 30)

	result := tool.Execute(context.Background(), map[string]interface{}{
		"people": []interface{}{"alice"},
	})
	if !strings.Contains(result.ForLLM, "Alice: Busy") {
		t.Errorf("lowercase name should match: %s", result.ForLLM)
	}
}

func TestFindCommonFreeTime(t *testing.T) {
	members := []config.MemberConfig{
		{Name: "Alice", Busy: []string{"10:00-11:00"}},
		{Name: "Bob", Busy: []string{"12:00-13:00"}},
	}
	tool := NewCommonFreeTimeTool(members).(*commonFreeTimeTool)
	tool.schedule.now = fixedClock(9, 0)

	result := tool.Execute(context.Background(), map[string]interface{}{"hours_ahead": float64(5)})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	for _, slot := range []string{"09:00 - 10:00", "11:00 - 12:00", "13:00 - 14:00"} {
		if !strings.Contains(result.ForLLM, slot) {
			t.Errorf("missing free slot %s in: %s", slot, result.ForLLM)
		}
	}
	if strings.Contains(result.ForLLM, "10:00 - 11:00 (") {
		t.Errorf("busy window reported as free: %s", result.ForLLM)
	}
}

func TestFindCommonFreeTime_EveryoneFree(t *testing.T) {
	members := []config.MemberConfig{{Name: "Alice"}, {Name: "Bob"}}
	tool := NewCommonFreeTimeTool(members).(*commonFreeTimeTool)
	tool.schedule.now = fixedClock(9, 0)

	result := tool.Execute(context.Background(), nil)
	if !strings.Contains(result.ForLLM, "completely free") {
		t.Errorf("expected completely-free message: %s", result.ForLLM)
	}
}

func TestFindCommonFreeTime_SkipsShortGaps(t *testing.T) {
	members := []config.MemberConfig{
		{Name: "Alice", Busy: []string{"09:00-10:00", "10:15-12:00"}},
	}
	tool := NewCommonFreeTimeTool(members).(*commonFreeTimeTool)
	tool.schedule.now = fixedClock(9, 0)

	result := tool.Execute(context.Background(), map[string]interface{}{"hours_ahead": float64(3)})
	if strings.Contains(result.ForLLM, "10:00 - 10:15") {
		t.Errorf("15 minute gap should be dropped: %s", result.ForLLM)
	}
}

func TestAvailablePeople(t *testing.T) {
	tool := NewAvailablePeopleTool([]config.MemberConfig{{Name: "Alice"}, {Name: "Bob"}})
	result := tool.Execute(context.Background(), nil)
	if !strings.Contains(result.ForLLM, "Alice") || !strings.Contains(result.ForLLM, "Bob") {
		t.Errorf("expected roster in result: %s", result.ForLLM)
	}

	empty := NewAvailablePeopleTool(nil)
	result = empty.Execute(context.Background(), nil)
	if !strings.Contains(result.ForLLM, "No people configured") {
		t.Errorf("expected empty-roster message: %s", result.ForLLM)
	}
}

func TestCurrentLocations(t *testing.T) {
	members := []config.MemberConfig{
		{Name: "Alice", Address: "Sidney Sussex College, Cambridge", Busy: []string{"10:00-11:00"}},
	}
	tool := NewCurrentLocationsTool(members).(*currentLocationsTool)
	tool.schedule.now = fixedClock(9, 30)

	result := tool.Execute(context.Background(), nil)
	if !strings.Contains(result.ForLLM, "Sidney Sussex College") {
		t.Errorf("expected address in result: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "Busy 10:00 - 11:00") {
		t.Errorf("expected busy slot in result: %s", result.ForLLM)
	}
}

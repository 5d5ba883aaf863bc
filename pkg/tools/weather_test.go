package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCyclingSuitability(t *testing.T) {
	cases := []struct {
		name       string
		conditions currentConditions
		suitable   bool
		fragment   string
	}{
		{
			name:       "clear and mild",
			conditions: currentConditions{Temp: 18, Condition: "clear", Description: "clear sky"},
			suitable:   true,
			fragment:   "good cycling weather",
		},
		{
			name:       "raining",
			conditions: currentConditions{Temp: 15, Condition: "rain", Rain1h: 2.5},
			suitable:   false,
			fragment:   "raining",
		},
		{
			name:       "drizzle without measured rain",
			conditions: currentConditions{Temp: 15, Condition: "drizzle"},
			suitable:   false,
			fragment:   "rain expected",
		},
		{
			name:       "snowing",
			conditions: currentConditions{Temp: 1, Condition: "snow", Snow1h: 1.0},
			suitable:   false,
			fragment:   "snowing",
		},
		{
			name:       "thunderstorm",
			conditions: currentConditions{Temp: 20, Condition: "thunderstorm"},
			suitable:   false,
			fragment:   "thunderstorms",
		},
		{
			name:       "high wind",
			conditions: currentConditions{Temp: 20, Condition: "clear", WindSpeed: 12},
			suitable:   false,
			fragment:   "very windy",
		},
		{
			name:       "freezing",
			conditions: currentConditions{Temp: -2, Condition: "clear"},
			suitable:   false,
			fragment:   "freezing",
		},
		{
			name:       "extreme heat",
			conditions: currentConditions{Temp: 38, Condition: "clear"},
			suitable:   false,
			fragment:   "extremely hot",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			suitable, reason := cyclingSuitability(&tc.conditions)
			if suitable != tc.suitable {
				t.Errorf("suitable = %v, want %v (reason: %s)", suitable, tc.suitable, reason)
			}
			if !strings.Contains(reason, tc.fragment) {
				t.Errorf("reason %q missing %q", reason, tc.fragment)
			}
		})
	}
}

func TestCyclingSuitability_NilConditions(t *testing.T) {
	suitable, _ := cyclingSuitability(nil)
	if suitable {
		t.Error("nil conditions should not be suitable")
	}
}

func TestTravelModeSuitability(t *testing.T) {
	storm := &currentConditions{Condition: "thunderstorm"}
	if suitable, _ := travelModeSuitability(storm, "walking"); suitable {
		t.Error("walking should be unsuitable in thunderstorms")
	}
	if suitable, _ := travelModeSuitability(storm, "driving"); !suitable {
		t.Error("driving should be unaffected by thunderstorms")
	}

	heavyRain := &currentConditions{Condition: "rain", Rain1h: 7}
	if suitable, _ := travelModeSuitability(heavyRain, "walking"); suitable {
		t.Error("walking should be unsuitable in heavy rain")
	}

	lightRain := &currentConditions{Condition: "clear", Rain1h: 2}
	if suitable, _ := travelModeSuitability(lightRain, "walking"); !suitable {
		t.Error("light rain should still allow walking")
	}
	if suitable, _ := travelModeSuitability(lightRain, "bicycling"); suitable {
		t.Error("any rain should rule out cycling")
	}

	windy := &currentConditions{Condition: "clear", WindSpeed: 11}
	if suitable, reason := travelModeSuitability(windy, "bicycling"); suitable {
		t.Errorf("high wind should rule out cycling: %s", reason)
	}

	// Temperature bounds apply to the dedicated cycling check, not mode routing.
	cold := &currentConditions{Condition: "clear", Temp: -5}
	if suitable, _ := travelModeSuitability(cold, "bicycling"); !suitable {
		t.Error("mode routing should not apply temperature bounds")
	}
}

func TestCurrentWeatherTool(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Cambridge, UK" {
			t.Errorf("geocode query = %q", got)
		}
		w.Write([]byte(`[{"lat": 52.2, "lon": 0.12}]`))
	}))
	defer geo.Close()

	onecall := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("units"); got != "metric" {
			t.Errorf("units = %q", got)
		}
		w.Write([]byte(`{"current": {
			"temp": 14.2, "feels_like": 13.0, "humidity": 70, "wind_speed": 3.5,
			"weather": [{"main": "Clouds", "description": "scattered clouds"}]
		}}`))
	}))
	defer onecall.Close()

	tool := NewCurrentWeatherTool("test-key").(*currentWeatherTool)
	tool.client.geoURL = geo.URL
	tool.client.oneCallURL = onecall.URL

	result := tool.Execute(context.Background(), map[string]interface{}{"location": "Cambridge, UK"})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "14.2C") {
		t.Errorf("missing temperature: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "Cycling conditions: good") {
		t.Errorf("missing cycling verdict: %s", result.ForLLM)
	}
}

func TestCurrentWeatherTool_UnknownLocation(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer geo.Close()

	tool := NewCurrentWeatherTool("test-key").(*currentWeatherTool)
	tool.client.geoURL = geo.URL

	result := tool.Execute(context.Background(), map[string]interface{}{"location": "Nowhereville"})
	if !result.IsError {
		t.Fatal("expected error for unknown location")
	}
}

func TestWeatherTools_RequireAPIKey(t *testing.T) {
	tool := NewCurrentWeatherTool("")
	result := tool.Execute(context.Background(), map[string]interface{}{"location": "Cambridge"})
	if !result.IsError {
		t.Fatal("expected error without API key")
	}
}

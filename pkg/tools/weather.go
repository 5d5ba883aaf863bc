package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	openWeatherOneCallURL = "https://api.openweathermap.org/data/3.0/onecall"
	openWeatherGeoURL     = "https://api.openweathermap.org/geo/1.0/direct"
)

// openWeatherClient wraps the OpenWeather geocoding and One Call 3.0 APIs.
type openWeatherClient struct {
	apiKey     string
	httpClient *http.Client
	oneCallURL string
	geoURL     string
}

func newOpenWeatherClient(apiKey string) *openWeatherClient {
	return &openWeatherClient{
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		oneCallURL: openWeatherOneCallURL,
		geoURL:     openWeatherGeoURL,
	}
}

func (c *openWeatherClient) configured() bool {
	return c != nil && c.apiKey != ""
}

func (c *openWeatherClient) geocode(ctx context.Context, location string) (float64, float64, error) {
	query := url.Values{}
	query.Set("q", location)
	query.Set("limit", "1")
	query.Set("appid", c.apiKey)

	var results []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := c.getJSON(ctx, c.geoURL, query, &results); err != nil {
		return 0, 0, fmt.Errorf("geocode %q: %w", location, err)
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("location %q not found", location)
	}
	return results[0].Lat, results[0].Lon, nil
}

// currentConditions is the subset of the One Call response the tools need,
// flattened for the suitability checks. Units are metric.
type currentConditions struct {
	Temp        float64
	FeelsLike   float64
	Humidity    int
	WindSpeed   float64
	Rain1h      float64
	Snow1h      float64
	Condition   string
	Description string
}

func (c *openWeatherClient) currentConditions(ctx context.Context, lat, lon float64) (*currentConditions, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("appid", c.apiKey)
	query.Set("units", "metric")
	query.Set("exclude", "minutely,hourly,daily,alerts")

	var payload struct {
		Current struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
			WindSpeed float64 `json:"wind_speed"`
			Rain      struct {
				OneHour float64 `json:"1h"`
			} `json:"rain"`
			Snow struct {
				OneHour float64 `json:"1h"`
			} `json:"snow"`
			Weather []struct {
				Main        string `json:"main"`
				Description string `json:"description"`
			} `json:"weather"`
		} `json:"current"`
	}
	if err := c.getJSON(ctx, c.oneCallURL, query, &payload); err != nil {
		return nil, fmt.Errorf("fetch current weather: %w", err)
	}

	conditions := &currentConditions{
		Temp:      payload.Current.Temp,
		FeelsLike: payload.Current.FeelsLike,
		Humidity:  payload.Current.Humidity,
		WindSpeed: payload.Current.WindSpeed,
		Rain1h:    payload.Current.Rain.OneHour,
		Snow1h:    payload.Current.Snow.OneHour,
	}
	if len(payload.Current.Weather) > 0 {
		conditions.Condition = strings.ToLower(payload.Current.Weather[0].Main)
		conditions.Description = payload.Current.Weather[0].Description
	}
	return conditions, nil
}

func (c *openWeatherClient) getJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncateLogString(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// cyclingSuitability applies the cycling rules: any precipitation, storms,
// wind above 10 m/s, or temperatures below 0 or above 35 degrees rule it out.
func cyclingSuitability(c *currentConditions) (bool, string) {
	if c == nil {
		return false, "unable to fetch current weather data"
	}

	var reasons []string
	if strings.Contains(c.Condition, "rain") || strings.Contains(c.Condition, "drizzle") || c.Rain1h > 0 {
		if c.Rain1h > 0 {
			reasons = append(reasons, fmt.Sprintf("raining (%.1f mm in last hour)", c.Rain1h))
		} else {
			reasons = append(reasons, "rain expected")
		}
	}
	if strings.Contains(c.Condition, "snow") || c.Snow1h > 0 {
		if c.Snow1h > 0 {
			reasons = append(reasons, fmt.Sprintf("snowing (%.1f mm in last hour)", c.Snow1h))
		} else {
			reasons = append(reasons, "snow expected")
		}
	}
	if strings.Contains(c.Condition, "thunderstorm") || strings.Contains(c.Condition, "storm") {
		reasons = append(reasons, "thunderstorms")
	}
	if c.WindSpeed > 10 {
		reasons = append(reasons, fmt.Sprintf("very windy (%.1f m/s)", c.WindSpeed))
	}
	if c.Temp < 0 {
		reasons = append(reasons, fmt.Sprintf("freezing temperature (%.1fC)", c.Temp))
	} else if c.Temp > 35 {
		reasons = append(reasons, fmt.Sprintf("extremely hot (%.1fC)", c.Temp))
	}

	if len(reasons) > 0 {
		return false, strings.Join(reasons, ", ")
	}
	return true, fmt.Sprintf("good cycling weather (%.1fC, %s)", c.Temp, c.Description)
}

// travelModeSuitability checks whether the weather allows a travel mode.
// Cycling uses the stricter cycling rules minus the temperature bounds;
// walking only rules out storms and heavy rain. Other modes always pass.
func travelModeSuitability(c *currentConditions, mode string) (bool, string) {
	if c == nil {
		return true, "weather data unavailable"
	}

	switch mode {
	case "bicycling":
		var reasons []string
		if strings.Contains(c.Condition, "rain") || c.Rain1h > 0 {
			reasons = append(reasons, "raining")
		}
		if strings.Contains(c.Condition, "snow") {
			reasons = append(reasons, "snowing")
		}
		if strings.Contains(c.Condition, "thunderstorm") {
			reasons = append(reasons, "thunderstorms")
		}
		if c.WindSpeed > 10 {
			reasons = append(reasons, fmt.Sprintf("very windy (%.1f m/s)", c.WindSpeed))
		}
		if len(reasons) > 0 {
			return false, "not suitable for cycling: " + strings.Join(reasons, ", ")
		}
		return true, "good cycling weather"

	case "walking":
		if strings.Contains(c.Condition, "thunderstorm") || strings.Contains(c.Condition, "storm") {
			return false, "thunderstorms: not safe for walking"
		}
		if c.Rain1h > 5 {
			return false, fmt.Sprintf("heavy rain (%.1fmm)", c.Rain1h)
		}
		return true, "suitable for walking"

	default:
		return true, fmt.Sprintf("weather does not significantly affect %s", mode)
	}
}

type currentWeatherTool struct {
	client *openWeatherClient
}

func NewCurrentWeatherTool(apiKey string) Tool {
	return &currentWeatherTool{client: newOpenWeatherClient(apiKey)}
}

func (t *currentWeatherTool) Name() string { return "get_current_weather" }

func (t *currentWeatherTool) Description() string {
	return "Get the current weather for a location, including a cycling suitability assessment."
}

func (t *currentWeatherTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"location": map[string]interface{}{
				"type":        "string",
				"description": "City name or address, e.g. \"Cambridge, UK\"",
			},
		},
		"required": []string{"location"},
	}
}

func (t *currentWeatherTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if !t.client.configured() {
		return ErrorResult("OpenWeather API key not configured")
	}
	location := stringArg(args, "location")

	lat, lon, err := t.client.geocode(ctx, location)
	if err != nil {
		return ErrorResult(fmt.Sprintf("unable to find location: %s", location)).WithError(err)
	}

	conditions, err := t.client.currentConditions(ctx, lat, lon)
	if err != nil {
		return ErrorResult("unable to fetch weather data").WithError(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Weather in %s:\n", location)
	fmt.Fprintf(&b, "Temperature: %.1fC (feels like %.1fC)\n", conditions.Temp, conditions.FeelsLike)
	fmt.Fprintf(&b, "Conditions: %s\n", conditions.Description)
	fmt.Fprintf(&b, "Humidity: %d%%\n", conditions.Humidity)
	fmt.Fprintf(&b, "Wind: %.1f m/s\n", conditions.WindSpeed)

	suitable, reason := cyclingSuitability(conditions)
	verdict := "not recommended"
	if suitable {
		verdict = "good"
	}
	fmt.Fprintf(&b, "Cycling conditions: %s (%s)", verdict, reason)

	return SilentResult(b.String())
}

type cyclingConditionsTool struct {
	client *openWeatherClient
}

func NewCyclingConditionsTool(apiKey string) Tool {
	return &cyclingConditionsTool{client: newOpenWeatherClient(apiKey)}
}

func (t *cyclingConditionsTool) Name() string { return "check_cycling_conditions" }

func (t *cyclingConditionsTool) Description() string {
	return "Quick cycling suitability check for a location."
}

func (t *cyclingConditionsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"location": map[string]interface{}{
				"type":        "string",
				"description": "City name or address to check",
			},
		},
		"required": []string{"location"},
	}
}

func (t *cyclingConditionsTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if !t.client.configured() {
		return ErrorResult("OpenWeather API key not configured")
	}
	location := stringArg(args, "location")

	lat, lon, err := t.client.geocode(ctx, location)
	if err != nil {
		return ErrorResult(fmt.Sprintf("unable to find location: %s", location)).WithError(err)
	}

	conditions, err := t.client.currentConditions(ctx, lat, lon)
	if err != nil {
		return ErrorResult("unable to fetch weather data").WithError(err)
	}

	suitable, reason := cyclingSuitability(conditions)
	if suitable {
		return SilentResult(fmt.Sprintf("Cycling is suitable in %s. Reason: %s", location, reason))
	}
	return SilentResult(fmt.Sprintf("Cycling is NOT recommended in %s. Reason: %s. Consider walking, driving, or public transport instead.", location, reason))
}

package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tabletalk-io/tabletalk/pkg/config"
)

type directionsLeg struct {
	StartAddress string `json:"start_address"`
	EndAddress   string `json:"end_address"`
	Distance     struct {
		Text string `json:"text"`
	} `json:"distance"`
	Duration struct {
		Text string `json:"text"`
	} `json:"duration"`
	DurationInTraffic *struct {
		Text string `json:"text"`
	} `json:"duration_in_traffic"`
	Steps []struct {
		HTMLInstructions string `json:"html_instructions"`
		Distance         struct {
			Text string `json:"text"`
		} `json:"distance"`
	} `json:"steps"`
}

func (c *googleMapsClient) directions(ctx context.Context, origin, destination, mode string) (*directionsLeg, error) {
	query := url.Values{}
	query.Set("origin", origin)
	query.Set("destination", destination)
	query.Set("mode", mode)
	query.Set("departure_time", "now")
	query.Set("key", c.apiKey)

	var payload struct {
		Status string `json:"status"`
		Routes []struct {
			Legs []directionsLeg `json:"legs"`
		} `json:"routes"`
	}
	if err := c.getJSON(ctx, c.directionsURL, query, &payload); err != nil {
		return nil, fmt.Errorf("fetch directions: %w", err)
	}
	if payload.Status != "OK" {
		return nil, fmt.Errorf("directions lookup failed: %s", payload.Status)
	}
	if len(payload.Routes) == 0 || len(payload.Routes[0].Legs) == 0 {
		return nil, fmt.Errorf("no route found")
	}
	return &payload.Routes[0].Legs[0], nil
}

func formatLeg(leg *directionsLeg, person, weatherWarning string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n%s's route\n%s\n", strings.Repeat("=", 60), person, strings.Repeat("=", 60))
	if weatherWarning != "" {
		fmt.Fprintf(&b, "Warning: %s\n\n", weatherWarning)
	}
	fmt.Fprintf(&b, "From: %s\n", leg.StartAddress)
	fmt.Fprintf(&b, "To: %s\n", leg.EndAddress)
	fmt.Fprintf(&b, "Distance: %s\n", leg.Distance.Text)
	fmt.Fprintf(&b, "Duration: %s\n", leg.Duration.Text)
	if leg.DurationInTraffic != nil {
		fmt.Fprintf(&b, "Duration in current traffic: %s\n", leg.DurationInTraffic.Text)
	}
	b.WriteString("\nStep-by-step directions:\n")
	for i, step := range leg.Steps {
		fmt.Fprintf(&b, "\n%d. %s\n   (%s)\n", i+1, stripInstructionHTML(step.HTMLInstructions), step.Distance.Text)
	}
	return b.String()
}

// stripInstructionHTML flattens the markup Google puts in step instructions.
func stripInstructionHTML(instruction string) string {
	replacer := strings.NewReplacer(
		"<b>", "", "</b>", "",
		`<div style="font-size:0.9em">`, " - ",
		"</div>", "",
		"&nbsp;", " ",
	)
	return replacer.Replace(instruction)
}

type groupDirectionsTool struct {
	maps    *googleMapsClient
	members []config.MemberConfig
}

func NewGroupDirectionsTool(apiKey string, members []config.MemberConfig) Tool {
	return &groupDirectionsTool{maps: newGoogleMapsClient(apiKey), members: members}
}

func (t *groupDirectionsTool) Name() string { return "get_group_directions" }

func (t *groupDirectionsTool) Description() string {
	return "Get directions for every group member to a destination."
}

func (t *groupDirectionsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"destination": map[string]interface{}{
				"type":        "string",
				"description": "Restaurant name or address to route to",
			},
			"travel_mode": map[string]interface{}{
				"type":        "string",
				"description": "driving, walking, bicycling, or transit (default walking)",
			},
		},
		"required": []string{"destination"},
	}
}

func (t *groupDirectionsTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if !t.maps.configured() {
		return ErrorResult("Google Maps API key not configured")
	}
	if len(t.members) == 0 {
		return ErrorResult("no group members configured")
	}
	destination := stringArg(args, "destination")
	mode := normalizeTravelMode(stringArg(args, "travel_mode"), "walking")

	var b strings.Builder
	fmt.Fprintf(&b, "GROUP DIRECTIONS TO: %s\nTravel mode: %s\n", destination, strings.ToUpper(mode))

	for _, member := range t.members {
		leg, err := t.maps.directions(ctx, member.Address, destination, mode)
		if err != nil {
			fmt.Fprintf(&b, "\nUnable to get directions for %s: %v\n", member.Name, err)
			continue
		}
		b.WriteString(formatLeg(leg, member.Name, ""))
	}
	return SilentResult(b.String())
}

type groupDirectionsWeatherTool struct {
	maps    *googleMapsClient
	weather *openWeatherClient
	members []config.MemberConfig
}

func NewGroupDirectionsWeatherTool(googleKey, openWeatherKey string, members []config.MemberConfig) Tool {
	return &groupDirectionsWeatherTool{
		maps:    newGoogleMapsClient(googleKey),
		weather: newOpenWeatherClient(openWeatherKey),
		members: members,
	}
}

func (t *groupDirectionsWeatherTool) Name() string { return "get_group_directions_with_weather" }

func (t *groupDirectionsWeatherTool) Description() string {
	return "Get directions for every group member with weather-aware travel mode warnings."
}

func (t *groupDirectionsWeatherTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"destination": map[string]interface{}{
				"type":        "string",
				"description": "Restaurant name or address to route to",
			},
			"travel_mode": map[string]interface{}{
				"type":        "string",
				"description": "driving, walking, bicycling, or transit (default driving)",
			},
		},
		"required": []string{"destination"},
	}
}

func (t *groupDirectionsWeatherTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if !t.maps.configured() {
		return ErrorResult("Google Maps API key not configured")
	}
	if len(t.members) == 0 {
		return ErrorResult("no group members configured")
	}
	destination := stringArg(args, "destination")
	mode := normalizeTravelMode(stringArg(args, "travel_mode"), "driving")

	var b strings.Builder
	fmt.Fprintf(&b, "GROUP DIRECTIONS TO: %s\nTravel mode: %s\n", destination, strings.ToUpper(mode))

	// Weather at the destination decides the warning. Lookup failures are
	// non-fatal: directions still go out without the warning.
	var conditions *currentConditions
	if t.weather.configured() {
		if lat, lon, err := t.weather.geocode(ctx, destination); err == nil {
			conditions, _ = t.weather.currentConditions(ctx, lat, lon)
		}
	}
	if conditions != nil {
		if suitable, reason := travelModeSuitability(conditions, mode); !suitable {
			fmt.Fprintf(&b, "WEATHER WARNING: %s\nConsider using a different travel mode\n", reason)
		}
	}

	var perPersonWarning string
	if conditions != nil && (mode == "bicycling" || mode == "walking") {
		if suitable, reason := travelModeSuitability(conditions, mode); !suitable {
			perPersonWarning = reason
		}
	}

	for _, member := range t.members {
		leg, err := t.maps.directions(ctx, member.Address, destination, mode)
		if err != nil {
			fmt.Fprintf(&b, "\nUnable to get directions for %s: %v\n", member.Name, err)
			continue
		}
		b.WriteString(formatLeg(leg, member.Name, perPersonWarning))
	}
	return SilentResult(b.String())
}

type travelTimeSummaryTool struct {
	maps    *googleMapsClient
	members []config.MemberConfig
}

func NewTravelTimeSummaryTool(apiKey string, members []config.MemberConfig) Tool {
	return &travelTimeSummaryTool{maps: newGoogleMapsClient(apiKey), members: members}
}

func (t *travelTimeSummaryTool) Name() string { return "get_travel_time_summary" }

func (t *travelTimeSummaryTool) Description() string {
	return "Get a driving travel time summary for all group members to a destination."
}

func (t *travelTimeSummaryTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"destination": map[string]interface{}{
				"type":        "string",
				"description": "Restaurant name or address",
			},
		},
		"required": []string{"destination"},
	}
}

func (t *travelTimeSummaryTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if !t.maps.configured() {
		return ErrorResult("Google Maps API key not configured")
	}
	if len(t.members) == 0 {
		return ErrorResult("no group members configured")
	}
	destination := stringArg(args, "destination")

	var b strings.Builder
	fmt.Fprintf(&b, "TRAVEL TIME SUMMARY TO: %s\n", destination)

	for _, member := range t.members {
		leg, err := t.maps.directions(ctx, member.Address, destination, "driving")
		if err != nil {
			fmt.Fprintf(&b, "%s: unable to calculate\n", member.Name)
			continue
		}
		if leg.DurationInTraffic != nil {
			fmt.Fprintf(&b, "%s: %s - %s (with traffic) / %s (normal)\n",
				member.Name, leg.Distance.Text, leg.DurationInTraffic.Text, leg.Duration.Text)
		} else {
			fmt.Fprintf(&b, "%s: %s - %s\n", member.Name, leg.Distance.Text, leg.Duration.Text)
		}
	}
	return SilentResult(b.String())
}

type listGroupMembersTool struct {
	members []config.MemberConfig
}

func NewListGroupMembersTool(members []config.MemberConfig) Tool {
	return &listGroupMembersTool{members: members}
}

func (t *listGroupMembersTool) Name() string { return "list_group_members" }

func (t *listGroupMembersTool) Description() string {
	return "List all group members and their home addresses."
}

func (t *listGroupMembersTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *listGroupMembersTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if len(t.members) == 0 {
		return SilentResult("No group members configured.")
	}
	var b strings.Builder
	b.WriteString("GROUP MEMBERS:\n")
	for _, member := range t.members {
		fmt.Fprintf(&b, "%s: %s\n", member.Name, member.Address)
	}
	return SilentResult(b.String())
}

func normalizeTravelMode(mode, fallback string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case "driving", "walking", "bicycling", "transit":
		return mode
	default:
		return fallback
	}
}

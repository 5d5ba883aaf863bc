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
	googlePlacesNearbyURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"
	googleGeocodingURL    = "https://maps.googleapis.com/maps/api/geocode/json"
	googleDirectionsURL   = "https://maps.googleapis.com/maps/api/directions/json"

	defaultSearchRadiusMeters = 1500
	maxRestaurantResults      = 20
)

// googleMapsClient wraps the Google Geocoding, Places and Directions APIs.
type googleMapsClient struct {
	apiKey        string
	httpClient    *http.Client
	nearbyURL     string
	geocodingURL  string
	directionsURL string
}

func newGoogleMapsClient(apiKey string) *googleMapsClient {
	return &googleMapsClient{
		apiKey:        strings.TrimSpace(apiKey),
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		nearbyURL:     googlePlacesNearbyURL,
		geocodingURL:  googleGeocodingURL,
		directionsURL: googleDirectionsURL,
	}
}

func (c *googleMapsClient) configured() bool {
	return c != nil && c.apiKey != ""
}

type geocodeResult struct {
	FormattedAddress string   `json:"formatted_address"`
	Types            []string `json:"types"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

func (c *googleMapsClient) geocode(ctx context.Context, address string) ([]geocodeResult, error) {
	query := url.Values{}
	query.Set("address", address)
	query.Set("key", c.apiKey)

	var payload struct {
		Status  string          `json:"status"`
		Results []geocodeResult `json:"results"`
	}
	if err := c.getJSON(ctx, c.geocodingURL, query, &payload); err != nil {
		return nil, fmt.Errorf("geocode address: %w", err)
	}
	if payload.Status != "OK" {
		return nil, fmt.Errorf("geocoding failed: %s", payload.Status)
	}
	return payload.Results, nil
}

type placeResult struct {
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity"`
	FormattedAddress string   `json:"formatted_address"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	PriceLevel       int      `json:"price_level"`
	Types            []string `json:"types"`
	OpeningHours     struct {
		OpenNow bool `json:"open_now"`
	} `json:"opening_hours"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

func (c *googleMapsClient) nearbyRestaurants(ctx context.Context, lat, lng float64, radius int, cuisine string) ([]placeResult, error) {
	query := url.Values{}
	query.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	query.Set("radius", strconv.Itoa(radius))
	query.Set("type", "restaurant")
	query.Set("key", c.apiKey)
	if cuisine != "" {
		query.Set("keyword", cuisine)
	}

	var payload struct {
		Status       string        `json:"status"`
		ErrorMessage string        `json:"error_message"`
		Results      []placeResult `json:"results"`
	}
	if err := c.getJSON(ctx, c.nearbyURL, query, &payload); err != nil {
		return nil, fmt.Errorf("search restaurants: %w", err)
	}
	if payload.Status != "OK" && payload.Status != "ZERO_RESULTS" {
		if payload.ErrorMessage != "" {
			return nil, fmt.Errorf("places search failed: %s: %s", payload.Status, payload.ErrorMessage)
		}
		return nil, fmt.Errorf("places search failed: %s", payload.Status)
	}
	return payload.Results, nil
}

func (c *googleMapsClient) getJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
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

func formatRestaurant(place placeResult) string {
	address := place.Vicinity
	if address == "" {
		address = place.FormattedAddress
	}
	if address == "" {
		address = "Address not available"
	}

	var cuisineTypes []string
	for _, t := range place.Types {
		switch t {
		case "restaurant", "food", "point_of_interest", "establishment":
			continue
		}
		cuisineTypes = append(cuisineTypes, strings.ReplaceAll(t, "_", " "))
	}
	cuisine := strings.Join(cuisineTypes, ", ")
	if cuisine == "" {
		cuisine = "Not specified"
	}

	price := "Price not available"
	if place.PriceLevel > 0 {
		price = strings.Repeat("$", place.PriceLevel)
	}

	status := "Closed"
	if place.OpeningHours.OpenNow {
		status = "Open now"
	}

	return fmt.Sprintf("%s\nCuisine: %s\nAddress: %s\nRating: %.1f/5 (%d reviews)\nPrice: %s\nStatus: %s\nCoordinates: %f, %f",
		place.Name, cuisine, address, place.Rating, place.UserRatingsTotal, price, status,
		place.Geometry.Location.Lat, place.Geometry.Location.Lng)
}

func formatRestaurantList(results []placeResult, radius int, cuisine string) string {
	if len(results) == 0 {
		if cuisine != "" {
			return fmt.Sprintf("No restaurants found within %dm with %s cuisine.", radius, cuisine)
		}
		return fmt.Sprintf("No restaurants found within %dm.", radius)
	}

	shown := results
	if len(shown) > maxRestaurantResults {
		shown = shown[:maxRestaurantResults]
	}
	formatted := make([]string, 0, len(shown))
	for _, place := range shown {
		formatted = append(formatted, formatRestaurant(place))
	}

	header := fmt.Sprintf("Found %d restaurants within %dm:", len(results), radius)
	if cuisine != "" {
		header = fmt.Sprintf("Found %d %s restaurants within %dm:", len(results), cuisine, radius)
	}
	return header + "\n" + strings.Join(formatted, "\n---\n")
}

type findRestaurantsTool struct {
	client *googleMapsClient
}

func NewFindRestaurantsTool(apiKey string) Tool {
	return &findRestaurantsTool{client: newGoogleMapsClient(apiKey)}
}

func (t *findRestaurantsTool) Name() string { return "find_restaurants" }

func (t *findRestaurantsTool) Description() string {
	return "Find restaurants near a latitude/longitude using Google Places."
}

func (t *findRestaurantsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"latitude": map[string]interface{}{
				"type":        "number",
				"description": "Latitude of the search center",
			},
			"longitude": map[string]interface{}{
				"type":        "number",
				"description": "Longitude of the search center",
			},
			"radius": map[string]interface{}{
				"type":        "integer",
				"description": "Search radius in meters (default 1500)",
			},
			"cuisine_type": map[string]interface{}{
				"type":        "string",
				"description": "Optional cuisine filter, e.g. \"italian\", \"chinese\"",
			},
		},
		"required": []string{"latitude", "longitude"},
	}
}

func (t *findRestaurantsTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if !t.client.configured() {
		return ErrorResult("Google Maps API key not configured")
	}

	lat, _ := floatArg(args, "latitude", 0)
	lng, _ := floatArg(args, "longitude", 0)
	radius := intArg(args, "radius", defaultSearchRadiusMeters)
	cuisine := stringArg(args, "cuisine_type")

	results, err := t.client.nearbyRestaurants(ctx, lat, lng, radius, cuisine)
	if err != nil {
		return ErrorResult("unable to fetch restaurant data").WithError(err)
	}
	return SilentResult(formatRestaurantList(results, radius, cuisine))
}

type geocodeAddressTool struct {
	client *googleMapsClient
}

func NewGeocodeAddressTool(apiKey string) Tool {
	return &geocodeAddressTool{client: newGoogleMapsClient(apiKey)}
}

func (t *geocodeAddressTool) Name() string { return "geocode_address" }

func (t *geocodeAddressTool) Description() string {
	return "Convert an address to latitude/longitude coordinates."
}

func (t *geocodeAddressTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"address": map[string]interface{}{
				"type":        "string",
				"description": "Address to geocode, e.g. \"10 Downing Street, London\"",
			},
		},
		"required": []string{"address"},
	}
}

func (t *geocodeAddressTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if !t.client.configured() {
		return ErrorResult("Google Maps API key not configured")
	}
	address := stringArg(args, "address")

	results, err := t.client.geocode(ctx, address)
	if err != nil {
		return ErrorResult(fmt.Sprintf("unable to geocode address: %s", address)).WithError(err)
	}
	if len(results) == 0 {
		return ErrorResult(fmt.Sprintf("no results found for address: %s", address))
	}

	if len(results) > 5 {
		results = results[:5]
	}
	var b strings.Builder
	b.WriteString("Geocoding results:")
	for i, result := range results {
		fmt.Fprintf(&b, "\nResult %d:\nAddress: %s\nCoordinates: %f, %f\nType: %s",
			i+1, result.FormattedAddress,
			result.Geometry.Location.Lat, result.Geometry.Location.Lng,
			strings.Join(result.Types, ", "))
	}
	return SilentResult(b.String())
}

type restaurantsByAddressTool struct {
	client *googleMapsClient
}

func NewRestaurantsByAddressTool(apiKey string) Tool {
	return &restaurantsByAddressTool{client: newGoogleMapsClient(apiKey)}
}

func (t *restaurantsByAddressTool) Name() string { return "find_restaurants_by_address" }

func (t *restaurantsByAddressTool) Description() string {
	return "Find restaurants near an address (geocoding plus restaurant search in one step)."
}

func (t *restaurantsByAddressTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"address": map[string]interface{}{
				"type":        "string",
				"description": "Address to search near, e.g. \"Oxford Street, London\"",
			},
			"radius": map[string]interface{}{
				"type":        "integer",
				"description": "Search radius in meters (default 1500)",
			},
			"cuisine_type": map[string]interface{}{
				"type":        "string",
				"description": "Optional cuisine filter",
			},
		},
		"required": []string{"address"},
	}
}

func (t *restaurantsByAddressTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if !t.client.configured() {
		return ErrorResult("Google Maps API key not configured")
	}
	address := stringArg(args, "address")
	radius := intArg(args, "radius", defaultSearchRadiusMeters)
	cuisine := stringArg(args, "cuisine_type")

	geocoded, err := t.client.geocode(ctx, address)
	if err != nil || len(geocoded) == 0 {
		return ErrorResult(fmt.Sprintf("unable to find location for address: %s", address)).WithError(err)
	}

	location := geocoded[0]
	results, err := t.client.nearbyRestaurants(ctx,
		location.Geometry.Location.Lat, location.Geometry.Location.Lng, radius, cuisine)
	if err != nil {
		return ErrorResult("unable to fetch restaurant data").WithError(err)
	}

	header := fmt.Sprintf("Searching near: %s\n\n", location.FormattedAddress)
	return SilentResult(header + formatRestaurantList(results, radius, cuisine))
}

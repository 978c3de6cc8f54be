package places

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

	"github.com/vinatravel/discovery/internal/domain/model"
)

const (
	defaultBaseURL      = "https://maps.googleapis.com/maps/api"
	defaultRadiusMeters = 10000
	requestTimeout      = 10 * time.Second

	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// Google implements Provider against the Google Maps Platform REST APIs.
// Results are requested in Vietnamese.
type Google struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGoogle creates a Google provider. The API key is required.
func NewGoogle(apiKey string, opts ...GoogleOption) (*Google, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}
	g := &Google{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// GoogleOption applies a configuration option to the Google provider.
type GoogleOption func(*Google)

// WithBaseURL overrides the API base URL. Intended for tests.
func WithBaseURL(baseURL string) GoogleOption {
	return func(g *Google) {
		if baseURL != "" {
			g.baseURL = baseURL
		}
	}
}

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) GoogleOption {
	return func(g *Google) {
		if client != nil {
			g.httpClient = client
		}
	}
}

type nearbyResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID  string   `json:"place_id"`
		Name     string   `json:"name"`
		Vicinity string   `json:"vicinity"`
		Rating   float64  `json:"rating"`
		Types    []string `json:"types"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// NearbySearch implements Provider.
func (g *Google) NearbySearch(ctx context.Context, center model.Coordinates, radiusMeters int, keyword string) ([]Place, error) {
	if radiusMeters <= 0 {
		radiusMeters = defaultRadiusMeters
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", center.Lat, center.Lng))
	params.Set("radius", strconv.Itoa(radiusMeters))
	params.Set("language", "vi")
	params.Set("key", g.apiKey)
	if keyword != "" {
		params.Set("keyword", keyword)
	}

	var parsed nearbyResponse
	if err := g.getJSON(ctx, "/place/nearbysearch/json", params, &parsed); err != nil {
		return nil, err
	}
	if parsed.Status == statusZeroResults {
		return nil, nil
	}
	if parsed.Status != statusOK {
		return nil, fmt.Errorf("%w: status %s: %s", ErrProviderFailed, parsed.Status, parsed.ErrorMessage)
	}

	results := make([]Place, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, Place{
			PlaceID: r.PlaceID,
			Name:    r.Name,
			Address: r.Vicinity,
			Rating:  r.Rating,
			Types:   r.Types,
			Location: &model.Coordinates{
				Lat: r.Geometry.Location.Lat,
				Lng: r.Geometry.Location.Lng,
			},
		})
	}
	return results, nil
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode implements Provider.
func (g *Google) Geocode(ctx context.Context, address string) (*model.Coordinates, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("language", "vi")
	params.Set("key", g.apiKey)

	var parsed geocodeResponse
	if err := g.getJSON(ctx, "/geocode/json", params, &parsed); err != nil {
		return nil, err
	}
	if parsed.Status == statusZeroResults || len(parsed.Results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoResults, address)
	}
	if parsed.Status != statusOK {
		return nil, fmt.Errorf("%w: status %s: %s", ErrProviderFailed, parsed.Status, parsed.ErrorMessage)
	}

	loc := parsed.Results[0].Geometry.Location
	return &model.Coordinates{Lat: loc.Lat, Lng: loc.Lng}, nil
}

func (g *Google) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: http status %d", ErrProviderFailed, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

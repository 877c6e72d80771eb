package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sd-owens/YelpCamp/internal/config"
	"github.com/sd-owens/YelpCamp/internal/entity"
	"github.com/sd-owens/YelpCamp/internal/platform/logger"
	"go.uber.org/zap"
)

// ErrAddressNotFound means the geocoding service returned zero candidates
// for the submitted address.
var ErrAddressNotFound = errors.New("address not found")

// HTTPGeocoder resolves free-text addresses against a Nominatim-compatible
// search endpoint.
type HTTPGeocoder struct {
	endpoint  string
	userAgent string
	client    *http.Client
	logger    *logger.Logger
}

func NewHTTPGeocoder(cfg *config.GeocoderConfig, log *logger.Logger) *HTTPGeocoder {
	return &HTTPGeocoder{
		endpoint:  cfg.Endpoint,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    log.Named("Geocoder"),
	}
}

type geocodeResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Resolve returns the best candidate for freeText. Nominatim's usage policy
// requires an identifying User-Agent on every request.
func (g *HTTPGeocoder) Resolve(ctx context.Context, freeText string) (*entity.Location, error) {
	reqURL := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", g.endpoint, url.QueryEscape(freeText))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("Geocode request failed", zap.String("address", freeText), zap.Error(err))
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode request returned status %d", resp.StatusCode)
	}

	var results []geocodeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrAddressNotFound
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude in geocode response: %w", err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude in geocode response: %w", err)
	}

	return &entity.Location{
		Lat:              lat,
		Lng:              lng,
		FormattedAddress: results[0].DisplayName,
	}, nil
}

package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"nylour/internal/config"
	"nylour/internal/metrics"
	"nylour/internal/models"

	"github.com/redis/go-redis/v9"
)

// Client is a simple HTTP client for a Nominatim-compatible geocoding
// provider. Responses are cached in Redis when a cache is attached.
type Client struct {
	baseURL     string
	countryCode string
	userAgent   string
	httpClient  *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

// wireResult mirrors the provider payload; coordinates arrive as strings.
type wireResult struct {
	DisplayName string                `json:"display_name"`
	Lat         string                `json:"lat"`
	Lon         string                `json:"lon"`
	Address     models.GeocodeAddress `json:"address"`
}

func NewClient(cfg config.GeocoderConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		countryCode: cfg.CountryCode,
		userAgent:   cfg.UserAgent,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// UseRedisCache configures optional Redis caching for lookups.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// Reverse resolves coordinates into a single address candidate.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*models.GeocodeResult, error) {
	endpoint := fmt.Sprintf("%s/reverse?format=jsonv2&lat=%s&lon=%s",
		c.baseURL,
		url.QueryEscape(strconv.FormatFloat(lat, 'f', 6, 64)),
		url.QueryEscape(strconv.FormatFloat(lon, 'f', 6, 64)),
	)
	cacheKey := fmt.Sprintf("geocode:reverse:%.4f:%.4f", lat, lon)

	var raw wireResult
	if c.readCache(ctx, cacheKey, &raw) {
		metrics.IncGeocode("hit")
		return toResult(&raw)
	}

	if err := c.doGet(ctx, endpoint, &raw); err != nil {
		metrics.IncGeocode("error")
		return nil, err
	}
	metrics.IncGeocode("miss")
	c.writeCache(ctx, cacheKey, raw)
	return toResult(&raw)
}

// Search runs a free-text forward lookup scoped to the configured country.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]*models.GeocodeResult, error) {
	endpoint := fmt.Sprintf("%s/search?format=jsonv2&addressdetails=1&q=%s&limit=%d",
		c.baseURL, url.QueryEscape(query), limit)
	if c.countryCode != "" {
		endpoint += "&countrycodes=" + url.QueryEscape(c.countryCode)
	}
	cacheKey := fmt.Sprintf("geocode:search:%s:%d", query, limit)

	var raws []wireResult
	if c.readCache(ctx, cacheKey, &raws) {
		metrics.IncGeocode("hit")
		return toResults(raws)
	}

	if err := c.doGet(ctx, endpoint, &raws); err != nil {
		metrics.IncGeocode("error")
		return nil, err
	}
	metrics.IncGeocode("miss")
	c.writeCache(ctx, cacheKey, raws)
	return toResults(raws)
}

func toResult(raw *wireResult) (*models.GeocodeResult, error) {
	lat, err := strconv.ParseFloat(raw.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse latitude %q: %w", raw.Lat, err)
	}
	lon, err := strconv.ParseFloat(raw.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse longitude %q: %w", raw.Lon, err)
	}
	return &models.GeocodeResult{
		DisplayName: raw.DisplayName,
		Latitude:    lat,
		Longitude:   lon,
		Address:     raw.Address,
	}, nil
}

func toResults(raws []wireResult) ([]*models.GeocodeResult, error) {
	results := make([]*models.GeocodeResult, 0, len(raws))
	for i := range raws {
		result, err := toResult(&raws[i])
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}

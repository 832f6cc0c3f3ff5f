package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	resty "github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"iaros/itinerary_core/internal/config"
)

// OpenWeatherMap condition code ranges.
var (
	rainCodeMin, rainCodeMax       = 500, 531
	stormCodeMin, stormCodeMax     = 200, 232
	snowCodeMin, snowCodeMax       = 600, 622
	drizzleCodeMin, drizzleCodeMax = 300, 321
)

// outdoorCategories are the activity categories weather-gates.
var outdoorCategories = map[string]struct{}{
	"outdoors": {},
	"active":   {},
}

const defaultConditionCode = 800 // clear sky

// Summary is the compact weather snapshot downstream components use.
type Summary struct {
	Condition   string  `json:"condition"`
	Code        int     `json:"code"`
	TempC       float64 `json:"temp_c"`
	Description string  `json:"description"`
}

// Context is the JSON shape persisted to BehavioralSignal.WeatherContext.
type Context struct {
	Condition   string  `json:"condition"`
	Code        int     `json:"code"`
	TempC       float64 `json:"temp_c"`
	OutdoorRisk bool    `json:"outdoor_risk"`
}

// Service fetches current weather from OpenWeatherMap behind a
// circuit breaker, using Cache to keep calls within the provider's free
// tier (one call per city per hour, shared across all in-flight trips).
type Service struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
	cache   *Cache
	apiKey  string
	logger  *zap.Logger
}

func NewService(cfg config.Weather, cache *Cache, logger *zap.Logger) *Service {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Service{client: client, breaker: breaker, cache: cache, apiKey: cfg.APIKey, logger: logger}
}

// GetWeather fetches current weather for a city, preferring the cache.
// Returns nil if the API is unreachable, disabled, or the circuit is
// open — callers must handle a nil summary gracefully.
func (s *Service) GetWeather(ctx context.Context, city string) *Summary {
	if cached := s.cache.Get(ctx, city); cached != nil {
		return parseCondition(cached)
	}

	if s.apiKey == "" {
		s.logger.Warn("weather API key not configured, skipping fetch", zap.String("city", city))
		return nil
	}

	raw, err := s.fetch(ctx, city)
	if err != nil {
		s.logger.Warn("weather fetch failed", zap.String("city", city), zap.Error(err))
		return nil
	}

	s.cache.Set(ctx, city, raw)
	return parseCondition(raw)
}

func (s *Service) fetch(ctx context.Context, city string) (map[string]any, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		resp, err := s.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{"q": city, "appid": s.apiKey}).
			Get("/weather")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("openweathermap returned %d: %s", resp.StatusCode(), resp.String())
		}

		var payload map[string]any
		if err := json.Unmarshal(resp.Body(), &payload); err != nil {
			return nil, err
		}
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]any), nil
}

func parseCondition(payload map[string]any) *Summary {
	code := defaultConditionCode
	main := "Clear"
	description := "clear sky"

	if weatherList, ok := payload["weather"].([]any); ok && len(weatherList) > 0 {
		if primary, ok := weatherList[0].(map[string]any); ok {
			if id, ok := primary["id"].(float64); ok {
				code = int(id)
			}
			if m, ok := primary["main"].(string); ok {
				main = m
			}
			if d, ok := primary["description"].(string); ok {
				description = d
			}
		}
	}

	tempKelvin := 293.0
	if mainBlock, ok := payload["main"].(map[string]any); ok {
		if t, ok := mainBlock["temp"].(float64); ok {
			tempKelvin = t
		}
	}

	return &Summary{
		Condition:   lower(main),
		Code:        code,
		TempC:       kelvinToCelsius(tempKelvin),
		Description: description,
	}
}

func kelvinToCelsius(k float64) float64 {
	return math.Round((k-273.15)*10) / 10
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// IsOutdoorSlot reports whether a slot category is weather-sensitive.
func IsOutdoorSlot(category string) bool {
	_, ok := outdoorCategories[lower(category)]
	return ok
}

func isBadWeatherCode(code int) bool {
	return (code >= rainCodeMin && code <= rainCodeMax) ||
		(code >= stormCodeMin && code <= stormCodeMax) ||
		(code >= drizzleCodeMin && code <= drizzleCodeMax)
}

// BuildWeatherContext builds the JSON persisted to
// BehavioralSignal.WeatherContext. Returns nil if summary is nil.
func BuildWeatherContext(summary *Summary, slotCategory string) *Context {
	if summary == nil {
		return nil
	}
	return &Context{
		Condition:   summary.Condition,
		Code:        summary.Code,
		TempC:       summary.TempC,
		OutdoorRisk: IsOutdoorSlot(slotCategory) && isBadWeatherCode(summary.Code),
	}
}

// ShouldTriggerWeatherPivot reports whether an outdoor slot's weather
// warrants a pivot suggestion: the slot category must be weather-
// sensitive AND the current condition code must be rain, drizzle, or
// storm. Snow codes are tracked on Summary but do not trigger a pivot
// here — snow-risk handling is destination-specific and left to the
// caller (e.g. ski-trip contexts treat it as the expected condition).
func ShouldTriggerWeatherPivot(summary *Summary, slotCategory string) bool {
	if summary == nil || !IsOutdoorSlot(slotCategory) {
		return false
	}
	return isBadWeatherCode(summary.Code)
}

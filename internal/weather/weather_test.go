package weather

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	require.Equal(t, "new-york", slugify("New York"))
	require.Equal(t, "sao-paulo", slugify("São Paulo"))
	require.Equal(t, "unknown", slugify("!!!"))
}

func TestKelvinToCelsius(t *testing.T) {
	require.InDelta(t, 18.2, kelvinToCelsius(291.35), 0.05)
}

func TestParseCondition(t *testing.T) {
	payload := map[string]any{
		"weather": []any{
			map[string]any{"id": float64(501), "main": "Rain", "description": "moderate rain"},
		},
		"main": map[string]any{"temp": 291.35},
	}
	summary := parseCondition(payload)
	require.Equal(t, "rain", summary.Condition)
	require.Equal(t, 501, summary.Code)
	require.InDelta(t, 18.2, summary.TempC, 0.05)
}

func TestParseCondition_DefaultsWhenMissing(t *testing.T) {
	summary := parseCondition(map[string]any{})
	require.Equal(t, "clear", summary.Condition)
	require.Equal(t, defaultConditionCode, summary.Code)
}

func TestIsOutdoorSlot(t *testing.T) {
	require.True(t, IsOutdoorSlot("outdoors"))
	require.True(t, IsOutdoorSlot("Active"))
	require.False(t, IsOutdoorSlot("dining"))
}

func TestBuildWeatherContext_OutdoorRiskOnRain(t *testing.T) {
	summary := &Summary{Condition: "rain", Code: 501, TempC: 18.2}
	ctx := BuildWeatherContext(summary, "outdoors")
	require.True(t, ctx.OutdoorRisk)
}

func TestBuildWeatherContext_NoRiskIndoors(t *testing.T) {
	summary := &Summary{Condition: "rain", Code: 501, TempC: 18.2}
	ctx := BuildWeatherContext(summary, "dining")
	require.False(t, ctx.OutdoorRisk)
}

func TestBuildWeatherContext_NilSummary(t *testing.T) {
	require.Nil(t, BuildWeatherContext(nil, "outdoors"))
}

func TestShouldTriggerWeatherPivot(t *testing.T) {
	rain := &Summary{Code: 501}
	clear := &Summary{Code: 800}
	require.True(t, ShouldTriggerWeatherPivot(rain, "outdoors"))
	require.False(t, ShouldTriggerWeatherPivot(clear, "outdoors"))
	require.False(t, ShouldTriggerWeatherPivot(rain, "dining"))
	require.False(t, ShouldTriggerWeatherPivot(nil, "outdoors"))
}

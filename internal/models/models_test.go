package models

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskLevel_Text(t *testing.T) {
	for _, level := range []RiskLevel{RiskLow, RiskMedium, RiskHigh} {
		parsed, err := ParseRiskLevel(level.String())
		require.NoError(t, err)
		assert.Equal(t, level, parsed)
	}

	_, err := ParseRiskLevel("extreme")
	assert.Error(t, err)

	_, err = RiskLevel(0).MarshalText()
	assert.Error(t, err)

	payload, err := json.Marshal(struct {
		Level RiskLevel `json:"level"`
	}{RiskHigh})
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"high"}`, string(payload))
}

func TestRiskLevel_Ordering(t *testing.T) {
	assert.Less(t, RiskLow, RiskMedium)
	assert.Less(t, RiskMedium, RiskHigh)
	assert.Equal(t, RiskLow, RiskHigh.Clamp(RiskLow, RiskLow))
	assert.Equal(t, RiskMedium, RiskLow.Clamp(RiskMedium, RiskHigh))
}

func TestIncidentCategory_Tolerance(t *testing.T) {
	defaults := Tolerance{SpatialMeters: 25, DateDays: 7, TimeMinutes: 300}

	plain := &IncidentCategory{ID: 1}
	assert.Equal(t, defaults, plain.Tolerance(defaults))

	spatial := 50.0
	days := 1
	custom := &IncidentCategory{ID: 2, SpatialToleranceMeters: &spatial, DateToleranceDays: &days}
	assert.Equal(t, Tolerance{SpatialMeters: 50, DateDays: 1, TimeMinutes: 300}, custom.Tolerance(defaults))
}

func TestIncidentCategory_DefaultRiskLevel(t *testing.T) {
	tests := []struct {
		name     string
		min, max RiskLevel
		want     RiskLevel
	}{
		{name: "full range", min: RiskLow, max: RiskHigh, want: RiskMedium},
		{name: "high only", min: RiskHigh, max: RiskHigh, want: RiskHigh},
		{name: "low only", min: RiskLow, max: RiskLow, want: RiskLow},
		{name: "unset", want: RiskMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &IncidentCategory{MinRiskLevel: tt.min, MaxRiskLevel: tt.max}
			assert.Equal(t, tt.want, c.DefaultRiskLevel())
		})
	}
}

func TestRoute_Path(t *testing.T) {
	route := &Route{Legs: []RouteLeg{
		{EdgeID: 1, Geometry: orb.LineString{{0, 0}, {1, 0}}},
		{EdgeID: 2, Geometry: orb.LineString{{1, 0}, {1, 1}, {2, 1}}},
	}}
	assert.Equal(t, orb.LineString{{0, 0}, {1, 0}, {1, 1}, {2, 1}}, route.Path())
	assert.Nil(t, (&Route{}).Path())
}

package service

import (
	"testing"

	"github.com/shenikar/geo_incident_system/internal/interval"
	"github.com/shenikar/geo_incident_system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIncidentFromReport(t *testing.T) {
	sub := testSubmission(t, 55.0, 37.0, baseDate, "14:05")
	category := &models.IncidentCategory{ID: 1, MinRiskLevel: models.RiskHigh, MaxRiskLevel: models.RiskHigh}

	inc := NewIncidentFromReport(sub, category, 10)

	assert.Equal(t, int64(1), inc.CategoryID)
	assert.Equal(t, models.RiskHigh, inc.RiskLevel)
	assert.True(t, inc.IsActive())
	assert.Equal(t, 10, inc.RadiusMeters)
	assert.Equal(t, interval.PointRange(baseDate), inc.Dates)
	assert.Equal(t, interval.PointWindow(sub.Time), inc.Times)
	assert.Equal(t, sub.Point(), inc.Centroid())
}

func TestExtendBoundary_WindowWrapsMidnight(t *testing.T) {
	inc := testActiveIncident(t, 55.0, 37.0, 10, "22:00", "22:00")
	sub := testSubmission(t, 55.0, 37.0, baseDate, "02:00")

	grown, changed := ExtendBoundary(inc, sub)

	require.True(t, changed)
	assert.Equal(t, minute(t, "22:00"), grown.Times.Start)
	assert.Equal(t, minute(t, "02:00"), grown.Times.End)
	assert.True(t, grown.Times.CrossesMidnight())
	// исходный инцидент не изменяется
	assert.Equal(t, minute(t, "22:00"), inc.Times.End)
}

func TestExtendBoundary_GrowsRadiusAndDates(t *testing.T) {
	inc := testActiveIncident(t, 55.0, 37.0, 10, "08:00", "09:00")
	// ~33 м от центра, на 3 дня позже
	sub := testSubmission(t, 55.0003, 37.0, baseDate.AddDays(3), "08:30")

	grown, changed := ExtendBoundary(inc, sub)

	require.True(t, changed)
	assert.Equal(t, 34, grown.RadiusMeters)
	assert.Equal(t, baseDate, grown.Dates.Start)
	assert.Equal(t, baseDate.AddDays(3), grown.Dates.End)
	assert.Equal(t, inc.Times, grown.Times)
	assert.Equal(t, inc.Centroid(), grown.Centroid())
}

func TestExtendBoundary_RadiusNeverShrinks(t *testing.T) {
	inc := testActiveIncident(t, 55.0, 37.0, 500, "08:00", "09:00")
	sub := testSubmission(t, 55.0001, 37.0, baseDate, "08:30")

	grown, changed := ExtendBoundary(inc, sub)

	assert.False(t, changed)
	assert.Equal(t, 500, grown.RadiusMeters)
}

func TestExtendBoundary_Idempotent(t *testing.T) {
	inc := testActiveIncident(t, 55.0, 37.0, 10, "08:00", "09:00")
	sub := testSubmission(t, 55.0005, 37.0005, baseDate.AddDays(-1), "23:10")

	once, changed := ExtendBoundary(inc, sub)
	require.True(t, changed)
	twice, changedAgain := ExtendBoundary(once, sub)

	assert.False(t, changedAgain)
	assert.Equal(t, once, twice)
}

func TestExtendBoundary_CoversReport(t *testing.T) {
	inc := testActiveIncident(t, 55.0, 37.0, 10, "08:00", "09:00")
	for _, at := range []string{"00:00", "05:59", "12:00", "20:30", "23:59"} {
		sub := testSubmission(t, 55.0002, 36.9998, baseDate.AddDays(-4), at)

		grown, _ := ExtendBoundary(inc, sub)

		_, ok := incidentAccepts(grown, sub, noTol)
		assert.True(t, ok, "extended incident must accept report at %s", at)
	}
}

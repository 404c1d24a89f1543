package service

import (
	"math"

	"github.com/google/uuid"
	"github.com/shenikar/geo_incident_system/internal/geo"
	"github.com/shenikar/geo_incident_system/internal/interval"
	"github.com/shenikar/geo_incident_system/internal/models"
)

// NewIncidentFromReport создает инцидент, границы которого совпадают с точкой,
// датой и временем отчета
func NewIncidentFromReport(sub *models.ReportSubmission, category *models.IncidentCategory, radiusMeters int) *models.Incident {
	return &models.Incident{
		ID:           uuid.New(),
		CategoryID:   category.ID,
		RiskLevel:    category.DefaultRiskLevel(),
		Status:       models.StatusActive,
		Latitude:     sub.Latitude,
		Longitude:    sub.Longitude,
		RadiusMeters: radiusMeters,
		Dates:        interval.PointRange(sub.Date),
		Times:        interval.PointWindow(sub.Time),
	}
}

// ExtendBoundary возвращает копию инцидента, расширенную так, чтобы покрыть отчет:
// диапазон дат, окно времени (с переходом через полночь) и радиус.
// Центр не меняется, радиус не уменьшается.
func ExtendBoundary(inc *models.Incident, sub *models.ReportSubmission) (*models.Incident, bool) {
	grown := *inc

	grown.Dates = inc.Dates.Extend(sub.Date)
	grown.Times = inc.Times.Extend(sub.Time)

	distance := geo.Distance(inc.Centroid(), sub.Point())
	if distance > float64(inc.RadiusMeters) {
		grown.RadiusMeters = int(math.Ceil(distance))
	}

	changed := grown.Dates != inc.Dates || grown.Times != inc.Times || grown.RadiusMeters != inc.RadiusMeters
	return &grown, changed
}

func newReport(sub *models.ReportSubmission) *models.Report {
	return &models.Report{
		ID:          uuid.New(),
		UserEmail:   sub.UserEmail,
		Description: sub.Description,
		Latitude:    sub.Latitude,
		Longitude:   sub.Longitude,
		Date:        sub.Date,
		Time:        sub.Time,
		IsAnonymous: sub.IsAnonymous,
	}
}

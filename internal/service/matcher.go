package service

import (
	"github.com/shenikar/geo_incident_system/internal/geo"
	"github.com/shenikar/geo_incident_system/internal/models"
)

// Match - инцидент, подходящий для отчета, и расстояние от его центра до отчета
type Match struct {
	Incident *models.Incident
	Distance float64
}

// MatchIncident выбирает среди кандидатов инцидент той же категории, в чьи
// пространственные и временные границы с допусками попадает отчет.
// Из подходящих берется ближайший, при равенстве - созданный раньше.
func MatchIncident(candidates []*models.Incident, sub *models.ReportSubmission, tol models.Tolerance) *Match {
	var best *Match
	for _, inc := range candidates {
		distance, ok := incidentAccepts(inc, sub, tol)
		if !ok {
			continue
		}
		if best == nil || closer(inc, distance, best) {
			best = &Match{Incident: inc, Distance: distance}
		}
	}
	return best
}

func incidentAccepts(inc *models.Incident, sub *models.ReportSubmission, tol models.Tolerance) (float64, bool) {
	if inc == nil || !inc.IsActive() || inc.CategoryID != sub.CategoryID {
		return 0, false
	}
	distance := geo.Distance(inc.Centroid(), sub.Point())
	if distance > float64(inc.RadiusMeters)+tol.SpatialMeters {
		return 0, false
	}
	if !inc.Dates.ContainsWithin(sub.Date, tol.DateDays) {
		return 0, false
	}
	if !inc.Times.ContainsWithin(sub.Time, tol.TimeMinutes) {
		return 0, false
	}
	return distance, true
}

func closer(inc *models.Incident, distance float64, best *Match) bool {
	if distance != best.Distance {
		return distance < best.Distance
	}
	if !inc.CreatedAt.Equal(best.Incident.CreatedAt) {
		return inc.CreatedAt.Before(best.Incident.CreatedAt)
	}
	return inc.ID.String() < best.Incident.ID.String()
}

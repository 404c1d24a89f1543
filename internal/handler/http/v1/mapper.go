package v1

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/shenikar/geo_incident_system/internal/interval"
	"github.com/shenikar/geo_incident_system/internal/models"
)

// DTOToReportSubmission разбирает дату и время отчета и собирает доменную модель
func DTOToReportSubmission(dto SubmitReportRequest) (*models.ReportSubmission, error) {
	date, err := civil.ParseDate(dto.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", dto.Date, err)
	}
	at, err := interval.ParseMinute(dto.Time)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q: %w", dto.Time, err)
	}
	return &models.ReportSubmission{
		CategoryID:  dto.CategoryID,
		Description: dto.Description,
		Latitude:    dto.Latitude,
		Longitude:   dto.Longitude,
		Date:        date,
		Time:        at,
		UserEmail:   dto.UserEmail,
		IsAnonymous: dto.IsAnonymous,
	}, nil
}

func (p *PointRequest) Point() orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:           model.ID,
		CategoryID:   model.CategoryID,
		RiskLevel:    model.RiskLevel.String(),
		Status:       model.Status,
		Latitude:     model.Latitude,
		Longitude:    model.Longitude,
		RadiusMeters: model.RadiusMeters,
		DateStart:    model.Dates.Start.String(),
		DateEnd:      model.Dates.End.String(),
		TimeStart:    model.Times.Start.String(),
		TimeEnd:      model.Times.End.String(),
		Version:      model.Version,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

func ModelToReportResponse(result *models.AttachResult) *ReportResponse {
	return &ReportResponse{
		ReportID: result.Report.ID,
		Created:  result.Created,
		Extended: result.Extended,
		Incident: ModelToIncidentResponse(result.Incident),
	}
}

// RouteToFeatureCollection отдает маршрут как GeoJSON: по одной линии на ребро
// в порядке движения, итоговые стоимости - в членах коллекции
func RouteToFeatureCollection(route *models.Route) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, leg := range route.Legs {
		f := geojson.NewFeature(leg.Geometry)
		f.ID = leg.EdgeID
		f.Properties["seq"] = i
		f.Properties["edge_id"] = leg.EdgeID
		f.Properties["reverse"] = leg.Reverse
		f.Properties["base_cost"] = leg.BaseCost
		f.Properties["cost"] = leg.Cost
		if leg.Risk != nil {
			f.Properties["risk"] = leg.Risk.String()
		}
		fc.Append(f)
	}
	fc.ExtraMembers = geojson.Properties{
		"start_node_id": route.StartNodeID,
		"end_node_id":   route.EndNodeID,
		"base_cost":     route.BaseCost,
		"cost":          route.Cost,
	}
	return fc
}

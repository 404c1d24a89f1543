package v1

import (
	"time"

	"github.com/google/uuid"
)

// SubmitReportRequest DTO для отправки отчета об инциденте
// @Description DTO для отправки отчета об инциденте
type SubmitReportRequest struct {
	CategoryID  int64   `json:"category_id" validate:"required,gt=0"`
	Description string  `json:"description,omitempty" validate:"max=2000"`
	Latitude    float64 `json:"latitude" validate:"latitude"`
	Longitude   float64 `json:"longitude" validate:"longitude"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02" example:"2026-05-04"`
	Time        string  `json:"time" validate:"required,datetime=15:04" example:"22:30"`
	UserEmail   string  `json:"user_email" validate:"required,email"`
	IsAnonymous bool    `json:"is_anonymous"`
}

// ReportResponse DTO для ответа на отправку отчета
// @Description DTO для ответа на отправку отчета
type ReportResponse struct {
	ReportID uuid.UUID         `json:"report_id"`
	Created  bool              `json:"created"`
	Extended bool              `json:"extended"`
	Incident *IncidentResponse `json:"incident"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID           uuid.UUID `json:"id"`
	CategoryID   int64     `json:"category_id"`
	RiskLevel    string    `json:"risk_level"`
	Status       string    `json:"status"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	RadiusMeters int       `json:"radius_meters"`
	DateStart    string    `json:"date_start" example:"2026-05-04"`
	DateEnd      string    `json:"date_end" example:"2026-05-06"`
	TimeStart    string    `json:"time_start" example:"22:00"`
	TimeEnd      string    `json:"time_end" example:"02:00"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PointRequest - точка WGS84
type PointRequest struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// SafeRouteRequest DTO для построения безопасного маршрута
// @Description DTO для построения безопасного маршрута
type SafeRouteRequest struct {
	Start *PointRequest `json:"start" validate:"required"`
	End   *PointRequest `json:"end" validate:"required"`
}

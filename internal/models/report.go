package models

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/shenikar/geo_incident_system/internal/interval"
)

// Report - отчет пользователя. Создается один раз и не изменяется.
type Report struct {
	ID          uuid.UUID       `json:"id"`
	IncidentID  uuid.UUID       `json:"incident_id"`
	UserEmail   string          `json:"user_email"`
	Description string          `json:"description"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	Date        civil.Date      `json:"date"`
	Time        interval.Minute `json:"time"`
	IsAnonymous bool            `json:"is_anonymous"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ReportSubmission - проверенные входные данные нового отчета
type ReportSubmission struct {
	CategoryID  int64
	Description string
	Latitude    float64
	Longitude   float64
	Date        civil.Date
	Time        interval.Minute
	UserEmail   string
	IsAnonymous bool
}

func (s *ReportSubmission) Point() orb.Point {
	return orb.Point{s.Longitude, s.Latitude}
}

// AttachResult - результат привязки отчета к инциденту
type AttachResult struct {
	Incident *Incident
	Report   *Report
	// Created - инцидент создан этим отчетом
	Created bool
	// Extended - границы существующего инцидента расширены
	Extended bool
}

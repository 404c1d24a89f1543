package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/shenikar/geo_incident_system/internal/interval"
)

const (
	StatusActive   = "active"
	StatusResolved = "resolved"
)

// Incident - пространственно-временной кластер отчетов об одном событии.
// Центр фиксируется по первому отчету; радиус и окна только растут.
type Incident struct {
	ID           uuid.UUID           `json:"id"`
	CategoryID   int64               `json:"category_id"`
	RiskLevel    RiskLevel           `json:"risk_level"`
	Status       string              `json:"status"`
	Latitude     float64             `json:"latitude"`
	Longitude    float64             `json:"longitude"`
	RadiusMeters int                 `json:"radius_meters"`
	Dates        interval.DateRange  `json:"dates"`
	Times        interval.TimeWindow `json:"times"`
	Version      int64               `json:"version"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// Centroid возвращает центр инцидента в координатах orb (lon, lat)
func (i *Incident) Centroid() orb.Point {
	return orb.Point{i.Longitude, i.Latitude}
}

func (i *Incident) IsActive() bool {
	return i.Status == StatusActive
}

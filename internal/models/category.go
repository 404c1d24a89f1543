package models

// Tolerance - допуски, добавляемые к границам инцидента при сопоставлении отчета
type Tolerance struct {
	SpatialMeters float64 `json:"spatial_meters"`
	DateDays      int     `json:"date_days"`
	TimeMinutes   int     `json:"time_minutes"`
}

// IncidentCategory - категория инцидента. Nil-допуск означает значение по умолчанию.
type IncidentCategory struct {
	ID                     int64     `json:"id"`
	Name                   string    `json:"name"`
	MinRiskLevel           RiskLevel `json:"min_risk_level"`
	MaxRiskLevel           RiskLevel `json:"max_risk_level"`
	SpatialToleranceMeters *float64  `json:"spatial_tolerance_meters,omitempty"`
	DateToleranceDays      *int      `json:"date_tolerance_days,omitempty"`
	TimeToleranceMinutes   *int      `json:"time_tolerance_minutes,omitempty"`
}

// Tolerance накладывает допуски категории поверх значений по умолчанию
func (c *IncidentCategory) Tolerance(defaults Tolerance) Tolerance {
	tol := defaults
	if c.SpatialToleranceMeters != nil {
		tol.SpatialMeters = *c.SpatialToleranceMeters
	}
	if c.DateToleranceDays != nil {
		tol.DateDays = *c.DateToleranceDays
	}
	if c.TimeToleranceMinutes != nil {
		tol.TimeMinutes = *c.TimeToleranceMinutes
	}
	return tol
}

// DefaultRiskLevel - уровень риска нового инцидента: medium в пределах диапазона категории
func (c *IncidentCategory) DefaultRiskLevel() RiskLevel {
	lo, hi := c.MinRiskLevel, c.MaxRiskLevel
	if !lo.Valid() {
		lo = RiskLow
	}
	if !hi.Valid() || hi < lo {
		hi = RiskHigh
	}
	return RiskMedium.Clamp(lo, hi)
}

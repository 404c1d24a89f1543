package routing

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/shenikar/geo_incident_system/internal/geo"
	"github.com/shenikar/geo_incident_system/internal/models"
)

// minCost - нижняя граница стоимости ребра, чтобы поиск оставался корректным
const minCost = 1e-6

// RiskPolicy отображает уровень риска в множитель стоимости ребра
type RiskPolicy interface {
	Multiplier(level models.RiskLevel) float64
}

// MultiplierPolicy - политика с фиксированными множителями по уровням
type MultiplierPolicy struct {
	Low    float64
	Medium float64
	High   float64
}

// DefaultRiskPolicy возвращает множители по умолчанию
func DefaultRiskPolicy() MultiplierPolicy {
	return MultiplierPolicy{Low: 1.25, Medium: 2.5, High: 6}
}

// NewMultiplierPolicy проверяет множители: все >= 1, medium и high > 1,
// монотонность low <= medium <= high
func NewMultiplierPolicy(low, medium, high float64) (MultiplierPolicy, error) {
	p := MultiplierPolicy{Low: low, Medium: medium, High: high}
	switch {
	case low < 1:
		return p, fmt.Errorf("low risk multiplier %.3f must be >= 1", low)
	case medium <= 1 || high <= 1:
		return p, fmt.Errorf("medium (%.3f) and high (%.3f) risk multipliers must be > 1", medium, high)
	case medium < low || high < medium:
		return p, fmt.Errorf("risk multipliers must be monotonic: low %.3f, medium %.3f, high %.3f", low, medium, high)
	}
	return p, nil
}

func (p MultiplierPolicy) Multiplier(level models.RiskLevel) float64 {
	switch level {
	case models.RiskLow:
		return p.Low
	case models.RiskMedium:
		return p.Medium
	case models.RiskHigh:
		return p.High
	}
	return 1
}

// CostAdjuster масштабирует базовую стоимость ребра по риску рядом с ним
type CostAdjuster struct {
	policy RiskPolicy
}

func NewCostAdjuster(policy RiskPolicy) *CostAdjuster {
	if policy == nil {
		policy = DefaultRiskPolicy()
	}
	return &CostAdjuster{policy: policy}
}

// AdjustedCost возвращает стоимость ребра с учетом риска. Без риска рядом
// стоимость равна базовой; множитель меньше 1 не применяется.
// Результат всегда > 0.
func (a *CostAdjuster) AdjustedCost(baseCost float64, nearby *models.RiskLevel) float64 {
	cost := baseCost
	if nearby != nil {
		cost = baseCost * math.Max(1, a.policy.Multiplier(*nearby))
	}
	if math.IsNaN(cost) || cost < minCost {
		return minCost
	}
	return cost
}

// RiskSource сообщает наибольший уровень риска активных инцидентов у ребра
type RiskSource interface {
	RiskNear(edge *models.RoadEdge) (models.RiskLevel, bool)
}

type riskZone struct {
	center orb.Point
	radius float64
	level  models.RiskLevel
	bound  orb.Bound
}

// IncidentRiskIndex - снимок активных инцидентов на время одного запроса.
// Не предназначен для параллельного использования.
type IncidentRiskIndex struct {
	proximity float64
	zones     []riskZone
	memo      map[int64]models.RiskLevel
}

// NewIncidentRiskIndex строит индекс; инцидент считается рядом с ребром,
// если расстояние от ребра до его круга не превышает proximity метров
func NewIncidentRiskIndex(incidents []*models.Incident, proximity float64) *IncidentRiskIndex {
	idx := &IncidentRiskIndex{
		proximity: proximity,
		memo:      make(map[int64]models.RiskLevel),
	}
	for _, inc := range incidents {
		if inc == nil || !inc.IsActive() || !inc.RiskLevel.Valid() {
			continue
		}
		radius := float64(inc.RadiusMeters)
		idx.zones = append(idx.zones, riskZone{
			center: inc.Centroid(),
			radius: radius,
			level:  inc.RiskLevel,
			bound:  geo.BoundAround(inc.Centroid(), radius+proximity),
		})
	}
	return idx
}

// Len возвращает число учитываемых инцидентов
func (idx *IncidentRiskIndex) Len() int {
	return len(idx.zones)
}

func (idx *IncidentRiskIndex) RiskNear(edge *models.RoadEdge) (models.RiskLevel, bool) {
	if level, ok := idx.memo[edge.ID]; ok {
		return level, level != 0
	}

	var worst models.RiskLevel
	edgeBound := edge.Geometry.Bound()
	for _, z := range idx.zones {
		if z.level <= worst || !z.bound.Intersects(edgeBound) {
			continue
		}
		if geo.DistanceToLine(z.center, edge.Geometry)-z.radius <= idx.proximity {
			worst = z.level
		}
	}
	idx.memo[edge.ID] = worst
	return worst, worst != 0
}

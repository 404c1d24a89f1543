package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/shenikar/geo_incident_system/internal/config"
	"github.com/shenikar/geo_incident_system/internal/models"
	"github.com/shenikar/geo_incident_system/internal/routing"
	"github.com/sirupsen/logrus"
)

// RouteService определяет контракт построения безопасного маршрута
type RouteService interface {
	PlanSafeRoute(ctx context.Context, start, end orb.Point) (*models.Route, error)
}

type routeService struct {
	repo    IncidentRepository
	planner *routing.Planner
	logger  *logrus.Logger
	cfg     *config.Config
}

func NewRouteService(repo IncidentRepository, planner *routing.Planner, logger *logrus.Logger, cfg *config.Config) RouteService {
	return &routeService{
		repo:    repo,
		planner: planner,
		logger:  logger,
		cfg:     cfg,
	}
}

// PlanSafeRoute строит маршрут по снимку активных инцидентов на момент запроса.
// Граф общий и не меняется, индекс риска создается на каждый запрос.
func (s *routeService) PlanSafeRoute(ctx context.Context, start, end orb.Point) (*models.Route, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "route",
		"method":  "PlanSafeRoute",
		"start":   start,
		"end":     end,
	})
	log.Info("Planning safe route")

	incidents, err := s.repo.FindActiveNear(ctx, s.planner.Graph().Bound(), s.cfg.RiskProximityMeters)
	if err != nil {
		log.WithError(err).Error("Failed to load active incidents")
		return nil, fmt.Errorf("service: could not load incidents for routing: %w", err)
	}
	index := routing.NewIncidentRiskIndex(incidents, s.cfg.RiskProximityMeters)
	log = log.WithField("incidents", index.Len())

	route, err := s.planner.Plan(ctx, start, end, index)
	if err != nil {
		if errors.Is(err, models.ErrRouteNotFound) {
			log.WithError(err).Info("No route between requested points")
		} else {
			log.WithError(err).Error("Route planning failed")
		}
		return nil, fmt.Errorf("service: could not plan route: %w", err)
	}

	log.WithFields(logrus.Fields{
		"legs": len(route.Legs),
		"cost": route.Cost,
	}).Info("Route planned successfully")
	return route, nil
}

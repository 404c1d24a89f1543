package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/shenikar/geo_incident_system/internal/models"
	"github.com/shenikar/geo_incident_system/internal/routing"
	"github.com/shenikar/geo_incident_system/internal/service"
	"github.com/shenikar/geo_incident_system/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// треугольник: прямое ребро 1-2 и объезд через узел 3
func newTestRouteService(t *testing.T) (service.RouteService, *mocks.MockIncidentRepository) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockIncidentRepository(ctrl)

	nodes := []models.RoadNode{
		{ID: 1, Location: orb.Point{30.0, 60.0}},
		{ID: 2, Location: orb.Point{30.002, 60.0}},
		{ID: 3, Location: orb.Point{30.001, 60.001}},
	}
	edge := func(id int64, a, b models.RoadNode) models.RoadEdge {
		return models.RoadEdge{ID: id, SourceNodeID: a.ID, TargetNodeID: b.ID, BaseCost: 100}
	}
	graph, err := routing.NewGraph(nodes, []models.RoadEdge{
		edge(12, nodes[0], nodes[1]),
		edge(13, nodes[0], nodes[2]),
		edge(32, nodes[2], nodes[1]),
	})
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	planner := routing.NewPlanner(graph, routing.NewCostAdjuster(routing.DefaultRiskPolicy()), 0)
	return service.NewRouteService(repoMock, planner, logger, testConfig()), repoMock
}

func routeEdges(route *models.Route) []int64 {
	ids := make([]int64, 0, len(route.Legs))
	for _, leg := range route.Legs {
		ids = append(ids, leg.EdgeID)
	}
	return ids
}

func TestPlanSafeRoute_NoIncidents(t *testing.T) {
	// Подготовка
	svc, repoMock := newTestRouteService(t)
	ctx := context.Background()

	// Ожидания
	repoMock.EXPECT().FindActiveNear(ctx, gomock.Any(), 10.0).Return(nil, nil)

	// Действие
	route, err := svc.PlanSafeRoute(ctx, orb.Point{30.0, 60.0}, orb.Point{30.002, 60.0})

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, []int64{12}, routeEdges(route))
	assert.InDelta(t, 100.0, route.Cost, 1e-9)
}

func TestPlanSafeRoute_AvoidsHighRisk(t *testing.T) {
	svc, repoMock := newTestRouteService(t)
	ctx := context.Background()
	hazard := &models.Incident{
		ID:           uuid.New(),
		RiskLevel:    models.RiskHigh,
		Status:       models.StatusActive,
		Latitude:     60.0,
		Longitude:    30.001,
		RadiusMeters: 5,
	}

	repoMock.EXPECT().FindActiveNear(ctx, gomock.Any(), 10.0).Return([]*models.Incident{hazard}, nil)

	route, err := svc.PlanSafeRoute(ctx, orb.Point{30.0, 60.0}, orb.Point{30.002, 60.0})

	require.NoError(t, err)
	assert.Equal(t, []int64{13, 32}, routeEdges(route))
	assert.InDelta(t, 200.0, route.BaseCost, 1e-9)
}

func TestPlanSafeRoute_SameNode(t *testing.T) {
	svc, repoMock := newTestRouteService(t)
	ctx := context.Background()

	repoMock.EXPECT().FindActiveNear(ctx, gomock.Any(), 10.0).Return(nil, nil)

	_, err := svc.PlanSafeRoute(ctx, orb.Point{30.0, 60.0}, orb.Point{30.00001, 60.0})

	assert.ErrorIs(t, err, models.ErrRouteNotFound)
}

func TestPlanSafeRoute_RepositoryError(t *testing.T) {
	svc, repoMock := newTestRouteService(t)
	ctx := context.Background()

	repoMock.EXPECT().FindActiveNear(ctx, gomock.Any(), 10.0).Return(nil, errors.New("connection refused"))

	route, err := svc.PlanSafeRoute(ctx, orb.Point{30.0, 60.0}, orb.Point{30.002, 60.0})

	assert.Nil(t, route)
	assert.ErrorContains(t, err, "connection refused")
}

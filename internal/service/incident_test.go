package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shenikar/geo_incident_system/internal/config"
	"github.com/shenikar/geo_incident_system/internal/interval"
	"github.com/shenikar/geo_incident_system/internal/models"
	"github.com/shenikar/geo_incident_system/internal/service"
	"github.com/shenikar/geo_incident_system/internal/service/mocks"
	"github.com/shenikar/geo_incident_system/internal/webhook"
	webhook_mocks "github.com/shenikar/geo_incident_system/internal/webhook/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var reportDate = civil.Date{Year: 2026, Month: time.May, Day: 4}

type incidentDeps struct {
	repo      *mocks.MockIncidentRepository
	tx        *mocks.MockIncidentTx
	guard     *mocks.MockCreationGuard
	publisher *webhook_mocks.MockWebhookPublisher
}

func testConfig() *config.Config {
	return &config.Config{
		MatchSpatialToleranceMeters: 25,
		MatchDateToleranceDays:      7,
		MatchTimeToleranceMinutes:   300,
		IncidentDefaultRadiusMeters: 10,
		AttachMaxRetries:            3,
		RiskProximityMeters:         10,
	}
}

// newTestIncidentService создает сервис с моками; WithinTx выполняет колбэк на моке транзакции
func newTestIncidentService(t *testing.T) (service.IncidentService, incidentDeps) {
	ctrl := gomock.NewController(t)
	deps := incidentDeps{
		repo:      mocks.NewMockIncidentRepository(ctrl),
		tx:        mocks.NewMockIncidentTx(ctrl),
		guard:     mocks.NewMockCreationGuard(ctrl),
		publisher: webhook_mocks.NewMockWebhookPublisher(ctrl),
	}

	deps.repo.EXPECT().
		WithinTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fn func(service.IncidentTx) error) error {
			return fn(deps.tx)
		}).
		AnyTimes()

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	svc := service.NewIncidentService(deps.repo, deps.guard, deps.publisher, logger, testConfig())
	return svc, deps
}

func expectGuard(deps incidentDeps) {
	deps.guard.EXPECT().Acquire(gomock.Any(), gomock.Any()).Return("token", nil).Times(1)
	deps.guard.EXPECT().Release(gomock.Any(), gomock.Any(), "token").Return(nil).Times(1)
}

func testCategory() *models.IncidentCategory {
	return &models.IncidentCategory{ID: 3, Name: "flooding", MinRiskLevel: models.RiskLow, MaxRiskLevel: models.RiskHigh}
}

func testSubmission(date civil.Date, at interval.Minute) *models.ReportSubmission {
	return &models.ReportSubmission{
		CategoryID:  3,
		Description: "вода на проезжей части",
		Latitude:    59.9386,
		Longitude:   30.3141,
		Date:        date,
		Time:        at,
		UserEmail:   "alice@example.com",
	}
}

func existingIncident(version int64) *models.Incident {
	return &models.Incident{
		ID:           uuid.New(),
		CategoryID:   3,
		RiskLevel:    models.RiskMedium,
		Status:       models.StatusActive,
		Latitude:     59.9386,
		Longitude:    30.3141,
		RadiusMeters: 10,
		Dates:        interval.PointRange(reportDate),
		Times:        interval.PointWindow(interval.Minute(600)),
		Version:      version,
	}
}

func TestSubmitReport_CreatesIncident(t *testing.T) {
	// Подготовка
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	sub := testSubmission(reportDate, interval.Minute(600))
	var published webhook.IncidentEvent

	// Ожидания
	expectGuard(deps)
	deps.tx.EXPECT().GetCategory(ctx, int64(3)).Return(testCategory(), nil)
	deps.tx.EXPECT().FindCandidates(ctx, int64(3), sub.Point(), 25.0).Return(nil, nil)
	deps.tx.EXPECT().CreateIncident(ctx, gomock.Any()).Return(nil)
	deps.tx.EXPECT().CreateReport(ctx, gomock.Any()).Return(nil)
	deps.publisher.EXPECT().
		Publish(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, event webhook.IncidentEvent) error {
			published = event
			return nil
		})

	// Действие
	result, err := svc.SubmitReport(ctx, sub)

	// Проверки
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, models.RiskMedium, result.Incident.RiskLevel)
	assert.Equal(t, 10, result.Incident.RadiusMeters)
	assert.Equal(t, result.Incident.ID, result.Report.IncidentID)
	assert.Equal(t, webhook.EventIncidentCreated, published.Type)
	assert.Equal(t, result.Report.ID, published.ReportID)
}

func TestSubmitReport_ExtendsExistingIncident(t *testing.T) {
	// Подготовка
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	inc := existingIncident(4)
	sub := testSubmission(reportDate.AddDays(2), interval.Minute(660))

	// Ожидания
	expectGuard(deps)
	deps.tx.EXPECT().GetCategory(ctx, int64(3)).Return(testCategory(), nil)
	deps.tx.EXPECT().FindCandidates(ctx, int64(3), sub.Point(), 25.0).Return([]*models.Incident{inc}, nil)
	deps.tx.EXPECT().HasReportOnDate(ctx, inc.ID, "alice@example.com", sub.Date).Return(false, nil)
	deps.tx.EXPECT().UpdateBoundary(ctx, gomock.Any(), int64(4)).
		DoAndReturn(func(_ context.Context, grown *models.Incident, _ int64) error {
			grown.Version = 5
			return nil
		})
	deps.tx.EXPECT().CreateReport(ctx, gomock.Any()).Return(nil)
	deps.repo.EXPECT().SetIncidentCache(ctx, gomock.Any()).
		Do(func(_ context.Context, cached *models.Incident) {
			assert.Equal(t, int64(5), cached.Version)
			assert.Equal(t, reportDate.AddDays(2), cached.Dates.End)
		}).
		Return(nil)
	deps.repo.EXPECT().InvalidateIncidentCache(gomock.Any(), gomock.Any()).Times(0)
	deps.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	// Действие
	result, err := svc.SubmitReport(ctx, sub)

	// Проверки
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.True(t, result.Extended)
	assert.Equal(t, inc.ID, result.Incident.ID)
	assert.Equal(t, reportDate.AddDays(2), result.Incident.Dates.End)
	assert.Equal(t, interval.Minute(660), result.Incident.Times.End)
}

func TestSubmitReport_InsideBoundarySkipsUpdate(t *testing.T) {
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	inc := existingIncident(1)
	sub := testSubmission(reportDate, interval.Minute(600))

	expectGuard(deps)
	deps.tx.EXPECT().GetCategory(ctx, int64(3)).Return(testCategory(), nil)
	deps.tx.EXPECT().FindCandidates(ctx, int64(3), sub.Point(), 25.0).Return([]*models.Incident{inc}, nil)
	deps.tx.EXPECT().HasReportOnDate(ctx, inc.ID, "alice@example.com", reportDate).Return(false, nil)
	deps.tx.EXPECT().UpdateBoundary(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	deps.tx.EXPECT().CreateReport(ctx, gomock.Any()).Return(nil)
	deps.repo.EXPECT().SetIncidentCache(gomock.Any(), gomock.Any()).Times(0)
	deps.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	result, err := svc.SubmitReport(ctx, sub)

	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.False(t, result.Extended)
}

func TestSubmitReport_DuplicateSameDay(t *testing.T) {
	// Подготовка
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	inc := existingIncident(1)
	sub := testSubmission(reportDate, interval.Minute(605))

	// Ожидания
	expectGuard(deps)
	deps.tx.EXPECT().GetCategory(ctx, int64(3)).Return(testCategory(), nil)
	deps.tx.EXPECT().FindCandidates(ctx, int64(3), sub.Point(), 25.0).Return([]*models.Incident{inc}, nil)
	deps.tx.EXPECT().HasReportOnDate(ctx, inc.ID, "alice@example.com", reportDate).Return(true, nil)
	deps.tx.EXPECT().CreateReport(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	result, err := svc.SubmitReport(ctx, sub)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrDuplicateReport)
}

func TestSubmitReport_SameUserNextDayAccepted(t *testing.T) {
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	inc := existingIncident(1)
	sub := testSubmission(reportDate.AddDays(1), interval.Minute(600))

	expectGuard(deps)
	deps.tx.EXPECT().GetCategory(ctx, int64(3)).Return(testCategory(), nil)
	deps.tx.EXPECT().FindCandidates(ctx, int64(3), sub.Point(), 25.0).Return([]*models.Incident{inc}, nil)
	deps.tx.EXPECT().HasReportOnDate(ctx, inc.ID, "alice@example.com", reportDate.AddDays(1)).Return(false, nil)
	deps.tx.EXPECT().UpdateBoundary(ctx, gomock.Any(), int64(1)).Return(nil)
	deps.tx.EXPECT().CreateReport(ctx, gomock.Any()).Return(nil)
	deps.repo.EXPECT().SetIncidentCache(ctx, gomock.Any()).Return(nil)
	deps.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	result, err := svc.SubmitReport(ctx, sub)

	require.NoError(t, err)
	assert.Equal(t, inc.ID, result.Incident.ID)
	assert.Equal(t, reportDate.AddDays(1), result.Incident.Dates.End)
}

func TestSubmitReport_RetriesOnConflict(t *testing.T) {
	// Подготовка
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	stale := existingIncident(4)
	fresh := *stale
	fresh.Version = 5
	sub := testSubmission(reportDate.AddDays(1), interval.Minute(600))

	// Ожидания
	// 1. Первая попытка: границы изменены параллельно
	// 2. Вторая попытка: свежая версия
	expectGuard(deps)
	deps.tx.EXPECT().GetCategory(ctx, int64(3)).Return(testCategory(), nil).Times(2)
	gomock.InOrder(
		deps.tx.EXPECT().FindCandidates(ctx, int64(3), sub.Point(), 25.0).Return([]*models.Incident{stale}, nil),
		deps.tx.EXPECT().FindCandidates(ctx, int64(3), sub.Point(), 25.0).Return([]*models.Incident{&fresh}, nil),
	)
	deps.tx.EXPECT().HasReportOnDate(ctx, stale.ID, "alice@example.com", sub.Date).Return(false, nil).Times(2)
	gomock.InOrder(
		deps.tx.EXPECT().UpdateBoundary(ctx, gomock.Any(), int64(4)).Return(models.ErrStorageConflict),
		deps.tx.EXPECT().UpdateBoundary(ctx, gomock.Any(), int64(5)).Return(nil),
	)
	deps.tx.EXPECT().CreateReport(ctx, gomock.Any()).Return(nil).Times(1)
	deps.repo.EXPECT().SetIncidentCache(ctx, gomock.Any()).Return(nil)
	deps.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	// Действие
	result, err := svc.SubmitReport(ctx, sub)

	// Проверки
	require.NoError(t, err)
	assert.True(t, result.Extended)
}

func TestSubmitReport_RetriesExhausted(t *testing.T) {
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	inc := existingIncident(4)
	sub := testSubmission(reportDate.AddDays(1), interval.Minute(600))

	expectGuard(deps)
	deps.tx.EXPECT().GetCategory(ctx, int64(3)).Return(testCategory(), nil).Times(3)
	deps.tx.EXPECT().FindCandidates(ctx, int64(3), sub.Point(), 25.0).Return([]*models.Incident{inc}, nil).Times(3)
	deps.tx.EXPECT().HasReportOnDate(ctx, inc.ID, gomock.Any(), gomock.Any()).Return(false, nil).Times(3)
	deps.tx.EXPECT().UpdateBoundary(ctx, gomock.Any(), int64(4)).Return(models.ErrStorageConflict).Times(3)

	_, err := svc.SubmitReport(ctx, sub)

	assert.ErrorIs(t, err, models.ErrStorageConflict)
}

func TestSubmitReport_CategoryOverridesTolerance(t *testing.T) {
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	spatial := 100.0
	category := testCategory()
	category.SpatialToleranceMeters = &spatial
	sub := testSubmission(reportDate, interval.Minute(600))

	expectGuard(deps)
	deps.tx.EXPECT().GetCategory(ctx, int64(3)).Return(category, nil)
	deps.tx.EXPECT().FindCandidates(ctx, int64(3), sub.Point(), 100.0).Return(nil, nil)
	deps.tx.EXPECT().CreateIncident(ctx, gomock.Any()).Return(nil)
	deps.tx.EXPECT().CreateReport(ctx, gomock.Any()).Return(nil)
	deps.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	_, err := svc.SubmitReport(ctx, sub)

	require.NoError(t, err)
}

func TestSubmitReport_UnknownCategory(t *testing.T) {
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	sub := testSubmission(reportDate, interval.Minute(600))

	expectGuard(deps)
	deps.tx.EXPECT().GetCategory(ctx, int64(3)).Return(nil, models.ErrCategoryNotFound)

	_, err := svc.SubmitReport(ctx, sub)

	assert.ErrorIs(t, err, models.ErrCategoryNotFound)
}

func TestSubmitReport_GuardUnavailable(t *testing.T) {
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	sub := testSubmission(reportDate, interval.Minute(600))

	deps.guard.EXPECT().Acquire(ctx, "3:5993:3031").Return("", models.ErrStorageConflict)
	deps.tx.EXPECT().GetCategory(gomock.Any(), gomock.Any()).Times(0)

	_, err := svc.SubmitReport(ctx, sub)

	assert.ErrorIs(t, err, models.ErrStorageConflict)
}

func TestSubmitReport_PublishFailureIsNotFatal(t *testing.T) {
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	sub := testSubmission(reportDate, interval.Minute(600))

	expectGuard(deps)
	deps.tx.EXPECT().GetCategory(ctx, int64(3)).Return(testCategory(), nil)
	deps.tx.EXPECT().FindCandidates(ctx, int64(3), sub.Point(), 25.0).Return(nil, nil)
	deps.tx.EXPECT().CreateIncident(ctx, gomock.Any()).Return(nil)
	deps.tx.EXPECT().CreateReport(ctx, gomock.Any()).Return(nil)
	deps.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(errors.New("redis down"))

	result, err := svc.SubmitReport(ctx, sub)

	require.NoError(t, err)
	assert.True(t, result.Created)
}

func TestGetIncident_Success_FromCache(t *testing.T) {
	// Подготовка
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	expected := existingIncident(1)

	// Ожидания
	deps.repo.EXPECT().GetIncidentFromCache(ctx, expected.ID).Return(expected, nil).Times(1)

	// Действие
	incident, err := svc.GetIncident(ctx, expected.ID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, incident)
}

func TestGetIncident_Success_FromDB(t *testing.T) {
	// Подготовка
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	expected := existingIncident(1)

	// Ожидания
	// 1. Промах кеша
	deps.repo.EXPECT().GetIncidentFromCache(ctx, expected.ID).Return(nil, nil).Times(1)
	// 2. Попадание в БД
	deps.repo.EXPECT().GetByID(ctx, expected.ID).Return(expected, nil).Times(1)
	// 3. Запись в кеш
	deps.repo.EXPECT().SetIncidentCache(ctx, expected).Return(nil).Times(1)

	// Действие
	incident, err := svc.GetIncident(ctx, expected.ID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, incident)
}

func TestGetIncident_CacheErrorFallsBackToDB(t *testing.T) {
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	expected := existingIncident(1)

	deps.repo.EXPECT().GetIncidentFromCache(ctx, expected.ID).Return(nil, errors.New("redis timeout"))
	deps.repo.EXPECT().GetByID(ctx, expected.ID).Return(expected, nil)
	deps.repo.EXPECT().SetIncidentCache(ctx, expected).Return(errors.New("redis timeout"))

	incident, err := svc.GetIncident(ctx, expected.ID)

	require.NoError(t, err)
	assert.Equal(t, expected, incident)
}

func TestGetIncident_NotFound(t *testing.T) {
	// Подготовка
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	id := uuid.New()

	// Ожидания
	deps.repo.EXPECT().GetIncidentFromCache(ctx, id).Return(nil, nil)
	deps.repo.EXPECT().GetByID(ctx, id).Return(nil, fmt.Errorf("incident %s: %w", id, models.ErrIncidentNotFound))

	// Действие
	incident, err := svc.GetIncident(ctx, id)

	// Проверки
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, models.ErrIncidentNotFound)
}

func TestListIncidents_NormalizesPaging(t *testing.T) {
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	expected := []*models.Incident{existingIncident(1)}

	deps.repo.EXPECT().ListIncidents(ctx, 1, 20).Return(expected, nil).Times(2)

	got, err := svc.ListIncidents(ctx, 0, 500)
	require.NoError(t, err)
	assert.Equal(t, expected, got)

	_, err = svc.ListIncidents(ctx, -3, 0)
	require.NoError(t, err)
}

func TestResolveIncident(t *testing.T) {
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	id := uuid.New()

	deps.repo.EXPECT().Resolve(ctx, id).Return(nil)
	deps.repo.EXPECT().InvalidateIncidentCache(ctx, id).Return(nil)

	require.NoError(t, svc.ResolveIncident(ctx, id))
}

func TestResolveIncident_NotFound(t *testing.T) {
	svc, deps := newTestIncidentService(t)
	ctx := context.Background()
	id := uuid.New()

	deps.repo.EXPECT().Resolve(ctx, id).Return(models.ErrIncidentNotFound)

	err := svc.ResolveIncident(ctx, id)

	assert.ErrorIs(t, err, models.ErrIncidentNotFound)
}

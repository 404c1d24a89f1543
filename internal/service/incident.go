package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/shenikar/geo_incident_system/internal/config"
	"github.com/shenikar/geo_incident_system/internal/models"
	"github.com/shenikar/geo_incident_system/internal/webhook"
	"github.com/sirupsen/logrus"
)

// guardCellDegrees - размер ячейки (~1 км) для защиты от параллельного создания инцидентов
const guardCellDegrees = 0.01

// IncidentTx определяет операции хранилища внутри одной транзакции привязки отчета
type IncidentTx interface {
	GetCategory(ctx context.Context, id int64) (*models.IncidentCategory, error)
	FindCandidates(ctx context.Context, categoryID int64, point orb.Point, toleranceMeters float64) ([]*models.Incident, error)
	HasReportOnDate(ctx context.Context, incidentID uuid.UUID, userEmail string, date civil.Date) (bool, error)
	CreateIncident(ctx context.Context, incident *models.Incident) error
	UpdateBoundary(ctx context.Context, incident *models.Incident, expectedVersion int64) error
	CreateReport(ctx context.Context, report *models.Report) error
}

// IncidentRepository определяет контракт для работы с бд инцидентов
type IncidentRepository interface {
	WithinTx(ctx context.Context, fn func(tx IncidentTx) error) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	Resolve(ctx context.Context, id uuid.UUID) error
	FindActiveNear(ctx context.Context, bound orb.Bound, proximityMeters float64) ([]*models.Incident, error)

	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// CreationGuard - короткая блокировка на ячейку (категория, район), которая
// не дает двум параллельным отчетам создать два инцидента вместо одного
type CreationGuard interface {
	Acquire(ctx context.Context, key string) (token string, err error)
	Release(ctx context.Context, key, token string) error
}

// IncidentService определяет контракт бизнес-логики инцидентов
type IncidentService interface {
	SubmitReport(ctx context.Context, sub *models.ReportSubmission) (*models.AttachResult, error)
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	ResolveIncident(ctx context.Context, id uuid.UUID) error
}

type incidentService struct {
	repo      IncidentRepository
	guard     CreationGuard
	publisher webhook.WebhookPublisher
	logger    *logrus.Logger
	cfg       *config.Config
	defaults  models.Tolerance
}

func NewIncidentService(repo IncidentRepository, guard CreationGuard, publisher webhook.WebhookPublisher, logger *logrus.Logger, cfg *config.Config) IncidentService {
	return &incidentService{
		repo:      repo,
		guard:     guard,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		defaults: models.Tolerance{
			SpatialMeters: cfg.MatchSpatialToleranceMeters,
			DateDays:      cfg.MatchDateToleranceDays,
			TimeMinutes:   cfg.MatchTimeToleranceMinutes,
		},
	}
}

// SubmitReport привязывает отчет к подходящему инциденту или создает новый.
// Конфликт записи границ повторяется не более AttachMaxRetries раз.
func (s *incidentService) SubmitReport(ctx context.Context, sub *models.ReportSubmission) (*models.AttachResult, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "SubmitReport",
		"category_id": sub.CategoryID,
		"date":        sub.Date.String(),
		"time":        sub.Time.String(),
	})
	log.Info("Attempting to attach a new report")

	key := guardKey(sub)
	token, err := s.guard.Acquire(ctx, key)
	if err != nil {
		log.WithError(err).Warn("Failed to acquire incident creation guard")
		return nil, fmt.Errorf("service: could not acquire creation guard: %w", err)
	}
	defer func() {
		if err := s.guard.Release(context.WithoutCancel(ctx), key, token); err != nil {
			log.WithError(err).Warn("Failed to release incident creation guard")
		}
	}()

	var result *models.AttachResult
	for attempt := 1; attempt <= s.cfg.AttachMaxRetries; attempt++ {
		result, err = s.attach(ctx, sub)
		if !errors.Is(err, models.ErrStorageConflict) {
			break
		}
		log.WithField("attempt", attempt).Warn("Incident boundary changed concurrently, retrying")
	}

	if err != nil {
		switch {
		case errors.Is(err, models.ErrDuplicateReport):
			log.Info("Duplicate report rejected")
		case errors.Is(err, models.ErrCategoryNotFound):
			log.WithError(err).Warn("Report references unknown category")
		default:
			log.WithError(err).Error("Failed to attach report")
		}
		return nil, fmt.Errorf("service: could not attach report: %w", err)
	}

	log = log.WithFields(logrus.Fields{
		"incident_id": result.Incident.ID,
		"report_id":   result.Report.ID,
		"created":     result.Created,
	})

	// Свежая версия вытесняет копию, прочитанную параллельным GetIncident до коммита
	if result.Extended {
		if err := s.repo.SetIncidentCache(ctx, result.Incident); err != nil {
			log.WithError(err).Warn("Failed to refresh incident cache")
		}
	}
	s.publishAttach(ctx, log, result)

	log.Info("Report attached successfully")
	return result, nil
}

func (s *incidentService) attach(ctx context.Context, sub *models.ReportSubmission) (*models.AttachResult, error) {
	result := &models.AttachResult{}
	err := s.repo.WithinTx(ctx, func(tx IncidentTx) error {
		category, err := tx.GetCategory(ctx, sub.CategoryID)
		if err != nil {
			return err
		}
		tol := category.Tolerance(s.defaults)

		candidates, err := tx.FindCandidates(ctx, category.ID, sub.Point(), tol.SpatialMeters)
		if err != nil {
			return err
		}

		match := MatchIncident(candidates, sub, tol)
		if match == nil {
			incident := NewIncidentFromReport(sub, category, s.cfg.IncidentDefaultRadiusMeters)
			if err := tx.CreateIncident(ctx, incident); err != nil {
				return err
			}
			result.Incident = incident
			result.Created = true
		} else {
			duplicate, err := tx.HasReportOnDate(ctx, match.Incident.ID, sub.UserEmail, sub.Date)
			if err != nil {
				return err
			}
			if duplicate {
				return models.ErrDuplicateReport
			}

			grown, changed := ExtendBoundary(match.Incident, sub)
			if changed {
				if err := tx.UpdateBoundary(ctx, grown, match.Incident.Version); err != nil {
					return err
				}
			}
			result.Incident = grown
			result.Extended = changed
		}

		report := newReport(sub)
		report.IncidentID = result.Incident.ID
		if err := tx.CreateReport(ctx, report); err != nil {
			return err
		}
		result.Report = report
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// publishAttach ставит событие в очередь вебхуков; ошибка не откатывает привязку
func (s *incidentService) publishAttach(ctx context.Context, log *logrus.Entry, result *models.AttachResult) {
	if !result.Created && !result.Extended {
		return
	}
	eventType := webhook.EventIncidentExtended
	if result.Created {
		eventType = webhook.EventIncidentCreated
	}
	event := webhook.IncidentEvent{
		Type:      eventType,
		ReportID:  result.Report.ID,
		Incident:  result.Incident,
		Timestamp: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Warn("Failed to publish incident event")
	}
}

// GetIncident получает инцидент по ID, сначала из кеша
func (s *incidentService) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})
	log.Info("Fetching incident by ID")

	cached, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read incident cache")
	}
	if cached != nil {
		log.Debug("Incident served from cache")
		return cached, nil
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Error("Failed to get incident in repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}

	log.Info("Incident fetched successfully")
	return incident, nil
}

// ListIncidents возвращает список инцидентов с пагинацией
func (s *incidentService) ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	if page < 1 {
		page = 1
	}

	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "ListIncidents",
		"page":      page,
		"page_size": pageSize,
	})
	log.Info("Listing incidents")

	incidents, err := s.repo.ListIncidents(ctx, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}

// ResolveIncident переводит инцидент в статус resolved: он больше не
// принимает отчеты и не влияет на маршруты
func (s *incidentService) ResolveIncident(ctx context.Context, id uuid.UUID) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "ResolveIncident",
		"incident_id": id,
	})
	log.Info("Attempting to resolve incident")

	if err := s.repo.Resolve(ctx, id); err != nil {
		log.WithError(err).Error("Failed to resolve incident in repository")
		return fmt.Errorf("service: could not resolve incident: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	log.Info("Incident resolved successfully")
	return nil
}

func guardKey(sub *models.ReportSubmission) string {
	return fmt.Sprintf("%d:%d:%d",
		sub.CategoryID,
		int(math.Floor(sub.Latitude/guardCellDegrees)),
		int(math.Floor(sub.Longitude/guardCellDegrees)),
	)
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/geo_incident_system/internal/interval"
	"github.com/shenikar/geo_incident_system/internal/models"
	"github.com/shenikar/geo_incident_system/internal/service"
)

const incidentColumns = `
	id,
	category_id,
	risk_level,
	status,
	ST_Y(location::geometry) AS latitude,
	ST_X(location::geometry) AS longitude,
	radius_meters,
	date_start,
	date_end,
	time_start,
	time_end,
	version,
	created_at,
	updated_at`

// querier - общее подмножество pgxpool.Pool и pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client, cacheTTL time.Duration) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

// WithinTx выполняет fn в транзакции; ошибка fn откатывает все изменения
func (r *IncidentRepository) WithinTx(ctx context.Context, fn func(tx service.IncidentTx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// после Commit возвращает ErrTxClosed, это ожидаемо
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(&incidentTx{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return translateError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// GetByID возвращает инцидент по его UUID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1;`

	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %s: %w", id, models.ErrIncidentNotFound)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// ListIncidents возвращает список инцидентов с пагинацией, новые первыми
func (r *IncidentRepository) ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	offset := (page - 1) * pageSize

	query := `SELECT ` + incidentColumns + `
		FROM incidents
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2;
	`
	rows, err := r.db.Query(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	return collectIncidents(rows)
}

// Resolve переводит инцидент в статус resolved
func (r *IncidentRepository) Resolve(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE incidents SET
			status = 'resolved',
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1;
	`
	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to resolve incident: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident with id %s: %w", id, models.ErrIncidentNotFound)
	}
	return nil
}

// FindActiveNear возвращает активные инциденты, чья зона вместе с proximity
// пересекает прямоугольник bound
func (r *IncidentRepository) FindActiveNear(ctx context.Context, bound orb.Bound, proximityMeters float64) ([]*models.Incident, error) {
	query := `SELECT ` + incidentColumns + `
		FROM incidents
		WHERE
			status = 'active'
			AND ST_DWithin(
				location,
				ST_MakeEnvelope($1, $2, $3, $4, 4326)::geography,
				radius_meters + $5
			);
	`
	rows, err := r.db.Query(ctx, query,
		bound.Min.Lon(), bound.Min.Lat(),
		bound.Max.Lon(), bound.Max.Lat(),
		proximityMeters,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find active incidents near bound: %w", err)
	}
	return collectIncidents(rows)
}

// GetIncidentFromCache пытается получить инцидент из Redis; промах - (nil, nil)
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	val, err := r.redisClient.Get(ctx, incidentCacheKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// setNewerScript пишет инцидент, только если в кэше нет версии новее
var setNewerScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current then
	local ok, cached = pcall(cjson.decode, current)
	if ok and tonumber(cached["version"]) and tonumber(cached["version"]) > tonumber(ARGV[2]) then
		return 0
	end
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

// SetIncidentCache сохраняет инцидент в Redis; более старая версия не
// перезаписывает более новую
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	ttl := r.cacheTTL.Milliseconds()
	if ttl < 1 {
		ttl = 1
	}
	err = setNewerScript.Run(ctx, r.redisClient, []string{incidentCacheKey(incident.ID)}, val, incident.Version, ttl).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache удаляет инцидент из Redis кэша
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	if err := r.redisClient.Del(ctx, incidentCacheKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}

func incidentCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("incident:%s", id.String())
}

// incidentTx реализует service.IncidentTx поверх открытой транзакции
type incidentTx struct {
	q querier
}

func (t *incidentTx) GetCategory(ctx context.Context, id int64) (*models.IncidentCategory, error) {
	query := `
		SELECT
			id,
			name,
			min_risk_level,
			max_risk_level,
			spatial_tolerance_meters,
			date_tolerance_days,
			time_tolerance_minutes
		FROM incident_categories
		WHERE id = $1;
	`
	var (
		category models.IncidentCategory
		minRisk  string
		maxRisk  string
	)
	err := t.q.QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&minRisk,
		&maxRisk,
		&category.SpatialToleranceMeters,
		&category.DateToleranceDays,
		&category.TimeToleranceMinutes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("category %d: %w", id, models.ErrCategoryNotFound)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if category.MinRiskLevel, err = models.ParseRiskLevel(minRisk); err != nil {
		return nil, fmt.Errorf("category %d: %w", id, err)
	}
	if category.MaxRiskLevel, err = models.ParseRiskLevel(maxRisk); err != nil {
		return nil, fmt.Errorf("category %d: %w", id, err)
	}
	return &category, nil
}

// FindCandidates отбирает активные инциденты категории, до зоны которых
// от точки не дальше toleranceMeters. Точная проверка - в сервисе.
func (t *incidentTx) FindCandidates(ctx context.Context, categoryID int64, point orb.Point, toleranceMeters float64) ([]*models.Incident, error) {
	query := `SELECT ` + incidentColumns + `
		FROM incidents
		WHERE
			status = 'active'
			AND category_id = $1
			AND ST_DWithin(
				location,
				ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography,
				radius_meters + $4
			);
	`
	rows, err := t.q.Query(ctx, query, categoryID, point.Lon(), point.Lat(), toleranceMeters)
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate incidents: %w", err)
	}
	return collectIncidents(rows)
}

func (t *incidentTx) HasReportOnDate(ctx context.Context, incidentID uuid.UUID, userEmail string, date civil.Date) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reports
			WHERE incident_id = $1 AND user_email = $2 AND report_date = $3
		);
	`
	var exists bool
	if err := t.q.QueryRow(ctx, query, incidentID, userEmail, dateValue(date)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check duplicate report: %w", err)
	}
	return exists, nil
}

func (t *incidentTx) CreateIncident(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (
			id, category_id, risk_level, status, location, radius_meters,
			date_start, date_end, time_start, time_end
		)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326), $7, $8, $9, $10, $11)
		RETURNING version, created_at, updated_at;
	`
	err := t.q.QueryRow(ctx, query,
		incident.ID,
		incident.CategoryID,
		incident.RiskLevel.String(),
		incident.Status,
		incident.Longitude,
		incident.Latitude,
		incident.RadiusMeters,
		dateValue(incident.Dates.Start),
		dateValue(incident.Dates.End),
		int(incident.Times.Start),
		int(incident.Times.End),
	).Scan(&incident.Version, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return translateError(fmt.Errorf("failed to create incident: %w", err))
	}
	return nil
}

// UpdateBoundary записывает новые границы, только если версия не изменилась
// с момента чтения; иначе ErrStorageConflict
func (t *incidentTx) UpdateBoundary(ctx context.Context, incident *models.Incident, expectedVersion int64) error {
	query := `
		UPDATE incidents SET
			radius_meters = $1,
			date_start = $2,
			date_end = $3,
			time_start = $4,
			time_end = $5,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $6 AND version = $7 AND status = 'active'
		RETURNING version, updated_at;
	`
	err := t.q.QueryRow(ctx, query,
		incident.RadiusMeters,
		dateValue(incident.Dates.Start),
		dateValue(incident.Dates.End),
		int(incident.Times.Start),
		int(incident.Times.End),
		incident.ID,
		expectedVersion,
	).Scan(&incident.Version, &incident.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("incident %s changed since version %d: %w", incident.ID, expectedVersion, models.ErrStorageConflict)
		}
		return translateError(fmt.Errorf("failed to update incident boundary: %w", err))
	}
	return nil
}

func (t *incidentTx) CreateReport(ctx context.Context, report *models.Report) error {
	query := `
		INSERT INTO reports (
			id, incident_id, user_email, description, location,
			report_date, report_time, is_anonymous
		)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326), $7, $8, $9)
		RETURNING created_at;
	`
	err := t.q.QueryRow(ctx, query,
		report.ID,
		report.IncidentID,
		report.UserEmail,
		report.Description,
		report.Longitude,
		report.Latitude,
		dateValue(report.Date),
		int(report.Time),
		report.IsAnonymous,
	).Scan(&report.CreatedAt)
	if err != nil {
		return translateError(fmt.Errorf("failed to create report: %w", err))
	}
	return nil
}

func scanIncident(row pgx.Row) (*models.Incident, error) {
	var (
		incident  models.Incident
		risk      string
		dateStart time.Time
		dateEnd   time.Time
		timeStart int
		timeEnd   int
	)
	err := row.Scan(
		&incident.ID,
		&incident.CategoryID,
		&risk,
		&incident.Status,
		&incident.Latitude,
		&incident.Longitude,
		&incident.RadiusMeters,
		&dateStart,
		&dateEnd,
		&timeStart,
		&timeEnd,
		&incident.Version,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if incident.RiskLevel, err = models.ParseRiskLevel(risk); err != nil {
		return nil, fmt.Errorf("incident %s: %w", incident.ID, err)
	}
	incident.Dates = interval.DateRange{Start: civil.DateOf(dateStart), End: civil.DateOf(dateEnd)}
	incident.Times = interval.TimeWindow{Start: interval.Minute(timeStart), End: interval.Minute(timeEnd)}
	return &incident, nil
}

func collectIncidents(rows pgx.Rows) ([]*models.Incident, error) {
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

// dateValue переводит календарную дату в значение для колонки DATE
func dateValue(d civil.Date) time.Time {
	return d.In(time.UTC)
}

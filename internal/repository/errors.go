package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shenikar/geo_incident_system/internal/models"
)

const reportPerDayConstraint = "uq_reports_incident_user_date"

// translateError сопоставляет ошибки Postgres доменным ошибкам
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		if pgErr.ConstraintName == reportPerDayConstraint {
			return fmt.Errorf("%w: %w", models.ErrDuplicateReport, err)
		}
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("%w: %w", models.ErrStorageConflict, err)
	case pgerrcode.ForeignKeyViolation:
		if pgErr.TableName == "incidents" {
			return fmt.Errorf("%w: %w", models.ErrCategoryNotFound, err)
		}
	}
	return err
}

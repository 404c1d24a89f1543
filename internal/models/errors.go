package models

import "errors"

var (
	// ErrDuplicateReport - пользователь уже оставил отчет по этому инциденту за эту дату
	ErrDuplicateReport = errors.New("duplicate report for incident on this date")
	// ErrRouteNotFound - маршрут между точками не найден
	ErrRouteNotFound = errors.New("route not found")
	// ErrStorageConflict - конкурентная запись границ инцидента
	ErrStorageConflict = errors.New("incident boundary was modified concurrently")

	ErrIncidentNotFound = errors.New("incident not found")
	ErrCategoryNotFound = errors.New("incident category not found")
)

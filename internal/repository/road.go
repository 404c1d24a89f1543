package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/shenikar/geo_incident_system/internal/models"
)

// RoadRepository читает дорожный граф. Граф загружается один раз при старте.
type RoadRepository struct {
	db *pgxpool.Pool
}

func NewRoadRepository(db *pgxpool.Pool) *RoadRepository {
	return &RoadRepository{db: db}
}

// LoadNodes возвращает все узлы графа
func (r *RoadRepository) LoadNodes(ctx context.Context) ([]models.RoadNode, error) {
	query := `SELECT id, ST_AsBinary(location) FROM road_nodes ORDER BY id;`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load road nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]models.RoadNode, 0)
	for rows.Next() {
		var (
			node models.RoadNode
			raw  []byte
		)
		if err := rows.Scan(&node.ID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan road node row: %w", err)
		}
		if node.Location, err = decodePoint(raw); err != nil {
			return nil, fmt.Errorf("road node %d: %w", node.ID, err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error road node iteration: %w", err)
	}
	return nodes, nil
}

// LoadEdges возвращает все ребра; пустая геометрия достраивается графом
func (r *RoadRepository) LoadEdges(ctx context.Context) ([]models.RoadEdge, error) {
	query := `
		SELECT id, source, target, cost, reverse_cost, ST_AsBinary(geom)
		FROM road_edges
		ORDER BY id;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load road edges: %w", err)
	}
	defer rows.Close()

	edges := make([]models.RoadEdge, 0)
	for rows.Next() {
		var (
			edge models.RoadEdge
			raw  []byte
		)
		err := rows.Scan(&edge.ID, &edge.SourceNodeID, &edge.TargetNodeID, &edge.BaseCost, &edge.ReverseBaseCost, &raw)
		if err != nil {
			return nil, fmt.Errorf("failed to scan road edge row: %w", err)
		}
		if raw != nil {
			if edge.Geometry, err = decodeLineString(raw); err != nil {
				return nil, fmt.Errorf("road edge %d: %w", edge.ID, err)
			}
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error road edge iteration: %w", err)
	}
	return edges, nil
}

func decodePoint(raw []byte) (orb.Point, error) {
	geom, err := wkb.Unmarshal(raw)
	if err != nil {
		return orb.Point{}, fmt.Errorf("failed to decode point: %w", err)
	}
	p, ok := geom.(orb.Point)
	if !ok {
		return orb.Point{}, fmt.Errorf("expected point, got %s", geom.GeoJSONType())
	}
	return p, nil
}

func decodeLineString(raw []byte) (orb.LineString, error) {
	geom, err := wkb.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode linestring: %w", err)
	}
	ls, ok := geom.(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("expected linestring, got %s", geom.GeoJSONType())
	}
	return ls, nil
}

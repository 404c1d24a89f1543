package models

import "github.com/paulmach/orb"

// RoadNode - перекресток дорожного графа
type RoadNode struct {
	ID       int64     `json:"id"`
	Location orb.Point `json:"location"`
}

// RoadEdge - дорожный сегмент. Если ReverseBaseCost == nil, сегмент односторонний.
type RoadEdge struct {
	ID              int64          `json:"id"`
	SourceNodeID    int64          `json:"source_node_id"`
	TargetNodeID    int64          `json:"target_node_id"`
	BaseCost        float64        `json:"base_cost"`
	ReverseBaseCost *float64       `json:"reverse_base_cost,omitempty"`
	Geometry        orb.LineString `json:"geometry"`
}

// RouteLeg - пройденное ребро; геометрия ориентирована по направлению движения
type RouteLeg struct {
	EdgeID   int64          `json:"edge_id"`
	Reverse  bool           `json:"reverse"`
	BaseCost float64        `json:"base_cost"`
	Cost     float64        `json:"cost"`
	Risk     *RiskLevel     `json:"risk,omitempty"`
	Geometry orb.LineString `json:"geometry"`
}

// Route - упорядоченный список ребер маршрута
type Route struct {
	StartNodeID int64      `json:"start_node_id"`
	EndNodeID   int64      `json:"end_node_id"`
	Legs        []RouteLeg `json:"legs"`
	BaseCost    float64    `json:"base_cost"`
	Cost        float64    `json:"cost"`
}

// Path склеивает геометрии ребер в одну линию без повторов стыковых точек
func (r *Route) Path() orb.LineString {
	var path orb.LineString
	for _, leg := range r.Legs {
		for i, p := range leg.Geometry {
			if i == 0 && len(path) > 0 && path[len(path)-1].Equal(p) {
				continue
			}
			path = append(path, p)
		}
	}
	return path
}

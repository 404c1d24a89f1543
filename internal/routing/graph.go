// Package routing - дорожный граф и поиск маршрута A* с учетом риска инцидентов.
package routing

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/shenikar/geo_incident_system/internal/geo"
	"github.com/shenikar/geo_incident_system/internal/models"
)

// arc - направленная дуга графа; для обратного прохода ребра reverse = true
type arc struct {
	edge    *models.RoadEdge
	to      int
	cost    float64
	reverse bool
}

// Graph - направленный дорожный граф. После построения только читается,
// поэтому безопасен для параллельных запросов.
type Graph struct {
	nodes []models.RoadNode
	index map[int64]int
	arcs  [][]arc
	edges int
	bound orb.Bound
	// heuristicScale - минимальное отношение стоимости дуги к геодезическому
	// расстоянию между ее концами; делает эвристику допустимой
	heuristicScale float64
}

// NewGraph строит граф из узлов и ребер
func NewGraph(nodes []models.RoadNode, edges []models.RoadEdge) (*Graph, error) {
	g := &Graph{
		nodes: make([]models.RoadNode, len(nodes)),
		index: make(map[int64]int, len(nodes)),
		arcs:  make([][]arc, len(nodes)),
	}
	copy(g.nodes, nodes)
	sort.Slice(g.nodes, func(i, j int) bool { return g.nodes[i].ID < g.nodes[j].ID })

	for i, n := range g.nodes {
		if _, exists := g.index[n.ID]; exists {
			return nil, fmt.Errorf("duplicate road node %d", n.ID)
		}
		g.index[n.ID] = i
		if i == 0 {
			g.bound = n.Location.Bound()
		} else {
			g.bound = g.bound.Extend(n.Location)
		}
	}

	owned := make([]models.RoadEdge, len(edges))
	copy(owned, edges)

	scale := math.Inf(1)
	addArc := func(from, to int, e *models.RoadEdge, cost float64, reverse bool) {
		g.arcs[from] = append(g.arcs[from], arc{edge: e, to: to, cost: cost, reverse: reverse})
		if d := geo.Distance(g.nodes[from].Location, g.nodes[to].Location); d > 0 {
			scale = math.Min(scale, math.Max(cost, minCost)/d)
		}
		g.edges++
	}

	seen := make(map[int64]struct{}, len(owned))
	for i := range owned {
		e := &owned[i]
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("duplicate road edge %d", e.ID)
		}
		seen[e.ID] = struct{}{}
		from, ok := g.index[e.SourceNodeID]
		if !ok {
			return nil, fmt.Errorf("road edge %d references unknown source node %d", e.ID, e.SourceNodeID)
		}
		to, ok := g.index[e.TargetNodeID]
		if !ok {
			return nil, fmt.Errorf("road edge %d references unknown target node %d", e.ID, e.TargetNodeID)
		}
		if len(e.Geometry) < 2 {
			e.Geometry = orb.LineString{g.nodes[from].Location, g.nodes[to].Location}
		}

		addArc(from, to, e, e.BaseCost, false)
		if e.ReverseBaseCost != nil && *e.ReverseBaseCost >= 0 {
			addArc(to, from, e, *e.ReverseBaseCost, true)
		}
	}

	if math.IsInf(scale, 1) {
		scale = 0
	}
	g.heuristicScale = scale
	return g, nil
}

// NodeCount возвращает число узлов
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// ArcCount возвращает число направленных дуг
func (g *Graph) ArcCount() int {
	return g.edges
}

// Bound возвращает охватывающий прямоугольник узлов графа
func (g *Graph) Bound() orb.Bound {
	return g.bound
}

// Node возвращает узел по идентификатору
func (g *Graph) Node(id int64) (models.RoadNode, bool) {
	idx, ok := g.index[id]
	if !ok {
		return models.RoadNode{}, false
	}
	return g.nodes[idx], true
}

// Nearest находит ближайший к точке узел; при равенстве - с меньшим ID
func (g *Graph) Nearest(p orb.Point) (models.RoadNode, bool) {
	idx, ok := g.nearest(p)
	if !ok {
		return models.RoadNode{}, false
	}
	return g.nodes[idx], true
}

func (g *Graph) nearest(p orb.Point) (int, bool) {
	if len(g.nodes) == 0 {
		return -1, false
	}
	best := -1
	bestDist := math.Inf(1)
	// узлы отсортированы по ID, строгое сравнение оставляет меньший ID
	for i, n := range g.nodes {
		if d := geo.Distance(p, n.Location); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best, true
}

func (g *Graph) heuristic(from, to int) float64 {
	if g.heuristicScale == 0 {
		return 0
	}
	return g.heuristicScale * geo.Distance(g.nodes[from].Location, g.nodes[to].Location)
}

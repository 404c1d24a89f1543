package routing

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/shenikar/geo_incident_system/internal/models"
)

// проверка отмены контекста раз в ctxCheckInterval раскрытий
const ctxCheckInterval = 1024

// Planner ищет маршрут с наименьшей стоимостью с учетом риска.
// Сам по себе не хранит изменяемого состояния.
type Planner struct {
	graph         *Graph
	adjuster      *CostAdjuster
	maxExpansions int
}

// NewPlanner создает планировщик. maxExpansions <= 0 ограничивает поиск числом узлов графа.
func NewPlanner(graph *Graph, adjuster *CostAdjuster, maxExpansions int) *Planner {
	if adjuster == nil {
		adjuster = NewCostAdjuster(nil)
	}
	if maxExpansions <= 0 {
		maxExpansions = graph.NodeCount()
	}
	return &Planner{graph: graph, adjuster: adjuster, maxExpansions: maxExpansions}
}

func (p *Planner) Graph() *Graph {
	return p.graph
}

type step struct {
	from int
	arc  *arc
	cost float64
	risk models.RiskLevel
}

// Plan привязывает start и end к ближайшим узлам и ищет путь A*.
// Совпадение узлов, отсутствие пути и превышение лимита дают ErrRouteNotFound.
func (p *Planner) Plan(ctx context.Context, start, end orb.Point, risk RiskSource) (*models.Route, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g := p.graph
	source, ok := g.nearest(start)
	if !ok {
		return nil, fmt.Errorf("road graph is empty: %w", models.ErrRouteNotFound)
	}
	target, _ := g.nearest(end)
	if source == target {
		return nil, fmt.Errorf("start and end snap to the same node %d: %w", g.nodes[source].ID, models.ErrRouteNotFound)
	}

	n := len(g.nodes)
	best := make([]float64, n)
	for i := range best {
		best[i] = math.Inf(1)
	}
	via := make([]step, n)
	closed := make([]bool, n)

	var seq uint64
	queue := make(searchQueue, 0, 64)
	push := func(node int, cost float64) {
		seq++
		heap.Push(&queue, &searchItem{node: node, g: cost, f: cost + g.heuristic(node, target), seq: seq})
	}

	best[source] = 0
	push(source, 0)

	expansions := 0
	for queue.Len() > 0 {
		current := heap.Pop(&queue).(*searchItem)
		if closed[current.node] || current.g > best[current.node] {
			continue
		}
		closed[current.node] = true

		expansions++
		if expansions > p.maxExpansions {
			return nil, fmt.Errorf("search bound of %d expansions exceeded: %w", p.maxExpansions, models.ErrRouteNotFound)
		}
		if expansions%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if current.node == target {
			return p.buildRoute(source, target, via), nil
		}

		for i := range g.arcs[current.node] {
			a := &g.arcs[current.node][i]
			if closed[a.to] {
				continue
			}

			var level models.RiskLevel
			var nearby *models.RiskLevel
			if risk != nil {
				if l, ok := risk.RiskNear(a.edge); ok {
					level = l
					nearby = &level
				}
			}
			cost := p.adjuster.AdjustedCost(a.cost, nearby)

			next := current.g + cost
			if next < best[a.to] {
				best[a.to] = next
				via[a.to] = step{from: current.node, arc: a, cost: cost, risk: level}
				push(a.to, next)
			}
		}
	}

	return nil, fmt.Errorf("no path between nodes %d and %d: %w", g.nodes[source].ID, g.nodes[target].ID, models.ErrRouteNotFound)
}

func (p *Planner) buildRoute(source, target int, via []step) *models.Route {
	var steps []step
	for node := target; node != source; node = via[node].from {
		steps = append(steps, via[node])
	}

	route := &models.Route{
		StartNodeID: p.graph.nodes[source].ID,
		EndNodeID:   p.graph.nodes[target].ID,
		Legs:        make([]models.RouteLeg, 0, len(steps)),
	}
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		geometry := s.arc.edge.Geometry.Clone()
		if s.arc.reverse {
			geometry.Reverse()
		}
		leg := models.RouteLeg{
			EdgeID:   s.arc.edge.ID,
			Reverse:  s.arc.reverse,
			BaseCost: s.arc.cost,
			Cost:     s.cost,
			Geometry: geometry,
		}
		if s.risk != 0 {
			level := s.risk
			leg.Risk = &level
		}
		route.Legs = append(route.Legs, leg)
		route.BaseCost += leg.BaseCost
		route.Cost += leg.Cost
	}
	return route
}

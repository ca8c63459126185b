// Package optim searches parameter grids by running one simulation per
// grid point.
package optim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/rigsim/internal/sim"
)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Point is one evaluated grid point.
type Point struct {
	Params map[string]float64
	Value  float64
}

// Search runs build for every grid point concurrently and returns the
// point minimising metricName, plus every point in grid order.
func (g *GridSearch) Search(
	ctx context.Context,
	build func(params map[string]float64) (sim.Job, error),
	metricName string,
) (Point, []Point, error) {
	if len(g.paramNames) != len(g.ranges) {
		return Point{}, nil, fmt.Errorf("optim: %d params but %d ranges", len(g.paramNames), len(g.ranges))
	}

	var grid []map[string]float64
	g.enumerate(0, make(map[string]float64), &grid)
	if len(grid) == 0 {
		return Point{}, nil, fmt.Errorf("optim: empty grid")
	}

	jobs := make([]sim.Job, len(grid))
	for i, params := range grid {
		job, err := build(params)
		if err != nil {
			return Point{}, nil, err
		}
		if job.Name == "" {
			job.Name = describe(params)
		}
		jobs[i] = job
	}

	results, err := sim.NewBatch(jobs...).Run(ctx)
	if err != nil {
		return Point{}, nil, err
	}

	best := Point{Value: math.Inf(1)}
	points := make([]Point, len(grid))
	for i, r := range results {
		val, ok := r.Metrics[metricName]
		if !ok {
			return Point{}, nil, fmt.Errorf("optim: run %s has no metric %q", jobs[i].Name, metricName)
		}
		points[i] = Point{Params: grid[i], Value: val}
		if val < best.Value {
			best = points[i]
		}
	}
	return best, points, nil
}

func (g *GridSearch) enumerate(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.enumerate(depth+1, newParams, out)
	}
}

func describe(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := ""
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%g", k, params[k])
	}
	return s
}

package safety

import (
	"fmt"
	"sort"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

// AdjacencyGraph maps a point identity to its directly connected identities.
// It is built once per contour-reconstruction pass and discarded afterwards.
type AdjacencyGraph struct {
	adj map[int][]int
}

// NewAdjacencyGraph creates an empty graph.
func NewAdjacencyGraph() *AdjacencyGraph {
	return &AdjacencyGraph{adj: make(map[int][]int)}
}

// AddEdge records an undirected edge between identities a and b.
func (g *AdjacencyGraph) AddEdge(a, b int) {
	if a == b {
		return
	}
	g.adj[a] = append(g.adj[a], b)
	g.adj[b] = append(g.adj[b], a)
}

// Neighbors returns the identities connected to id.
func (g *AdjacencyGraph) Neighbors(id int) []int {
	return g.adj[id]
}

// Nodes returns all identities in deterministic order.
func (g *AdjacencyGraph) Nodes() []int {
	nodes := make([]int, 0, len(g.adj))
	for id := range g.adj {
		nodes = append(nodes, id)
	}
	sort.Ints(nodes)
	return nodes
}

// frame is one entry on the explicit traversal stack.
type frame struct {
	node   int
	parent int
	depth  int
}

// WalkCycles finds simple cycles via an explicit-stack depth-first walk.
// Language-level recursion is never used: pathological graphs must produce a
// typed traversal-overflow error, not a stack overflow of the host process.
//
// The walk aborts with ErrTraversalDepth when any path exceeds limits.MaxDepth
// and with ErrTraversalBudget when the total visit count exceeds
// limits.MaxIterations.
func WalkCycles(g *AdjacencyGraph, limits domain.SafetyLimits) ([][]int, error) {
	visited := make(map[int]bool)
	parent := make(map[int]int)
	var cycles [][]int
	iterations := 0

	for _, start := range g.Nodes() {
		if visited[start] {
			continue
		}

		stack := []frame{{node: start, parent: -1, depth: 0}}
		for len(stack) > 0 {
			iterations++
			if iterations > limits.MaxIterations {
				return nil, &domain.CoreError{
					Code:    domain.ErrTraversalBudget.Code,
					Message: fmt.Sprintf("%s: %d iterations", domain.ErrTraversalBudget.Message, iterations),
				}
			}

			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if f.depth > limits.MaxDepth {
				return nil, &domain.CoreError{
					Code:    domain.ErrTraversalDepth.Code,
					Message: fmt.Sprintf("%s: depth %d", domain.ErrTraversalDepth.Message, f.depth),
				}
			}

			if visited[f.node] {
				continue
			}
			visited[f.node] = true
			parent[f.node] = f.parent

			for _, next := range g.Neighbors(f.node) {
				if next == f.parent {
					continue
				}
				if visited[next] {
					if cycle := tracePath(parent, f.node, next); cycle != nil {
						cycles = append(cycles, cycle)
					}
					continue
				}
				stack = append(stack, frame{node: next, parent: f.node, depth: f.depth + 1})
			}
		}
	}

	return cycles, nil
}

// tracePath walks the parent chain from node back to ancestor, returning the
// cycle node..ancestor. Returns nil if ancestor is not on node's chain.
func tracePath(parent map[int]int, node, ancestor int) []int {
	var path []int
	cur := node
	for cur != -1 {
		path = append(path, cur)
		if cur == ancestor {
			return path
		}
		next, ok := parent[cur]
		if !ok {
			return nil
		}
		cur = next
	}
	return nil
}

package compiler

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/factstore/internal/condition"
	"github.com/roach88/factstore/internal/ir"
)

// CycleReport describes one dependency cycle among computed facts.
type CycleReport struct {
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
}

// AnalyzeCycles performs static cycle analysis on a spec's computed facts.
//
// The dependency graph maps each computed key to the identifiers of its
// condition. Each strongly connected component with more than one member,
// or with a self-loop, is reported once. Conditions that fail to tokenize
// are skipped; Validate reports them separately.
func AnalyzeCycles(spec *ir.FactSpec) []CycleReport {
	if spec == nil || len(spec.Computed) == 0 {
		return []CycleReport{}
	}

	graph := make(map[string][]string, len(spec.Computed))
	for _, c := range spec.Computed {
		deps, err := condition.Identifiers(c.Condition)
		if err != nil {
			continue
		}
		graph[c.Key] = append(graph[c.Key], deps...)
	}

	reports := []CycleReport{}
	for _, path := range DetectCycles(graph) {
		reports = append(reports, CycleReport{
			Path:    path,
			Message: describeCycle(path),
		})
	}
	return reports
}

// DetectCycles returns one closed path (first node repeated at the end) per
// cycle-bearing strongly connected component of graph. The result is empty
// for a DAG and deterministic for a given graph.
func DetectCycles(graph map[string][]string) [][]string {
	var cycles [][]string
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, reconstructCyclePath(scc, graph))
		}
	}
	return cycles
}

func describeCycle(path []string) string {
	if len(path) == 2 {
		return fmt.Sprintf("computed flag %s depends on itself", path[0])
	}
	return fmt.Sprintf("circular dependency: %s", strings.Join(path, " -> "))
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph map[string][]string) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Nodes are visited in sorted order so results do not depend on map
// iteration. Each SCC is sorted.
func tarjanSCC(graph map[string][]string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack into an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	sort.Slice(sccs, func(i, j int) bool { return sccs[i][0] < sccs[j][0] })
	return sccs
}

// reconstructCyclePath returns the shortest closed walk from the first SCC
// member back to itself, staying inside the SCC.
func reconstructCyclePath(scc []string, graph map[string][]string) []string {
	start := scc[0]
	if len(scc) == 1 {
		return []string{start, start}
	}

	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	// BFS from start's successors until an edge leads back to start
	parent := make(map[string]string)
	queue := []string{start}
	visited := map[string]bool{start: true}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range graph[current] {
			if !members[next] {
				continue
			}
			if next == start {
				path := []string{start}
				for n := current; n != start; n = parent[n] {
					path = append(path, n)
				}
				path = append(path, start)
				// path is start, ..., start reversed in the middle
				slices.Reverse(path[1 : len(path)-1])
				return path
			}
			if !visited[next] {
				visited[next] = true
				parent[next] = current
				queue = append(queue, next)
			}
		}
	}

	// Unreachable for a true SCC
	return append(slices.Clone(scc), start)
}

package compiler

import (
	"strings"

	"github.com/vram0gh/taylorize/internal/ir"
)

// Dependency verification. The normalizer mints temporaries in evaluation
// order, so first-write order should already be a valid topological order
// of every "statement reads slot" edge. This pass confirms it: a slot read
// before its write means either a genuinely cyclic definition or a
// normalizer defect, and either way the specialization must not be
// registered. On failure, Tarjan's algorithm over the def-use graph
// recovers a readable cycle path for the diagnostic.

// verifyDeps scans the normalized tree in statement order and checks that
// every slot operand has been written on the current path before it is
// read. Branch bodies are checked independently; writes from both branches
// merge afterwards since the branches assign identical sets.
func verifyDeps(nz *normalized) error {
	written := make(map[string]bool)
	if err := verifyBlock(nz.block, written); err != nil {
		return err
	}
	return nil
}

func verifyBlock(blk []nnode, written map[string]bool) error {
	for _, node := range blk {
		switch nd := node.(type) {
		case *nstmt:
			if err := checkRead(nd.pos, nd.a, written, blk); err != nil {
				return err
			}
			if nd.kind == nBin {
				if err := checkRead(nd.pos, nd.b, written, blk); err != nil {
					return err
				}
			}
			if nd.tgt.kind == tSlot {
				written[nd.tgt.name] = true
			}
		case *nif:
			if err := checkRead(nd.pos, nd.a, written, blk); err != nil {
				return err
			}
			if err := checkRead(nd.pos, nd.b, written, blk); err != nil {
				return err
			}
			thenW := copySet(written)
			if err := verifyBlock(nd.then, thenW); err != nil {
				return err
			}
			elseW := copySet(written)
			if err := verifyBlock(nd.els, elseW); err != nil {
				return err
			}
			for k := range thenW {
				written[k] = true
			}
			for k := range elseW {
				written[k] = true
			}
		case *nfor:
			// Inside a loop a read of a slot written later in the body
			// would be a prior-iteration value, which the recurrence
			// ordering cannot honor; the linear scan rejects it.
			if err := verifyBlock(nd.body, written); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkRead(pos ir.Pos, o operand, written map[string]bool, blk []nnode) error {
	if o.kind != opSlot || written[o.name] {
		return nil
	}
	if path := findCyclePath(blk); len(path) > 0 {
		return errAt(pos, ErrDependencyCycle,
			"no consistent statement order: cyclic definition %s", strings.Join(path, " -> "))
	}
	return errAt(pos, ErrDependencyCycle,
		"slot %q is read at %s before it is written; this indicates a cyclic definition or a normalizer defect", o.name, pos)
}

func copySet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

// depGraph maps slot name -> slot names its defining statement reads.
type depGraph map[string][]string

// findCyclePath builds the def-use graph of a block and returns one cycle
// path through its first non-trivial strongly connected component, or nil
// if the graph is acyclic.
func findCyclePath(blk []nnode) []string {
	graph := make(depGraph)
	collectEdges(blk, graph)
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 {
			return reconstructCyclePath(scc, graph)
		}
		if len(scc) == 1 && hasSelfLoop(scc[0], graph) {
			return []string{scc[0], scc[0]}
		}
	}
	return nil
}

func collectEdges(blk []nnode, graph depGraph) {
	for _, node := range blk {
		switch nd := node.(type) {
		case *nstmt:
			if nd.tgt.kind != tSlot {
				continue
			}
			if graph[nd.tgt.name] == nil {
				graph[nd.tgt.name] = []string{}
			}
			if nd.a.kind == opSlot {
				graph[nd.tgt.name] = append(graph[nd.tgt.name], nd.a.name)
			}
			if nd.kind == nBin && nd.b.kind == opSlot {
				graph[nd.tgt.name] = append(graph[nd.tgt.name], nd.b.name)
			}
		case *nif:
			collectEdges(nd.then, graph)
			collectEdges(nd.els, graph)
		case *nfor:
			collectEdges(nd.body, graph)
		}
	}
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph depGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node SCCs without self-loops are not cycles.
func tarjanSCC(graph depGraph) [][]string {
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
			sccs = append(sccs, scc)
		}
	}

	for node := range graph {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// reconstructCyclePath builds a closed path through an SCC by following
// edges that stay inside the component.
func reconstructCyclePath(scc []string, graph depGraph) []string {
	inSCC := make(map[string]bool, len(scc))
	for _, n := range scc {
		inSCC[n] = true
	}
	start := scc[0]
	path := []string{start}
	seen := map[string]bool{start: true}
	cur := start
	for {
		next := ""
		for _, w := range graph[cur] {
			if inSCC[w] {
				next = w
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start || seen[next] {
			break
		}
		seen[next] = true
		cur = next
	}
	return path
}

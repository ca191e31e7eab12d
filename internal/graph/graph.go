// Package graph builds a directed file dependency graph and partitions it
// into strongly connected components.
package graph

import (
	"sort"

	"github.com/phobologic/reponav/internal/model"
)

// Node is a file in the dependency graph.
type Node struct {
	ID   string // key in the dependency table
	Name string // display name
	Out  []*Node
}

// Graph is a directed graph whose nodes keep their insertion order.
type Graph struct {
	nodes []*Node
	index map[string]*Node
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]*Node)}
}

// Build creates one node per dependency-table key, in table order, plus a
// node for any dependency target that is not itself a key. An edge A → B
// exists iff B is listed among A's dependencies. name maps an ID to its
// display name; nil keeps the ID.
func Build(deps *model.DependencyTable, name func(string) string) *Graph {
	if name == nil {
		name = func(id string) string { return id }
	}
	g := New()
	for _, file := range deps.Files() {
		g.AddNode(file, name(file))
	}
	for _, file := range deps.Files() {
		for _, target := range deps.Dependencies(file) {
			if g.Node(target) == nil {
				g.AddNode(target, name(target))
			}
			g.AddEdge(file, target)
		}
	}
	return g
}

// AddNode adds a node if id is new and returns the node for id.
func (g *Graph) AddNode(id, name string) *Node {
	if n, ok := g.index[id]; ok {
		return n
	}
	n := &Node{ID: id, Name: name}
	g.nodes = append(g.nodes, n)
	g.index[id] = n
	return n
}

// AddEdge adds from → to, creating missing nodes with their ID as name.
// Duplicate edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	src := g.AddNode(from, from)
	dst := g.AddNode(to, to)
	for _, n := range src.Out {
		if n == dst {
			return
		}
	}
	src.Out = append(src.Out, dst)
}

// Node returns the node for id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.index[id]
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// StrongComponents partitions the graph into maximal sets of mutually
// reachable nodes using an iterative Tarjan search.
//
// The search is seeded from nodes in insertion order and follows edges in
// insertion order. Each component is reported by display name as its first
// discovered node plus the remaining members in discovery order, and
// components are ordered by when their representative was discovered.
func (g *Graph) StrongComponents() []model.Component {
	index := 0
	nodeIndex := make(map[*Node]int, len(g.nodes))
	nodeLowLink := make(map[*Node]int, len(g.nodes))
	onStack := make(map[*Node]bool, len(g.nodes))
	var sccStack []*Node
	var sccs [][]*Node

	type callFrame struct {
		node      *Node
		edgeIndex int
		child     *Node // set while a child search is in progress
	}

	strongConnect := func(start *Node) {
		visit := func(n *Node) {
			nodeIndex[n] = index
			nodeLowLink[n] = index
			index++
			sccStack = append(sccStack, n)
			onStack[n] = true
		}

		visit(start)
		callStack := []callFrame{{node: start}}

		for len(callStack) > 0 {
			frame := &callStack[len(callStack)-1]

			if frame.child != nil {
				if nodeLowLink[frame.child] < nodeLowLink[frame.node] {
					nodeLowLink[frame.node] = nodeLowLink[frame.child]
				}
				frame.child = nil
			}

			descended := false
			for frame.edgeIndex < len(frame.node.Out) {
				next := frame.node.Out[frame.edgeIndex]
				frame.edgeIndex++

				if _, seen := nodeIndex[next]; !seen {
					frame.child = next
					visit(next)
					callStack = append(callStack, callFrame{node: next})
					descended = true
					break
				}
				if onStack[next] && nodeIndex[next] < nodeLowLink[frame.node] {
					nodeLowLink[frame.node] = nodeIndex[next]
				}
			}
			if descended {
				continue
			}

			n := frame.node
			if nodeLowLink[n] == nodeIndex[n] {
				var scc []*Node
				for {
					w := sccStack[len(sccStack)-1]
					sccStack = sccStack[:len(sccStack)-1]
					onStack[w] = false
					scc = append(scc, w)
					if w == n {
						break
					}
				}
				sccs = append(sccs, scc)
			}
			callStack = callStack[:len(callStack)-1]
		}
	}

	for _, n := range g.nodes {
		if _, seen := nodeIndex[n]; !seen {
			strongConnect(n)
		}
	}

	for _, scc := range sccs {
		sort.Slice(scc, func(i, j int) bool {
			return nodeIndex[scc[i]] < nodeIndex[scc[j]]
		})
	}
	sort.Slice(sccs, func(i, j int) bool {
		return nodeIndex[sccs[i][0]] < nodeIndex[sccs[j][0]]
	})

	components := make([]model.Component, 0, len(sccs))
	for _, scc := range sccs {
		partners := make([]string, 0, len(scc)-1)
		for _, n := range scc[1:] {
			partners = append(partners, n.Name)
		}
		components = append(components, model.Component{
			Representative: scc[0].Name,
			Partners:       partners,
		})
	}
	return components
}

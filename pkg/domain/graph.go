package domain

// Graph is an indexed, read-only view over an ordered list of nodes.
// Dangling connection ids are tolerated: Node reports them as missing.
type Graph struct {
	nodes []Node
	index map[string]int
}

// NewGraph indexes nodes by id. When ids repeat, the first occurrence wins.
func NewGraph(nodes []Node) *Graph {
	g := &Graph{
		nodes: nodes,
		index: make(map[string]int, len(nodes)),
	}
	for i, n := range nodes {
		if _, dup := g.index[n.ID]; !dup {
			g.index[n.ID] = i
		}
	}
	return g
}

// Len returns the number of nodes, used as the progress denominator.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns the nodes in declaration order.
func (g *Graph) Nodes() []Node {
	return g.nodes
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Roots returns the entry points of the graph, in declaration order.
// A node is a root when nothing points at it, either through a Connections
// entry or through the target of a connection node. Connection nodes are
// edges and never roots. If no node qualifies, the first node is the sole root.
func (g *Graph) Roots() []Node {
	if len(g.nodes) == 0 {
		return nil
	}

	incoming := make(map[string]struct{})
	for _, n := range g.nodes {
		for _, c := range n.Connections {
			incoming[c] = struct{}{}
		}
		if n.Kind == ActionConnection {
			if target := n.StringParam(ParamTargetID, ""); target != "" {
				incoming[target] = struct{}{}
			}
		}
	}

	var roots []Node
	for _, n := range g.nodes {
		if n.Kind == ActionConnection {
			continue
		}
		if _, ok := incoming[n.ID]; !ok {
			roots = append(roots, n)
		}
	}
	if len(roots) == 0 {
		roots = []Node{g.nodes[0]}
	}
	return roots
}

// ConnectionsFrom returns the connection nodes whose source is sourceID,
// in declaration order.
func (g *Graph) ConnectionsFrom(sourceID string) []Node {
	var out []Node
	for _, n := range g.nodes {
		if n.Kind != ActionConnection {
			continue
		}
		if n.StringParam(ParamSourceID, "") == sourceID {
			out = append(out, n)
		}
	}
	return out
}

package hnsw

// Stats describes the structure of the graph.
type Stats struct {
	// Nodes is the total node count.
	Nodes int

	// MaxLevel is the highest level in use, -1 when empty.
	MaxLevel int

	// LevelCounts holds how many nodes have each level as their top level.
	LevelCounts []int

	// Connections is the total number of directed edges across all levels.
	Connections int

	// AvgConnections is Connections divided by Nodes, 0 when empty.
	AvgConnections float64
}

// Stats computes structural statistics by walking the node table.
func (h *Index) Stats() Stats {
	s := Stats{
		Nodes:    len(h.nodes),
		MaxLevel: h.maxLevel,
	}

	if len(h.nodes) == 0 {
		return s
	}

	s.LevelCounts = make([]int, h.maxLevel+1)

	for _, node := range h.nodes {
		s.LevelCounts[node.Layer]++
		for _, conns := range node.Connections {
			s.Connections += len(conns)
		}
	}

	s.AvgConnections = float64(s.Connections) / float64(s.Nodes)

	return s
}

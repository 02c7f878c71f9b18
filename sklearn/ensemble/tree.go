package ensemble

import "math"

// Node is one node of a fitted regression tree.
type Node struct {
	Value float64
	Count int
	Depth int

	IsLeaf        bool
	Feature       int
	Threshold     float64
	BinThreshold  uint8
	IsCategorical bool
	// LeftCategories flags codes routed left; other codes go right.
	LeftCategories []bool
	Gain           float64
	Left, Right    int
}

// Tree is a fitted regression tree stored as a flat node slice with
// the root at index 0.
type Tree struct {
	Nodes []Node
}

// NLeaves returns the number of leaves.
func (t *Tree) NLeaves() int {
	n := 0
	for _, node := range t.Nodes {
		if node.IsLeaf {
			n++
		}
	}
	return n
}

// Depth returns the maximum leaf depth.
func (t *Tree) Depth() int {
	d := 0
	for _, node := range t.Nodes {
		if node.IsLeaf && node.Depth > d {
			d = node.Depth
		}
	}
	return d
}

// PredictRow walks the tree on raw feature values.
func (t *Tree) PredictRow(row []float64) float64 {
	idx := 0
	for {
		node := &t.Nodes[idx]
		if node.IsLeaf {
			return node.Value
		}
		if goesLeft(node, row[node.Feature]) {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

func goesLeft(node *Node, v float64) bool {
	if !node.IsCategorical {
		return v <= node.Threshold
	}
	if v < 0 || v != math.Trunc(v) {
		return false
	}
	code := int(v)
	return code < len(node.LeftCategories) && node.LeftCategories[code]
}

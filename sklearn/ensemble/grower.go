package ensemble

import (
	"container/heap"
)

// GrowerParams controls the shape of a single tree.
type GrowerParams struct {
	MaxLeafNodes     int
	MaxDepth         int
	MinSamplesLeaf   int
	L2Regularization float64
	MinHessianToLeaf float64
	Shrinkage        float64
}

// growingNode is a node that may still be split.
type growingNode struct {
	id    int
	rows  []int
	depth int
	hist  Histogram
	split SplitInfo

	sumGrad, sumHess float64
}

// splitQueue is a max-heap on split gain. Ties pop the older node first.
type splitQueue []*growingNode

func (q splitQueue) Len() int { return len(q) }
func (q splitQueue) Less(i, j int) bool {
	if q[i].split.Gain != q[j].split.Gain {
		return q[i].split.Gain > q[j].split.Gain
	}
	return q[i].id < q[j].id
}
func (q splitQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *splitQueue) Push(x interface{}) { *q = append(*q, x.(*growingNode)) }
func (q *splitQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// TreeGrower grows one tree best-first: the leaf with the highest split
// gain is split next until MaxLeafNodes is reached or no leaf can be
// split. The smaller child histogram is built from data and the larger
// one is obtained by subtraction from the parent.
type TreeGrower struct {
	params  GrowerParams
	mapper  *BinMapper
	builder histogramBuilder
	finder  splitFinder

	tree   *Tree
	queue  splitQueue
	leaves int
}

// NewTreeGrower prepares a grower over binned data.
func NewTreeGrower(binned [][]uint8, mapper *BinMapper, gradients, hessians []float64, params GrowerParams) *TreeGrower {
	return &TreeGrower{
		params: params,
		mapper: mapper,
		builder: histogramBuilder{
			binned:    binned,
			nBins:     mapper.NBins,
			gradients: gradients,
			hessians:  hessians,
		},
		finder: splitFinder{
			categorical:      mapper.Categorical,
			l2:               params.L2Regularization,
			minSamplesLeaf:   params.MinSamplesLeaf,
			minHessianToLeaf: params.MinHessianToLeaf,
		},
	}
}

// Grow builds the tree on the given training rows.
func (g *TreeGrower) Grow(rows []int) *Tree {
	g.tree = &Tree{}
	g.queue = nil
	g.leaves = 1

	var sumGrad, sumHess float64
	for _, i := range rows {
		sumGrad += g.builder.gradients[i]
		sumHess += g.builder.hessians[i]
	}
	root := g.newNode(rows, 0, sumGrad, sumHess)
	root.hist = g.builder.build(rows)
	g.consider(root)

	maxLeaves := g.params.MaxLeafNodes
	for g.queue.Len() > 0 && (maxLeaves <= 0 || g.leaves < maxLeaves) {
		node := heap.Pop(&g.queue).(*growingNode)
		g.split(node)
	}
	g.queue = nil
	return g.tree
}

func (g *TreeGrower) newNode(rows []int, depth int, sumGrad, sumHess float64) *growingNode {
	id := len(g.tree.Nodes)
	g.tree.Nodes = append(g.tree.Nodes, Node{
		IsLeaf: true,
		Count:  len(rows),
		Depth:  depth,
		Value:  g.leafValue(sumGrad, sumHess),
		Left:   -1,
		Right:  -1,
	})
	return &growingNode{id: id, rows: rows, depth: depth, sumGrad: sumGrad, sumHess: sumHess}
}

func (g *TreeGrower) leafValue(sumGrad, sumHess float64) float64 {
	return -g.params.Shrinkage * sumGrad / (sumHess + g.params.L2Regularization + 1e-15)
}

// consider finds the split of node and queues it when one exists.
// Nodes that stay leaves release their histogram.
func (g *TreeGrower) consider(node *growingNode) {
	splittable := (g.params.MaxDepth <= 0 || node.depth < g.params.MaxDepth) &&
		len(node.rows) >= 2*g.params.MinSamplesLeaf
	if splittable {
		node.split = g.finder.findBest(node.hist, node.sumGrad, node.sumHess, len(node.rows))
	}
	if splittable && node.split.Valid() {
		heap.Push(&g.queue, node)
		return
	}
	node.hist = nil
}

func (g *TreeGrower) split(node *growingNode) {
	s := node.split
	col := g.builder.binned[s.Feature]
	left := make([]int, 0, s.LeftCount)
	right := make([]int, 0, s.RightCount)
	for _, i := range node.rows {
		b := col[i]
		var toLeft bool
		if s.IsCategorical {
			toLeft = s.LeftCategories[b]
		} else {
			toLeft = b <= s.BinThreshold
		}
		if toLeft {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	leftNode := g.newNode(left, node.depth+1, s.LeftGrad, s.LeftHess)
	rightNode := g.newNode(right, node.depth+1, s.RightGrad, s.RightHess)

	if len(left) <= len(right) {
		leftNode.hist = g.builder.build(left)
		rightNode.hist = subtract(node.hist, leftNode.hist)
	} else {
		rightNode.hist = g.builder.build(right)
		leftNode.hist = subtract(node.hist, rightNode.hist)
	}
	node.hist = nil

	parent := &g.tree.Nodes[node.id]
	parent.IsLeaf = false
	parent.Feature = s.Feature
	parent.Gain = s.Gain
	parent.IsCategorical = s.IsCategorical
	parent.LeftCategories = s.LeftCategories
	parent.BinThreshold = s.BinThreshold
	if !s.IsCategorical {
		parent.Threshold = g.mapper.Thresholds[s.Feature][s.BinThreshold]
	}
	parent.Left = leftNode.id
	parent.Right = rightNode.id
	g.leaves++

	g.consider(leftNode)
	g.consider(rightNode)
}

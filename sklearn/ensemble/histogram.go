package ensemble

import (
	"sort"

	"github.com/YuminosukeSato/cyclefeat/core/parallel"
)

// catSmooth is added to the hessian when ordering categories.
const catSmooth = 10.0

// HistogramBin accumulates gradient statistics of one bin.
type HistogramBin struct {
	SumGrad float64
	SumHess float64
	Count   int
}

// Histogram holds the bins of every feature for one node.
type Histogram [][]HistogramBin

// histogramBuilder builds node histograms over binned data.
type histogramBuilder struct {
	binned    [][]uint8
	nBins     []int
	gradients []float64
	hessians  []float64
}

// build computes the histograms of the given rows, features in parallel.
func (hb *histogramBuilder) build(rows []int) Histogram {
	hist := make(Histogram, len(hb.binned))
	parallel.Parallelize(len(hb.binned), func(start, end int) {
		for j := start; j < end; j++ {
			bins := make([]HistogramBin, hb.nBins[j])
			col := hb.binned[j]
			for _, i := range rows {
				b := &bins[col[i]]
				b.SumGrad += hb.gradients[i]
				b.SumHess += hb.hessians[i]
				b.Count++
			}
			hist[j] = bins
		}
	})
	return hist
}

// subtract returns parent - sibling.
func subtract(parent, sibling Histogram) Histogram {
	out := make(Histogram, len(parent))
	for j := range parent {
		bins := make([]HistogramBin, len(parent[j]))
		for b := range bins {
			bins[b] = HistogramBin{
				SumGrad: parent[j][b].SumGrad - sibling[j][b].SumGrad,
				SumHess: parent[j][b].SumHess - sibling[j][b].SumHess,
				Count:   parent[j][b].Count - sibling[j][b].Count,
			}
		}
		out[j] = bins
	}
	return out
}

// SplitInfo describes the best split of a node.
type SplitInfo struct {
	Feature       int
	Gain          float64
	BinThreshold  uint8
	IsCategorical bool
	// LeftCategories flags the category codes that go left.
	LeftCategories []bool

	LeftGrad, LeftHess   float64
	RightGrad, RightHess float64
	LeftCount            int
	RightCount           int
}

// Valid reports whether a split was found.
func (s SplitInfo) Valid() bool { return s.Gain > 0 }

type splitFinder struct {
	categorical      []bool
	l2               float64
	minSamplesLeaf   int
	minHessianToLeaf float64
}

func (sf *splitFinder) score(grad, hess float64) float64 {
	return grad * grad / (hess + sf.l2)
}

func (sf *splitFinder) gain(lg, lh, rg, rh, tg, th float64) float64 {
	return 0.5 * (sf.score(lg, lh) + sf.score(rg, rh) - sf.score(tg, th))
}

func (sf *splitFinder) admissible(lc, rc int, lh, rh float64) bool {
	return lc >= sf.minSamplesLeaf && rc >= sf.minSamplesLeaf &&
		lh >= sf.minHessianToLeaf && rh >= sf.minHessianToLeaf
}

// findBest scans every feature histogram in parallel and keeps the
// highest gain. Ties go to the lower feature index.
func (sf *splitFinder) findBest(hist Histogram, sumGrad, sumHess float64, count int) SplitInfo {
	best := make([]SplitInfo, len(hist))
	parallel.Parallelize(len(hist), func(start, end int) {
		for j := start; j < end; j++ {
			if j < len(sf.categorical) && sf.categorical[j] {
				best[j] = sf.categoricalSplit(j, hist[j], sumGrad, sumHess, count)
			} else {
				best[j] = sf.numericalSplit(j, hist[j], sumGrad, sumHess, count)
			}
		}
	})

	var out SplitInfo
	for _, s := range best {
		if s.Gain > out.Gain {
			out = s
		}
	}
	return out
}

func (sf *splitFinder) numericalSplit(j int, bins []HistogramBin, tg, th float64, count int) SplitInfo {
	best := SplitInfo{Feature: j}
	var lg, lh float64
	lc := 0
	for b := 0; b+1 < len(bins); b++ {
		lg += bins[b].SumGrad
		lh += bins[b].SumHess
		lc += bins[b].Count
		rg, rh, rc := tg-lg, th-lh, count-lc
		if !sf.admissible(lc, rc, lh, rh) {
			continue
		}
		if g := sf.gain(lg, lh, rg, rh, tg, th); g > best.Gain {
			best.Gain = g
			best.BinThreshold = uint8(b)
			best.LeftGrad, best.LeftHess, best.LeftCount = lg, lh, lc
			best.RightGrad, best.RightHess, best.RightCount = rg, rh, rc
		}
	}
	return best
}

// categoricalSplit orders the present categories by gradient/hessian
// ratio and scans prefixes of that order.
func (sf *splitFinder) categoricalSplit(j int, bins []HistogramBin, tg, th float64, count int) SplitInfo {
	best := SplitInfo{Feature: j, IsCategorical: true}

	type catInfo struct {
		code  int
		ratio float64
	}
	cats := make([]catInfo, 0, len(bins))
	for code, bin := range bins {
		if bin.Count == 0 {
			continue
		}
		cats = append(cats, catInfo{code: code, ratio: bin.SumGrad / (bin.SumHess + catSmooth)})
	}
	if len(cats) <= 1 {
		return best
	}
	sort.SliceStable(cats, func(a, b int) bool { return cats[a].ratio < cats[b].ratio })

	var lg, lh float64
	lc := 0
	bestPrefix := -1
	for k := 0; k+1 < len(cats); k++ {
		bin := bins[cats[k].code]
		lg += bin.SumGrad
		lh += bin.SumHess
		lc += bin.Count
		rg, rh, rc := tg-lg, th-lh, count-lc
		if !sf.admissible(lc, rc, lh, rh) {
			continue
		}
		if g := sf.gain(lg, lh, rg, rh, tg, th); g > best.Gain {
			best.Gain = g
			bestPrefix = k
			best.LeftGrad, best.LeftHess, best.LeftCount = lg, lh, lc
			best.RightGrad, best.RightHess, best.RightCount = rg, rh, rc
		}
	}
	if bestPrefix >= 0 {
		best.LeftCategories = make([]bool, len(bins))
		for k := 0; k <= bestPrefix; k++ {
			best.LeftCategories[cats[k].code] = true
		}
	}
	return best
}

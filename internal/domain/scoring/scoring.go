// Package scoring holds the pure fixed-point score math. All arithmetic is
// integer basis points (10000 = 1.00x); no floating point leaks into any
// settled amount.
package scoring

// Default scoring configuration constants.
const (
	// BaseMultiplier is 1.00x in basis points.
	BaseMultiplier = 10000

	// defaultGrowthRateBP is the per-band compound growth (2.5%).
	defaultGrowthRateBP = 250

	// defaultMaxTableBands bounds the precomputed table; growth past the
	// table edge is linear so the cost of a single lookup stays constant.
	defaultMaxTableBands = 64
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithGrowthRate sets the per-band growth rate in basis points.
func WithGrowthRate(bp int64) Option {
	return func(e *Engine) {
		if bp > 0 {
			e.growthRateBP = bp
		}
	}
}

// WithTableSize sets how many band counts are precomputed exactly.
func WithTableSize(n int) Option {
	return func(e *Engine) {
		if n > 1 {
			e.maxTableBands = n
		}
	}
}

// Engine computes multipliers and scores. It is stateless after
// construction and safe for concurrent use.
type Engine struct {
	growthRateBP  int64
	maxTableBands int
	table         []int64
}

// New creates an Engine and precomputes the multiplier table.
func New(opts ...Option) *Engine {
	e := &Engine{
		growthRateBP:  defaultGrowthRateBP,
		maxTableBands: defaultMaxTableBands,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.table = buildTable(e.growthRateBP, e.maxTableBands)
	return e
}

// buildTable compounds the growth rate in basis points with rounding at
// each step, matching the settlement-layer reference vectors
// (table[9] == 12801 at 2.5% growth).
func buildTable(growthBP int64, size int) []int64 {
	table := make([]int64, size)
	m := int64(BaseMultiplier)
	for i := range size {
		// One compounding step per band, applied before the band is
		// recorded, so index 0 already carries one growth step.
		m = (m*(BaseMultiplier+growthBP) + BaseMultiplier/2) / BaseMultiplier
		table[i] = m
	}
	return table
}

// MultiplierFor returns the multiplier in basis points after bands
// risk-taking steps; zero bands is 1.00x. Past the precomputed table the
// growth continues linearly at the table-edge slope.
func (e *Engine) MultiplierFor(bands int) int64 {
	if bands <= 0 {
		return BaseMultiplier
	}
	if bands < len(e.table) {
		return e.table[bands]
	}
	last := len(e.table) - 1
	slope := e.table[last] - e.table[last-1]
	return e.table[last] + int64(bands-last)*slope
}

// ScoreFor converts a band count and a multiplier to a settled score,
// flooring toward zero.
func (e *Engine) ScoreFor(bands int, multiplier int64) int64 {
	if bands <= 0 || multiplier <= 0 {
		return 0
	}
	return int64(bands) * multiplier / 100
}

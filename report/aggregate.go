package report

// LayerOutcome pairs a layer's result with the number of records the layer
// holds, overlapping or not.
type LayerOutcome struct {
	Result      BaseResult
	RecordCount int
}

// Aggregate is the cross-layer sum of a run.
type Aggregate struct {
	PerLayer     []BaseResult
	Items        []OverlapItem
	NotEvaluated int
	TotalOverlap int
	Summary      map[string]int
}

// Combine merges per-layer outcomes in the order given.
func Combine(outcomes []LayerOutcome) Aggregate {
	agg := Aggregate{
		PerLayer: make([]BaseResult, 0, len(outcomes)),
		Items:    []OverlapItem{},
		Summary:  make(map[string]int, len(outcomes)),
	}
	for _, o := range outcomes {
		base := NewBaseResult(o.Result.Name, o.Result.Items, o.Result.NotEvaluated)
		agg.PerLayer = append(agg.PerLayer, base)
		agg.Items = append(agg.Items, base.Items...)
		agg.NotEvaluated += base.NotEvaluated
		agg.TotalOverlap += base.TotalWithOverlap
		agg.Summary[base.Name] += o.RecordCount
	}
	return agg
}

// Build shapes an aggregate and the target area into the final report.
func Build(agg Aggregate, areaHa *float64) *FinalResult {
	perLayer := agg.PerLayer
	if perLayer == nil {
		perLayer = []BaseResult{}
	}
	items := agg.Items
	if items == nil {
		items = []OverlapItem{}
	}
	summary := agg.Summary
	if summary == nil {
		summary = map[string]int{}
	}
	return &FinalResult{
		PerLayer:     perLayer,
		Items:        items,
		NotEvaluated: agg.NotEvaluated,
		TotalOverlap: agg.TotalOverlap,
		AreaHa:       areaHa,
		Summary:      summary,
	}
}

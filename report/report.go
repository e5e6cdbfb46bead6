// Package report holds the result shapes handed to the presentation layer.
// JSON keys are a stable contract.
package report

import "encoding/json"

// OverlapItem is one finding. Attributes are flattened next to "area" when
// encoded.
type OverlapItem struct {
	AreaHa     float64
	Layer      string
	Attributes map[string]any
}

func (i OverlapItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(i.Attributes)+1)
	for k, v := range i.Attributes {
		out[k] = v
	}
	out["area"] = i.AreaHa
	return json.Marshal(out)
}

func (i *OverlapItem) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if area, ok := raw["area"].(float64); ok {
		i.AreaHa = area
	}
	delete(raw, "area")
	i.Attributes = raw
	return nil
}

// BaseResult is the outcome of one layer.
type BaseResult struct {
	Name             string        `json:"nome_base"`
	Items            []OverlapItem `json:"areas_encontradas"`
	NotEvaluated     int           `json:"quantidade_nao_avaliados"`
	TotalWithOverlap int           `json:"total_areas_com_sobreposicao"`
}

// NewBaseResult keeps TotalWithOverlap equal to len(items).
func NewBaseResult(name string, items []OverlapItem, notEvaluated int) BaseResult {
	if items == nil {
		items = []OverlapItem{}
	}
	return BaseResult{
		Name:             name,
		Items:            items,
		NotEvaluated:     notEvaluated,
		TotalWithOverlap: len(items),
	}
}

// FinalResult is the whole-run report.
type FinalResult struct {
	PerLayer     []BaseResult   `json:"resultados_por_base"`
	Items        []OverlapItem  `json:"areas_encontradas"`
	NotEvaluated int            `json:"quantidade_nao_avaliados"`
	TotalOverlap int            `json:"total_areas_com_sobreposicao"`
	AreaHa       *float64       `json:"tamanho_area"`
	Summary      map[string]int `json:"resumo_bases"`
}

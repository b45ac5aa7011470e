package domain

type DetailRow struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Filename   string  `json:"filename"`
	Page       *int    `json:"page,omitempty"`
	Confidence float64 `json:"confidence"`
}

// DetailFilter narrows the flattened detections. An empty Categories
// selection means every category is shown.
type DetailFilter struct {
	Type       string   `json:"type,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

type DetailQuery struct {
	Filter   DetailFilter `json:"filter"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// WithFilter swaps the filter and resets paging when it actually changed.
func (q DetailQuery) WithFilter(f DetailFilter) DetailQuery {
	if !q.Filter.Equal(f) {
		q.Page = 1
	}
	q.Filter = f
	return q
}

// Equal reports whether both filters select the same rows.
func (a DetailFilter) Equal(b DetailFilter) bool {
	if a.Type != b.Type || len(a.Categories) != len(b.Categories) {
		return false
	}
	for i := range a.Categories {
		if a.Categories[i] != b.Categories[i] {
			return false
		}
	}
	return true
}

type DetailPage struct {
	Rows       []DetailRow `json:"rows"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalRows  int         `json:"total_rows"`
	TotalPages int         `json:"total_pages"`
	Empty      bool        `json:"empty"`
}

// DetectionReport is the unpaged, filtered detail set plus risk summary used
// for spreadsheet exports.
type DetectionReport struct {
	BatchID string         `json:"batch_id"`
	Rows    []DetailRow    `json:"rows"`
	Risk    RiskAssessment `json:"risk"`
}

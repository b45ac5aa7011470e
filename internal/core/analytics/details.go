package analytics

import (
	"strings"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

const DefaultPageSize = 20

// Flatten turns per-file detections into one row list, in file order.
func Flatten(files []domain.FileRecord) []domain.DetailRow {
	rows := make([]domain.DetailRow, 0)
	for _, file := range files {
		for _, d := range file.PIIs {
			rows = append(rows, domain.DetailRow{
				Type:       d.Type,
				Value:      detectionValue(d),
				Filename:   file.Filename,
				Page:       d.Page,
				Confidence: detectionConfidence(d),
			})
		}
	}
	return rows
}

func detectionValue(d domain.Detection) string {
	for _, v := range []string{d.Value, d.Match, d.Normalized} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return "N/A"
}

func detectionConfidence(d domain.Detection) float64 {
	if d.Confidence == nil {
		return domain.DefaultConfidence
	}
	return *d.Confidence
}

// ToggleType implements the click-to-filter behavior of the type legend:
// choosing the active type again clears the filter.
func ToggleType(current, selected string) string {
	if selected == current {
		return ""
	}
	return selected
}

// Filter applies the single-type filter and the category selection.
// An empty category selection shows everything.
func Filter(rows []domain.DetailRow, f domain.DetailFilter) []domain.DetailRow {
	var categories map[string]struct{}
	if len(f.Categories) > 0 {
		categories = make(map[string]struct{}, len(f.Categories))
		for _, c := range f.Categories {
			categories[c] = struct{}{}
		}
	}

	out := make([]domain.DetailRow, 0, len(rows))
	for _, row := range rows {
		if f.Type != "" && row.Type != f.Type {
			continue
		}
		if categories != nil {
			if _, ok := categories[row.Type]; !ok {
				continue
			}
		}
		out = append(out, row)
	}
	return out
}

// Paginate slices rows for a 1-based page, clamping the page into range.
func Paginate(rows []domain.DetailRow, page, pageSize int) domain.DetailPage {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := len(rows)
	totalPages := (total + pageSize - 1) / pageSize
	page = clampPage(page, totalPages)

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	pageRows := make([]domain.DetailRow, end-start)
	copy(pageRows, rows[start:end])

	return domain.DetailPage{
		Rows:       pageRows,
		Page:       page,
		PageSize:   pageSize,
		TotalRows:  total,
		TotalPages: totalPages,
		Empty:      total == 0,
	}
}

func clampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Details runs flatten, filter and paginate for a query.
func Details(files []domain.FileRecord, q domain.DetailQuery) domain.DetailPage {
	return Paginate(Filter(Flatten(files), q.Filter), q.Page, q.PageSize)
}

package httpadapter

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
	"github.com/kirillkom/pii-sentinel/internal/infrastructure/report/xlsx"
)

func (rt *Router) listBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := rt.svc.Batches.ListBatches(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"batches": batches})
}

func (rt *Router) deleteBatch(w http.ResponseWriter, r *http.Request) {
	if err := rt.svc.Batches.DeleteBatch(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) getAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := rt.svc.Analysis.Analysis(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (rt *Router) getOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := rt.svc.Analysis.Overview(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (rt *Router) listDetections(w http.ResponseWriter, r *http.Request) {
	filter, err := bindDetailFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var page, pageSize *int
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "page", query, &page); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "bind page", err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "page_size", query, &pageSize); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "bind page_size", err))
		return
	}

	detailQuery := domain.DetailQuery{Filter: filter, Page: 1}
	if page != nil {
		detailQuery.Page = *page
	}
	if pageSize != nil {
		detailQuery.PageSize = *pageSize
	}

	result, err := rt.svc.Analysis.Details(r.Context(), r.PathValue("id"), detailQuery)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) exportDetectionsXLSX(w http.ResponseWriter, r *http.Request) {
	filter, err := bindDetailFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := rt.svc.Analysis.Report(r.Context(), r.PathValue("id"), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := xlsx.Write(&buf, report.BatchID, report.Rows, report.Risk); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="detections-%s.xlsx"`, sanitizeHeaderToken(report.BatchID)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func bindDetailFilter(r *http.Request) (domain.DetailFilter, error) {
	var typ *string
	var categories *[]string
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "type", query, &typ); err != nil {
		return domain.DetailFilter{}, domain.WrapError(domain.ErrInvalidInput, "bind type", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "categories", query, &categories); err != nil {
		return domain.DetailFilter{}, domain.WrapError(domain.ErrInvalidInput, "bind categories", err)
	}

	var filter domain.DetailFilter
	if typ != nil {
		filter.Type = *typ
	}
	if categories != nil {
		filter.Categories = *categories
	}
	return filter, nil
}

func sanitizeHeaderToken(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "batch"
	}
	return string(out)
}

package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/kirillkom/pii-sentinel/internal/core/analytics"
	"github.com/kirillkom/pii-sentinel/internal/core/domain"
	"github.com/kirillkom/pii-sentinel/internal/core/ports"
)

// Selected is the analysis held for the currently selected batch.
type Selected struct {
	BatchID  string
	Analysis *domain.BatchAnalysis
	Overview domain.AnalysisOverview
}

// Selection tracks one selected batch at a time. Every Select bumps a
// generation and cancels the previous fetch; results from an older
// generation are discarded.
type Selection struct {
	reader  ports.AnalysisReader
	weights analytics.WeightTable

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	target     string
	current    *Selected
	query      domain.DetailQuery
}

// DetailChange is one interaction with the detail view of the selection.
// Zero fields keep the held value. Type toggles: naming the active type
// again clears the type filter. Page is ignored when the filter changed,
// since a changed filter always starts again from page 1.
type DetailChange struct {
	Type          string
	Categories    []string
	SetCategories bool
	Page          int
	PageSize      int
}

func NewSelection(reader ports.AnalysisReader, weights analytics.WeightTable) *Selection {
	if weights == nil {
		weights = analytics.DefaultWeights()
	}
	return &Selection{reader: reader, weights: weights}
}

func (s *Selection) Select(ctx context.Context, batchID string) (*Selected, error) {
	if err := validateBatchID(batchID); err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	s.cancel = cancel
	s.target = batchID
	s.mu.Unlock()

	analysis, err := s.reader.Analysis(fetchCtx, batchID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil, domain.WrapError(domain.ErrStaleSelection, "select batch", fmt.Errorf("batch_id=%s", batchID))
	}
	s.cancel = nil
	if err != nil {
		s.current = nil
		return nil, err
	}

	s.current = &Selected{
		BatchID:  batchID,
		Analysis: analysis,
		Overview: BuildOverview(analysis, s.weights),
	}
	s.query = domain.DetailQuery{Page: 1}
	return s.current, nil
}

// Current returns the held selection or nil.
func (s *Selection) Current() *Selected {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Clear drops the selection and invalidates any fetch still in flight.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// Forget clears the selection when it holds, or is fetching, batchID. It
// reports whether anything was dropped.
func (s *Selection) Forget(batchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target == "" || s.target != batchID {
		return false
	}
	s.clearLocked()
	return true
}

func (s *Selection) clearLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.target = ""
	s.current = nil
	s.query = domain.DetailQuery{}
}

// Details applies change to the held detail query and pages through the
// held analysis without refetching.
func (s *Selection) Details(change DetailChange) (domain.DetailPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.DetailPage{}, domain.WrapError(domain.ErrInvalidInput, "selection details", fmt.Errorf("no batch selected"))
	}

	filter := s.query.Filter
	if change.Type != "" {
		filter.Type = analytics.ToggleType(filter.Type, change.Type)
	}
	if change.SetCategories {
		filter.Categories = append([]string(nil), change.Categories...)
	}
	query := s.query.WithFilter(filter)
	if change.PageSize > 0 {
		query.PageSize = change.PageSize
	}
	if change.Page > 0 && filter.Equal(s.query.Filter) {
		query.Page = change.Page
	}

	page := analytics.Details(s.current.Analysis.Files, query)
	query.Page = page.Page
	query.PageSize = page.PageSize
	s.query = query
	return page, nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/pii-sentinel/internal/core/analytics"
	"github.com/kirillkom/pii-sentinel/internal/core/domain"
	"github.com/kirillkom/pii-sentinel/internal/core/ports"
)

// AnalysisService serves batch listings and the analytics derived from a
// batch analysis. Analyses are fetched fresh on every call.
type AnalysisService struct {
	api      ports.SentinelAPI
	weights  analytics.WeightTable
	pageSize int
	recorder ports.RiskRecorder
}

func NewAnalysisService(
	api ports.SentinelAPI,
	weights analytics.WeightTable,
	pageSize int,
	recorder ports.RiskRecorder,
) *AnalysisService {
	if weights == nil {
		weights = analytics.DefaultWeights()
	}
	if pageSize <= 0 {
		pageSize = analytics.DefaultPageSize
	}
	return &AnalysisService{
		api:      api,
		weights:  weights,
		pageSize: pageSize,
		recorder: recorder,
	}
}

func (s *AnalysisService) ListBatches(ctx context.Context) ([]domain.BatchSummary, error) {
	batches, err := s.api.ListBatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	if batches == nil {
		batches = []domain.BatchSummary{}
	}
	return batches, nil
}

func (s *AnalysisService) DeleteBatch(ctx context.Context, batchID string) error {
	if err := validateBatchID(batchID); err != nil {
		return err
	}
	if err := s.api.DeleteBatch(ctx, batchID); err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return nil
}

func (s *AnalysisService) Analysis(ctx context.Context, batchID string) (*domain.BatchAnalysis, error) {
	if err := validateBatchID(batchID); err != nil {
		return nil, err
	}
	analysis, err := s.api.GetAnalysis(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("fetch analysis: %w", err)
	}
	if analysis.BatchID == "" {
		analysis.BatchID = batchID
	}
	return analysis, nil
}

func (s *AnalysisService) Overview(ctx context.Context, batchID string) (*domain.AnalysisOverview, error) {
	analysis, err := s.Analysis(ctx, batchID)
	if err != nil {
		return nil, err
	}
	overview := BuildOverview(analysis, s.weights)
	if s.recorder != nil {
		s.recorder.RecordRiskAssessment(overview.Risk.Level)
	}
	return &overview, nil
}

func (s *AnalysisService) Details(ctx context.Context, batchID string, query domain.DetailQuery) (*domain.DetailPage, error) {
	analysis, err := s.Analysis(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if query.PageSize <= 0 {
		query.PageSize = s.pageSize
	}
	page := analytics.Details(analysis.Files, query)
	return &page, nil
}

// Report returns every detection matching filter together with the batch
// risk summary.
func (s *AnalysisService) Report(ctx context.Context, batchID string, filter domain.DetailFilter) (*domain.DetectionReport, error) {
	analysis, err := s.Analysis(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return &domain.DetectionReport{
		BatchID: analysis.BatchID,
		Rows:    analytics.Filter(analytics.Flatten(analysis.Files), filter),
		Risk:    analytics.Assess(analysis.Stats.Breakdown, s.weights),
	}, nil
}

// Weights exposes the active weight table for offline renderers.
func (s *AnalysisService) Weights() analytics.WeightTable {
	return s.weights
}

// BuildOverview derives the dashboard view of an analysis.
func BuildOverview(analysis *domain.BatchAnalysis, weights analytics.WeightTable) domain.AnalysisOverview {
	breakdown := analysis.Stats.Breakdown
	return domain.AnalysisOverview{
		BatchID:      analysis.BatchID,
		FileCount:    len(analysis.Files),
		TotalPIIs:    analysis.Stats.PIIs,
		Risk:         analytics.Assess(breakdown, weights),
		Distribution: analytics.Distribution(breakdown),
		Charts:       analytics.ShapeCharts(breakdown),
	}
}

func validateBatchID(batchID string) error {
	if strings.TrimSpace(batchID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate batch id", errors.New("batch id is required"))
	}
	return nil
}

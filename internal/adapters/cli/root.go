// Package cli implements sentinelctl, an offline renderer for batch
// analyses read from a file or fetched from the detection API.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kirillkom/pii-sentinel/internal/bootstrap"
	"github.com/kirillkom/pii-sentinel/internal/config"
	"github.com/kirillkom/pii-sentinel/internal/core/analytics"
	"github.com/kirillkom/pii-sentinel/internal/core/domain"
	"github.com/kirillkom/pii-sentinel/internal/core/usecase"
	"github.com/kirillkom/pii-sentinel/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/pii-sentinel/internal/observability/logging"
)

// AnalysisSource fetches a batch analysis by id.
type AnalysisSource interface {
	GetAnalysis(ctx context.Context, batchID string) (*domain.BatchAnalysis, error)
}

type options struct {
	file        string
	batch       string
	weightsFile string
	asJSON      bool

	newSource func() AnalysisSource
}

// NewRootCommand builds sentinelctl with the detection API as the source
// for --batch.
func NewRootCommand() *cobra.Command {
	return newRootCommand(func() AnalysisSource {
		return bootstrap.NewUpstream(config.Load(), logging.NewJSONLoggerTo(os.Stderr, "sentinelctl", "warn"))
	})
}

func newRootCommand(newSource func() AnalysisSource) *cobra.Command {
	opts := &options{newSource: newSource}

	root := &cobra.Command{
		Use:           "sentinelctl",
		Short:         "Render risk, charts and detections for a PII batch",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.file, "file", "", "read the batch analysis from a JSON file")
	root.PersistentFlags().StringVar(&opts.batch, "batch", "", "fetch the batch analysis from the detection API")
	root.PersistentFlags().StringVar(&opts.weightsFile, "weights", os.Getenv("RISK_WEIGHTS_FILE"), "YAML file with risk weight overrides")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")

	root.AddCommand(
		newRiskCommand(opts),
		newChartsCommand(opts),
		newDetailsCommand(opts),
		newExportXLSXCommand(opts),
	)
	return root
}

func (o *options) load(ctx context.Context) (*domain.BatchAnalysis, analytics.WeightTable, error) {
	weights, err := bootstrap.LoadWeights(o.weightsFile)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case o.file != "" && o.batch != "":
		return nil, nil, errors.New("use either --file or --batch, not both")
	case o.file != "":
		analysis, err := readAnalysisFile(o.file)
		if err != nil {
			return nil, nil, err
		}
		return analysis, weights, nil
	case o.batch != "":
		analysis, err := o.newSource().GetAnalysis(ctx, o.batch)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch batch %s: %w", o.batch, err)
		}
		if analysis.BatchID == "" {
			analysis.BatchID = o.batch
		}
		return analysis, weights, nil
	default:
		return nil, nil, errors.New("one of --file or --batch is required")
	}
}

func readAnalysisFile(path string) (*domain.BatchAnalysis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open analysis: %w", err)
	}
	defer f.Close()

	var analysis domain.BatchAnalysis
	if err := json.NewDecoder(f).Decode(&analysis); err != nil {
		return nil, fmt.Errorf("decode analysis %s: %w", path, err)
	}
	return &analysis, nil
}

func newRiskCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "risk",
		Short: "Print the weighted risk assessment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			analysis, weights, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			risk := usecase.BuildOverview(analysis, weights).Risk
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), risk)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Level: %s (%.1f%%)\n", risk.Level, risk.RiskPercentage)
			fmt.Fprintf(out, "Score: %d / %d\n", risk.TotalRiskScore, risk.MaxPossibleRisk)
			fmt.Fprintf(out, "Severity: critical=%d high=%d medium=%d low=%d\n",
				risk.Severity.Critical, risk.Severity.High, risk.Severity.Medium, risk.Severity.Low)
			if len(risk.TopRisks) > 0 {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TYPE\tCOUNT\tWEIGHT\tRISK")
				for _, r := range risk.TopRisks {
					fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", r.Type, r.Count, r.Weight, r.Risk)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			for _, rec := range risk.Recommendations {
				fmt.Fprintf(out, "- %s\n", rec)
			}
			return nil
		},
	}
}

func newChartsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "charts",
		Short: "Print distribution and chart series",
		RunE: func(cmd *cobra.Command, _ []string) error {
			analysis, weights, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			overview := usecase.BuildOverview(analysis, weights)
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"distribution": overview.Distribution,
					"charts":       overview.Charts,
				})
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LABEL\tCOUNT\tCOLOR")
			for _, p := range overview.Charts.Primary {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", p.FullLabel, p.Count, p.Color)
			}
			for _, p := range overview.Charts.Secondary {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", p.FullLabel, p.Count, p.Color)
			}
			return tw.Flush()
		},
	}
}

func newDetailsCommand(opts *options) *cobra.Command {
	var (
		typ        string
		categories []string
		page       int
		pageSize   int
	)
	cmd := &cobra.Command{
		Use:   "details",
		Short: "Print one page of detections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			analysis, _, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			result := analytics.Details(analysis.Files, domain.DetailQuery{
				Filter:   domain.DetailFilter{Type: typ, Categories: categories},
				Page:     page,
				PageSize: pageSize,
			})
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			if result.Empty {
				fmt.Fprintln(out, "No detections.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tVALUE\tFILE\tPAGE\tCONFIDENCE")
			for _, row := range result.Rows {
				pageLabel := "-"
				if row.Page != nil {
					pageLabel = fmt.Sprint(*row.Page + 1)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.0f%%\n", row.Type, row.Value, row.Filename, pageLabel, row.Confidence*100)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Page %d of %d (%d rows)\n", result.Page, result.TotalPages, result.TotalRows)
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "show only this PII type")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "keep these types; repeatable, empty keeps all")
	cmd.Flags().IntVar(&page, "page", 1, "1-based page")
	cmd.Flags().IntVar(&pageSize, "page-size", analytics.DefaultPageSize, "rows per page")
	return cmd
}

func newExportXLSXCommand(opts *options) *cobra.Command {
	var (
		output     string
		typ        string
		categories []string
	)
	cmd := &cobra.Command{
		Use:   "export-xlsx",
		Short: "Write detections and the risk summary to a spreadsheet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			analysis, weights, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			rows := analytics.Filter(analytics.Flatten(analysis.Files), domain.DetailFilter{Type: typ, Categories: categories})
			risk := analytics.Assess(analysis.Stats.Breakdown, weights)

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := xlsx.Write(f, analysis.BatchID, rows, risk); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d detections to %s\n", len(rows), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "detections.xlsx", "spreadsheet path")
	cmd.Flags().StringVar(&typ, "type", "", "export only this PII type")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "keep these types; repeatable, empty keeps all")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

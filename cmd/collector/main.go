// Command collector queries the reporting API once and writes the result as
// JSON or YAML.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/godilite/report-collector/internal/app"
	"github.com/godilite/report-collector/internal/collector"
	"github.com/godilite/report-collector/internal/config"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type globalFlags struct {
	format string
	out    string
}

func main() {
	_ = godotenv.Load(".env")

	var flags globalFlags
	rootCmd := &cobra.Command{
		Use:           "collector",
		Short:         "Collect assessment reports and heat maps from the reporting API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.format, "format", "f", "json", "output format: json or yaml")
	rootCmd.PersistentFlags().StringVarP(&flags.out, "out", "o", "", "output file (default stdout)")

	rootCmd.AddCommand(runCmd(&flags))
	rootCmd.AddCommand(heatMapCmd(&flags))
	rootCmd.AddCommand(resolveCmd(&flags))
	rootCmd.AddCommand(commonReportCmd(&flags))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp builds the application for one command and tears it down afterwards.
func withApp(flags *globalFlags, fn func(ctx context.Context, a *app.App) (any, error)) error {
	enc, err := newEncoder(flags.format)
	if err != nil {
		return err
	}

	cfg := config.LoadFromEnv()
	logger, err := config.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	a, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("close failed", zap.Error(cerr))
		}
	}()

	v, err := fn(ctx, a)
	if err != nil || v == nil {
		return err
	}

	return writeOutput(flags.out, enc, v)
}

func runCmd(flags *globalFlags) *cobra.Command {
	var (
		names      []string
		skipCommon bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the assessment index, common groups and common reports",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(flags, func(ctx context.Context, a *app.App) (any, error) {
				res, err := a.RunOnce(ctx, collector.RunOptions{
					AssessmentNames:   splitNames(strings.Join(names, ",")),
					SkipCommonReports: skipCommon,
				})
				if err != nil {
					return nil, err
				}
				ds, ok := res.Get()
				if !ok {
					fmt.Fprintln(os.Stderr, "reporting API returned no reports")
					return nil, nil
				}
				return ds, nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&names, "assessment", "a", nil, "assessment names to build common reports for (default all)")
	cmd.Flags().BoolVar(&skipCommon, "skip-common", false, "only build the assessment index and common groups")
	return cmd
}

func heatMapCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "heatmap [survey-id]",
		Short: "Fetch the heat map of one survey",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *app.App) (any, error) {
				return a.Collector().HeatMap(ctx, args[0])
			})
		},
	}
}

func resolveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [assessment-type] [assessment-name] [org-unit-name]",
		Short: "Look up the survey id of one report",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *app.App) (any, error) {
				res, err := a.Collector().ResolveSurveyID(ctx, args[0], args[1], args[2])
				if err != nil {
					return nil, err
				}
				id, ok := res.Get()
				if !ok {
					return nil, fmt.Errorf("no report for %s / %s / %s", args[0], args[1], args[2])
				}
				return map[string]string{"survey_id": id}, nil
			})
		},
	}
}

func commonReportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "common-report [assessment-name]",
		Short: "Build the cross-type heat map for one assessment name",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *app.App) (any, error) {
				idx, err := a.Collector().CollectIndex(ctx)
				if err != nil {
					return nil, err
				}
				index, ok := idx.Get()
				if !ok {
					return nil, fmt.Errorf("reporting API returned no reports")
				}
				res, err := a.Collector().CommonReport(ctx, args[0], collector.BuildCommonGroups(index))
				if err != nil {
					return nil, err
				}
				report, ok := res.Get()
				if !ok {
					return nil, fmt.Errorf("no assessment named %q", args[0])
				}
				return report, nil
			})
		},
	}
}

func splitNames(s string) []string {
	var names []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

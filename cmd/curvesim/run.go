// cmd/curvesim/run.go
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/export"
	"github.com/rovshanmuradov/pumpcurve/internal/logger"
	"github.com/rovshanmuradov/pumpcurve/internal/scenario"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		exportDir string
		format    string
		tape      string
		noExport  bool
	)

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Replay a scenario and export its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sc, err := scenario.NewLoader(a.logger).LoadYAML(args[0])
			if err != nil {
				return err
			}

			runner := scenario.NewRunner(a.cfg, a.logger)
			if tape != "" {
				runner.WithTape(tape)
			}
			opLogger := a.log.WithOperation("run")
			report, err := runner.Run(ctx, sc)
			if err != nil {
				return fmt.Errorf("scenario %q: %w", sc.Name, err)
			}
			printReport(cmd, report)

			if noExport {
				return nil
			}
			if exportDir == "" {
				exportDir = a.cfg.Export.Dir
			}
			if format == "" {
				format = a.cfg.Export.Format
			}
			path, err := export.NewExporter(a.logger).Export(report.Records, export.ExportOptions{
				Format:    export.ExportFormat(format),
				OutputDir: exportDir,
				Prefix:    sc.Name,
			})
			if err != nil {
				return err
			}
			opLogger.Info("Run exported", zap.String("run_id", report.RunID), zap.String("file", path))
			fmt.Fprintf(cmd.OutOrStdout(), "\nevents exported to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&exportDir, "export-dir", "", "directory for the event export (default export.dir)")
	cmd.Flags().StringVar(&format, "format", "", "export format: csv or json (default export.format)")
	cmd.Flags().StringVar(&tape, "tape", "", "append executed swaps to this CSV file")
	cmd.Flags().BoolVar(&noExport, "no-export", false, "skip the event export")
	return cmd
}

func printReport(cmd *cobra.Command, report *scenario.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: scenario %q, %d steps, %d events\n\n",
		report.RunID, report.Scenario, len(report.Steps), len(report.Records))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tACTION\tACTOR\tMARKET\tOUTPUT\tEXPECTED ERROR")
	for _, s := range report.Steps {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n", s.Index, s.Action, s.Actor, s.Market, s.Output, s.Err)
	}
	w.Flush()

	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MARKET\tMINT\tSTATE\tBASE\tQUOTE\tPRICE\tPROGRESS")
	for _, m := range report.Markets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			m.Name, logger.ShortenAddress(m.Mint.String()), m.State,
			m.BaseReserves, m.QuoteReserves, m.SpotPrice, m.Progress)
	}
	w.Flush()
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/tidyrules/internal/app"
	"github.com/fenilsonani/tidyrules/internal/cleaner"
	"github.com/fenilsonani/tidyrules/internal/reporter"
	"github.com/fenilsonani/tidyrules/internal/scanner"
	"github.com/fenilsonani/tidyrules/internal/ui"
	"github.com/fenilsonani/tidyrules/pkg/utils"
)

var (
	scanLocations []string
	scanDelete    bool
	scanFile      string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the enabled locations for problem entries",
	Long: `Scans every enabled location (or the ones named with --location) and reports
what was found. With --delete an interactive selection follows the scan and the
confirmed entries are deleted permanently.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tty := ui.IsTerminal(os.Stdout)
		if scanDelete && !tty {
			return fmt.Errorf("--delete needs an interactive terminal")
		}

		a, err := buildApp(scanDelete)
		if err != nil {
			return err
		}
		defer a.Close()

		locs, err := selectLocations(a, scanLocations)
		if err != nil {
			return err
		}
		if len(locs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No enabled scan locations. Add one with 'tidyrules locations add'.")
			return nil
		}

		var result *scanner.ScanResult
		var selected []scanner.ProblemEntry
		confirmed := false

		useTUI := tty && (outputFmt == string(reporter.FormatSummary) || outputFmt == string(reporter.FormatTable))
		if useTUI || scanDelete {
			outcome, err := ui.RunInteractive(a.Orchestrator, a.Progress, locs, scanDelete)
			if err != nil {
				return err
			}
			result, selected, confirmed = outcome.Result, outcome.Selected, outcome.Confirmed
		} else {
			result, err = ui.NewPlainProgress(cmd.ErrOrStderr()).Run(a.Orchestrator, a.Progress, locs)
			if err != nil {
				return err
			}
		}
		if result == nil {
			result = &scanner.ScanResult{}
		}

		if scanFile != "" {
			format, err := reporter.ParseFormat(outputFmt)
			if err != nil {
				return err
			}
			if err := reporter.SaveToFile(result, scanFile, format); err != nil {
				return fmt.Errorf("failed to save report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report saved to: %s\n", scanFile)
		} else if !confirmed {
			rptr, err := newReporter(cmd)
			if err != nil {
				return err
			}
			if err := rptr.Report(result); err != nil {
				return fmt.Errorf("failed to generate report: %w", err)
			}
		}

		if !confirmed {
			return nil
		}
		return deleteSelected(cmd, a, selected)
	},
}

func init() {
	scanCmd.Flags().StringSliceVarP(&scanLocations, "location", "l", nil, "scan only these location ids")
	scanCmd.Flags().BoolVar(&scanDelete, "delete", false, "select and delete entries after the scan")
	scanCmd.Flags().StringVar(&scanFile, "file", "", "save the report to a file")
}

// selectLocations returns the enabled locations, or exactly the named ones
func selectLocations(a *app.App, ids []string) ([]scanner.ScanLocation, error) {
	if len(ids) == 0 {
		return a.Locations.Enabled(), nil
	}

	var out []scanner.ScanLocation
	for _, id := range ids {
		loc, ok := a.Locations.Location(id)
		if !ok {
			return nil, fmt.Errorf("unknown location %q", id)
		}
		out = append(out, loc)
	}
	return out, nil
}

func deleteSelected(cmd *cobra.Command, a *app.App, entries []scanner.ProblemEntry) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Deleting %d entries...\n", len(entries))

	res := a.Executor.DeleteEntries(ctx, entries)

	fmt.Fprintf(out, "\n📊 Cleanup Complete!\n")
	fmt.Fprintf(out, "✅ Successfully deleted: %d entries (%s)\n", len(res.Deleted), utils.FormatBytes(res.Freed))
	if res.Elevated > 0 {
		fmt.Fprintf(out, "🔐 Used elevated permissions: %d entries\n", res.Elevated)
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintf(out, "⚠️  Skipped: %d entries already gone\n", len(res.Skipped))
	}
	if res.Cancelled {
		fmt.Fprintln(out, "Deletion was interrupted.")
	}
	if len(res.Failed) > 0 {
		fmt.Fprintf(out, "\n%s", cleaner.FormatErrorSummary(res.Failed))
		for _, e := range res.Failed {
			fmt.Fprintf(out, "   %s\n", e.UserMessage())
		}
	}
	return nil
}

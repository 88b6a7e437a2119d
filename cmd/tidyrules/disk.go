package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/tidyrules/internal/diskusage"
	"github.com/fenilsonani/tidyrules/pkg/utils"
)

var (
	diskDays   int
	diskRecord bool
)

var diskCmd = &cobra.Command{
	Use:   "disk [path]",
	Short: "Show disk usage, its recent trend and history",
	Long: `Without arguments shows the home volume's capacity, the 7-day trend and the
recorded history. With a path prints the recursive size of that path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			size, err := diskusage.UsageForPath(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\t%s\n", utils.FormatBytes(size), args[0])
			return nil
		}

		a, err := buildApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		var current diskusage.Snapshot
		if diskRecord {
			current, err = a.Disk.Record(ctx)
		} else {
			current, err = a.Disk.Current(ctx)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Volume of %s\n", a.Platform.HomeDir)
		fmt.Fprintf(out, "  Total: %s\n", utils.FormatBytes(int64(current.Total)))
		fmt.Fprintf(out, "  Used:  %s (%.1f%%)\n", utils.FormatBytes(int64(current.Used)), current.UsedPercent()*100)
		fmt.Fprintf(out, "  Free:  %s\n", utils.FormatBytes(int64(current.Free)))
		fmt.Fprintf(out, "  Trend: %s\n", a.Disk.Trend())

		history := a.Disk.HistoryForDays(diskDays)
		if len(history) == 0 {
			fmt.Fprintln(out, "\nNo history recorded yet. tidyrulesd samples it periodically.")
			return nil
		}

		fmt.Fprintf(out, "\nHistory (last %d days):\n", diskDays)
		for _, s := range history {
			fmt.Fprintf(out, "  %s  used %-10s free %s\n",
				s.Time.Local().Format(time.DateTime), utils.FormatBytes(int64(s.Used)), utils.FormatBytes(int64(s.Free)))
		}
		return nil
	},
}

func init() {
	diskCmd.Flags().IntVar(&diskDays, "days", 7, "days of history to show")
	diskCmd.Flags().BoolVar(&diskRecord, "record", false, "also store the current sample in the history")
}

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/tidyrules/internal/scanner"
)

var (
	locationName       string
	locationCategories []string
	locationDisabled   bool
)

var locationsCmd = &cobra.Command{
	Use:     "locations",
	Aliases: []string{"loc"},
	Short:   "Manage scan locations",
}

var locationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scan locations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		rptr, err := newReporter(cmd)
		if err != nil {
			return err
		}
		return rptr.ReportLocations(a.Locations.List())
	},
}

var locationsAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Add a directory to scan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		a, err := buildApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		loc, err := a.Locations.Add(scanner.ScanLocation{
			Name:       locationName,
			Path:       path,
			Categories: locationCategories,
			Enabled:    !locationDisabled,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added location %s (%s)\n", loc.Name, loc.ID)
		return nil
	},
}

var locationsRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a scan location",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		found, err := a.Locations.Remove(args[0])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("location %s not found", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed location %s\n", args[0])
		return nil
	},
}

var locationsToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Enable or disable a scan location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		found, err := a.Locations.Toggle(args[0])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("location %s not found", args[0])
		}

		loc, _ := a.Locations.Location(args[0])
		state := "disabled"
		if loc.Enabled {
			state = "enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Location %s %s\n", args[0], state)
		return nil
	},
}

func init() {
	locationsAddCmd.Flags().StringVar(&locationName, "name", "", "display name (defaults to the directory name)")
	locationsAddCmd.Flags().StringSliceVar(&locationCategories, "category", nil, "categories; the first one classifies entries")
	locationsAddCmd.Flags().BoolVar(&locationDisabled, "disabled", false, "add the location disabled")

	locationsCmd.AddCommand(locationsListCmd, locationsAddCmd, locationsRemoveCmd, locationsToggleCmd)
}

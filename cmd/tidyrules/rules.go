package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/tidyrules/internal/rules"
	"github.com/fenilsonani/tidyrules/internal/scanner"
	"github.com/fenilsonani/tidyrules/pkg/utils"
)

// ruleFlags collects the flags shared by rules add and rules update
type ruleFlags struct {
	name        string
	description string
	category    string
	schedule    string
	targets     []string
	action      string
	pattern     string
	minSize     string
	minAge      time.Duration
	disabled    bool
}

var (
	ruleOpts    ruleFlags
	dueListOnly bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage and run cleaning rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules with their schedule and next run",
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
		return rptr.ReportRules(a.Engine.Rules())
	},
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a rule",
	Example: `  tidyrules rules add --name "Old installers" --target ~/Downloads \
    --pattern '\.(dmg|pkg)$' --min-age 720h --schedule weekly --action trash`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rule, err := ruleOpts.build()
		if err != nil {
			return err
		}

		a, err := buildApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		added, err := a.Engine.AddRule(rule)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added rule %s (%s)\n", added.Name, added.ID)
		return nil
	},
}

var rulesUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a rule's name, description, schedule or targets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		rule, ok := a.Engine.Rule(args[0])
		if !ok {
			return fmt.Errorf("rule %s not found", args[0])
		}
		if err := ruleOpts.apply(&rule, cmd); err != nil {
			return err
		}
		if _, err := a.Engine.UpdateRule(rule); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated rule %s\n", rule.Name)
		return nil
	},
}

var rulesRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a rule",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRule(cmd, args[0], "Removed", func(e *rules.Engine, id string) (bool, error) {
			return e.DeleteRule(id)
		})
	},
}

var rulesEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRule(cmd, args[0], "Enabled", func(e *rules.Engine, id string) (bool, error) {
			return e.SetEnabled(id, true)
		})
	},
}

var rulesDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRule(cmd, args[0], "Disabled", func(e *rules.Engine, id string) (bool, error) {
			return e.SetEnabled(id, false)
		})
	},
}

var rulesRunCmd = &cobra.Command{
	Use:   "run <id>",
	Short: "Run a rule now, regardless of its schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		rule, ok := a.Engine.Rule(args[0])
		if !ok {
			return fmt.Errorf("rule %s not found", args[0])
		}

		rptr, err := newReporter(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		result := a.Engine.ExecuteRule(ctx, rule)
		return rptr.ReportExecutions([]rules.ExecutionResult{result})
	},
}

var rulesDueCmd = &cobra.Command{
	Use:   "due",
	Short: "Run every enabled rule that is due",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		rptr, err := newReporter(cmd)
		if err != nil {
			return err
		}

		now := time.Now()
		if dueListOnly {
			return rptr.ReportRules(a.Engine.DueRules(now))
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		return rptr.ReportExecutions(a.Engine.CheckAndExecuteDueRules(ctx, now))
	},
}

func init() {
	for _, c := range []*cobra.Command{rulesAddCmd, rulesUpdateCmd} {
		f := c.Flags()
		f.StringVar(&ruleOpts.name, "name", "", "rule name")
		f.StringVar(&ruleOpts.description, "description", "", "rule description")
		f.StringVar(&ruleOpts.category, "category", "", "category for matched entries")
		f.StringVar(&ruleOpts.schedule, "schedule", string(rules.ScheduleManual), "manual, hourly, daily, weekly or monthly")
		f.StringSliceVar(&ruleOpts.targets, "target", nil, "directory to clean (repeatable)")
		f.StringVar(&ruleOpts.action, "action", string(rules.ActionTrash), "delete, trash or compress")
		f.StringVar(&ruleOpts.pattern, "pattern", "", "regular expression matched against file names")
		f.StringVar(&ruleOpts.minSize, "min-size", "", "only files larger than this, e.g. 500MB")
		f.DurationVar(&ruleOpts.minAge, "min-age", 0, "only files older than this, e.g. 720h")
	}
	rulesAddCmd.Flags().BoolVar(&ruleOpts.disabled, "disabled", false, "add the rule disabled")
	_ = rulesAddCmd.MarkFlagRequired("name")
	_ = rulesAddCmd.MarkFlagRequired("target")

	rulesDueCmd.Flags().BoolVar(&dueListOnly, "list", false, "only list due rules, do not run them")

	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesUpdateCmd, rulesRemoveCmd,
		rulesEnableCmd, rulesDisableCmd, rulesRunCmd, rulesDueCmd)
}

func withRule(cmd *cobra.Command, id, verb string, fn func(*rules.Engine, string) (bool, error)) error {
	a, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	found, err := fn(a.Engine, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("rule %s not found", id)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s rule %s\n", verb, id)
	return nil
}

func (f ruleFlags) criterion() (scanner.ScanCriterion, error) {
	c := scanner.ScanCriterion{Pattern: f.pattern}
	if f.minSize != "" {
		n, err := utils.ParseSize(f.minSize)
		if err != nil {
			return c, fmt.Errorf("invalid --min-size: %w", err)
		}
		c = c.WithMinSize(n)
	}
	if f.minAge > 0 {
		c = c.WithMinAge(f.minAge)
	}
	return c, nil
}

func (f ruleFlags) buildTargets() ([]rules.RuleTarget, error) {
	action, err := rules.ParseAction(f.action)
	if err != nil {
		return nil, err
	}
	crit, err := f.criterion()
	if err != nil {
		return nil, err
	}

	targets := make([]rules.RuleTarget, 0, len(f.targets))
	for _, path := range f.targets {
		targets = append(targets, rules.RuleTarget{Path: path, Criterion: crit, Action: action})
	}
	return targets, nil
}

// build creates a new rule from the flags
func (f ruleFlags) build() (rules.CleaningRule, error) {
	schedule, err := rules.ParseSchedule(f.schedule)
	if err != nil {
		return rules.CleaningRule{}, err
	}
	targets, err := f.buildTargets()
	if err != nil {
		return rules.CleaningRule{}, err
	}

	rule := rules.CleaningRule{
		Name:        f.name,
		Description: f.description,
		Category:    f.category,
		Schedule:    schedule,
		Targets:     targets,
		Enabled:     !f.disabled,
	}
	return rule, rule.Validate()
}

// apply overwrites the fields whose flags were set on cmd. Target flags
// replace every target of the rule.
func (f ruleFlags) apply(rule *rules.CleaningRule, cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("name") {
		rule.Name = f.name
	}
	if flags.Changed("description") {
		rule.Description = f.description
	}
	if flags.Changed("category") {
		rule.Category = f.category
	}
	if flags.Changed("schedule") {
		schedule, err := rules.ParseSchedule(f.schedule)
		if err != nil {
			return err
		}
		rule.Schedule = schedule
	}
	if flags.Changed("target") {
		targets, err := f.buildTargets()
		if err != nil {
			return err
		}
		rule.Targets = targets
	}
	return nil
}

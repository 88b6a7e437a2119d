package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/tidyrules/internal/rules"
)

func TestRuleFlagsBuild(t *testing.T) {
	f := ruleFlags{
		name:     "Old installers",
		schedule: "Weekly",
		targets:  []string{"~/Downloads", "/tmp/dl"},
		action:   "move-to-trash",
		pattern:  `\.dmg$`,
		minSize:  "500MB",
		minAge:   720 * time.Hour,
	}

	rule, err := f.build()
	require.NoError(t, err)

	assert.Equal(t, rules.ScheduleWeekly, rule.Schedule)
	assert.True(t, rule.Enabled)
	require.Len(t, rule.Targets, 2)
	assert.Equal(t, rules.ActionTrash, rule.Targets[0].Action)
	assert.Equal(t, `\.dmg$`, rule.Targets[1].Criterion.Pattern)
	require.NotNil(t, rule.Targets[0].Criterion.MinSize)
	assert.Equal(t, int64(500_000_000), *rule.Targets[0].Criterion.MinSize)
	require.NotNil(t, rule.Targets[0].Criterion.MinAge)
	assert.Equal(t, 720*time.Hour, *rule.Targets[0].Criterion.MinAge)
}

func TestRuleFlagsBuildErrors(t *testing.T) {
	base := ruleFlags{name: "x", schedule: "daily", targets: []string{"/tmp"}, action: "delete"}

	bad := base
	bad.schedule = "fortnightly"
	_, err := bad.build()
	assert.Error(t, err)

	bad = base
	bad.action = "shred"
	_, err = bad.build()
	assert.Error(t, err)

	bad = base
	bad.minSize = "lots"
	_, err = bad.build()
	assert.ErrorContains(t, err, "--min-size")

	bad = base
	bad.pattern = "("
	_, err = bad.build()
	assert.Error(t, err)
}

func TestRuleFlagsApplyOnlyChanged(t *testing.T) {
	cmd := &cobra.Command{Use: "update"}
	var f ruleFlags
	cmd.Flags().StringVar(&f.name, "name", "", "")
	cmd.Flags().StringVar(&f.description, "description", "", "")
	cmd.Flags().StringVar(&f.category, "category", "", "")
	cmd.Flags().StringVar(&f.schedule, "schedule", "manual", "")
	cmd.Flags().StringSliceVar(&f.targets, "target", nil, "")
	cmd.Flags().StringVar(&f.action, "action", "trash", "")
	require.NoError(t, cmd.ParseFlags([]string{"--schedule", "daily"}))

	rule := rules.CleaningRule{
		Name:     "Keep",
		Schedule: rules.ScheduleWeekly,
		Targets:  []rules.RuleTarget{{Path: "/a", Action: rules.ActionDelete}},
	}
	require.NoError(t, f.apply(&rule, cmd))

	assert.Equal(t, "Keep", rule.Name)
	assert.Equal(t, rules.ScheduleDaily, rule.Schedule)
	assert.Equal(t, "/a", rule.Targets[0].Path)
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs(args)
		err := rootCmd.Execute()
		return out.String(), err
	}
	t.Cleanup(func() { configPath = ""; configForce = false })

	out, err := run("config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)
	assert.FileExists(t, path)

	_, err = run("config", "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	out, err = run("config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "check_interval:")
	assert.NotContains(t, out, "does not exist")
}

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"buildforge/internal/app"
)

type planOptions struct {
	Project string
	Results []string
}

func newPlanCommand() *cobra.Command {
	opts := planOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the build order and dry-run composition diagnostics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Project, "project", ".", "Project root directory")
	cmd.Flags().StringSliceVar(&opts.Results, "result", nil, "Restrict to these results and their dependencies")
	_ = viper.BindPFlag("project", cmd.Flags().Lookup("project"))
	_ = viper.BindPFlag("results", cmd.Flags().Lookup("result"))
	return cmd
}

func runPlan(ctx context.Context, cmd *cobra.Command, opts planOptions) error {
	service := newAppService()
	result, err := service.Plan(ctx, app.PlanRequest{
		ProjectRoot: resolveString(cmd, opts.Project, "project", "project"),
		Results:     resolveStrings(cmd, opts.Results, "results", "result"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("plan for %s:\n", result.ProjectName)
	for i, step := range result.Order {
		deps := ""
		if len(step.DependsOn) > 0 {
			deps = " (after " + strings.Join(step.DependsOn, ", ") + ")"
		}
		fmt.Printf("%3d. %s %s%s\n", i+1, step.Result, step.Version, deps)
	}
	for _, conflict := range result.Conflicts {
		fmt.Printf("conflict: %s\n", conflict)
	}
	for _, warning := range result.Untrusted {
		fmt.Printf("untrusted: %s\n", warning)
	}
	return nil
}

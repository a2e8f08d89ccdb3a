package cli

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"buildforge/internal/app"
	"buildforge/internal/types"
)

type runOptions struct {
	Project    string
	StoreDir   string
	WorkDir    string
	Results    []string
	Workers    int
	FailFast   bool
	KeepFailed bool
}

func newRunCommand() *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the project's result graph",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Project, "project", ".", "Project root directory")
	cmd.Flags().StringVar(&opts.StoreDir, "store", "", "Content store directory")
	cmd.Flags().StringVar(&opts.WorkDir, "work-dir", "", "Sandbox work directory")
	cmd.Flags().StringSliceVar(&opts.Results, "result", nil, "Restrict to these results and their dependencies")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Parallel build workers")
	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "Cancel remaining builds on first failure")
	cmd.Flags().BoolVar(&opts.KeepFailed, "keep-failed", false, "Retain sandboxes of failed builds for inspection")
	_ = viper.BindPFlag("project", cmd.Flags().Lookup("project"))
	_ = viper.BindPFlag("store", cmd.Flags().Lookup("store"))
	_ = viper.BindPFlag("work_dir", cmd.Flags().Lookup("work-dir"))
	_ = viper.BindPFlag("results", cmd.Flags().Lookup("result"))
	_ = viper.BindPFlag("workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("fail_fast", cmd.Flags().Lookup("fail-fast"))
	_ = viper.BindPFlag("keep_failed", cmd.Flags().Lookup("keep-failed"))
	return cmd
}

func runRun(ctx context.Context, cmd *cobra.Command, opts runOptions) error {
	service := newAppService()
	result, err := service.Run(ctx, app.RunRequest{
		ProjectRoot: resolveString(cmd, opts.Project, "project", "project"),
		StoreDir:    resolveString(cmd, opts.StoreDir, "store", "store"),
		WorkDir:     resolveString(cmd, opts.WorkDir, "work_dir", "work-dir"),
		Results:     resolveStrings(cmd, opts.Results, "results", "result"),
		Workers:     resolveInt(cmd, opts.Workers, "workers", "workers"),
		FailFast:    resolveBool(cmd, opts.FailFast, "fail_fast", "fail-fast"),
		KeepFailed:  resolveBool(cmd, opts.KeepFailed, "keep_failed", "keep-failed"),
	})
	if err != nil {
		return err
	}

	report := result.Report
	for _, node := range report.Nodes {
		line := fmt.Sprintf("%-12s %s %s", node.State, node.Result, node.Version)
		if node.Stage != types.FailStageNone {
			line += fmt.Sprintf(" [stage: %s]", node.Stage)
		}
		if node.Error != "" {
			line += ": " + node.Error
		}
		fmt.Println(line)
		for _, warning := range node.Warnings {
			fmt.Printf("  warning: %s\n", warning)
		}
	}
	fmt.Printf("run status: %s\n", report.Status)

	if report.Status != types.RunStatusSucceeded {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("run finished with status " + string(report.Status))
	}
	return nil
}

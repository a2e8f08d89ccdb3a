package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"buildforge/internal/app"
)

type inspectOptions struct {
	Project  string
	StoreDir string
	Result   string
}

func newInspectCommand() *cobra.Command {
	opts := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect <result>",
		Short: "Describe one result and its packaged versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Result = args[0]
			return runInspect(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Project, "project", ".", "Project root directory")
	cmd.Flags().StringVar(&opts.StoreDir, "store", "", "Content store directory")
	_ = viper.BindPFlag("project", cmd.Flags().Lookup("project"))
	_ = viper.BindPFlag("store", cmd.Flags().Lookup("store"))
	return cmd
}

func runInspect(ctx context.Context, cmd *cobra.Command, opts inspectOptions) error {
	service := newAppService()
	result, err := service.Inspect(ctx, app.InspectRequest{
		ProjectRoot: resolveString(cmd, opts.Project, "project", "project"),
		StoreDir:    resolveString(cmd, opts.StoreDir, "store", "store"),
		Result:      opts.Result,
	})
	if err != nil {
		return err
	}
	fmt.Printf("result: %s %s\n", result.Name, result.Version)
	fmt.Printf("script: %s\n", result.Script)
	if len(result.Depends) > 0 {
		fmt.Printf("depends: %s\n", strings.Join(result.Depends, ", "))
	}
	if len(result.Sources) > 0 {
		fmt.Printf("sources: %s\n", strings.Join(result.Sources, ", "))
	}
	if len(result.ChrootGroups) > 0 {
		fmt.Printf("chroot: %s\n", strings.Join(result.ChrootGroups, ", "))
	}
	if len(result.Licences) > 0 {
		fmt.Printf("licences: %s\n", strings.Join(result.Licences, ", "))
	}
	if len(result.PackagedVersions) > 0 {
		fmt.Printf("packaged: %s\n", strings.Join(result.PackagedVersions, ", "))
	}
	return nil
}

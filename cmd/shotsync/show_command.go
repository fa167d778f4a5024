package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shotsync/internal/layout"
)

func newInitShowCommand(ctx *commandContext) *cobra.Command {
	var show string

	cmd := &cobra.Command{
		Use:   "init-show",
		Short: "Create the folder skeleton and project.yml for a show",
		RunE: func(cmd *cobra.Command, args []string) error {
			show = strings.TrimSpace(show)
			if show == "" {
				return errors.New("--show is required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			result, err := layout.NewBuilder(cfg, logger).InitShow(cmd.Context(), show)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Show root: %s\n", result.Root)
			if result.ProjectCreated {
				fmt.Fprintf(out, "Wrote %s\n", layout.ProjectFile)
			} else {
				fmt.Fprintf(out, "%s already present\n", layout.ProjectFile)
			}
			for _, path := range result.Copied {
				fmt.Fprintf(out, "Copied %s\n", path)
			}
			for _, path := range result.Skipped {
				fmt.Fprintf(out, "Kept existing %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&show, "show", "", "Show name")
	return cmd
}

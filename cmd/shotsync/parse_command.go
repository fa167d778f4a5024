package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shotsync/internal/layout"
	"shotsync/internal/shotcode"
)

type parsePreview struct {
	Code        string            `json:"code"`
	Identity    shotcode.Identity `json:"identity"`
	Folder      string            `json:"folder"`
	WorkingFile string            `json:"working_file"`
}

func newParseCommand(ctx *commandContext) *cobra.Command {
	var show string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "parse CODE",
		Short: "Show how a shot code maps to tracker entities and local paths",
		Long:  "Parse a shot code and print its identity, tracker entity names, and local folder. Nothing is written.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			show = strings.TrimSpace(show)
			if show != "" {
				if err := layout.ValidateShow(show); err != nil {
					return err
				}
			}
			code, err := shotcode.Normalize(shotcode.Fields{Code: args[0]})
			if err != nil {
				return err
			}
			id, err := shotcode.ParseForShow(show, code)
			if err != nil {
				return err
			}

			builder := layout.NewBuilder(cfg, nil)
			preview := parsePreview{
				Code:        id.Code(),
				Identity:    id,
				Folder:      builder.ShotFolder(id),
				WorkingFile: builder.WorkingFilePath(id),
			}
			if jsonOut {
				return writeJSON(cmd, preview)
			}

			rows := [][]string{
				{"Project", displayValue(id.Show)},
				{"Episode", displayValue(id.Episode)},
				{"Sequence", displayValue(id.Sequence)},
				{"Shot", id.Shot},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Code: %s\n", preview.Code)
			fmt.Fprintln(out, renderTable([]string{"Entity", "Name"}, rows, nil))
			fmt.Fprintf(out, "Folder:       %s\n", preview.Folder)
			fmt.Fprintf(out, "Working file: %s\n", preview.WorkingFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&show, "show", "", "Show the code belongs to")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the preview as JSON")
	return cmd
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deecheck/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/deecheck/internal/embed"
)

func newInitCmd(app *appContext) *cobra.Command {
	var (
		output   string
		fileType string
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample validation config",
		Long: `Write a commented sample validation config for csv, json or jsonl files.
An existing file is left untouched unless --force is given.`,
		RunE: func(c *cobra.Command, _ []string) error {
			fileType = strings.ToLower(strings.TrimSpace(fileType))
			content, err := embed.SampleConfig(fileType)
			if err != nil {
				types, _ := embed.SampleConfigTypes()
				return fmt.Errorf("unsupported --type %q (want one of %s)", fileType, strings.Join(types, ", "))
			}

			result, err := embed.WriteTemplate(app.fs, "", embed.Template{Path: output, Content: content, Mode: 0o644}, force)
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			out := presenter.NewCLIPresenter(c.OutOrStdout(), false)
			if result.Action == "SKIP" {
				out.PresentWrite("SKIP:", result.Path+" (exists; use --force to overwrite)")
				return nil
			}
			out.PresentWrite(result.Action+":", result.Path)
			app.logger.Debug("sample config written", "type", fileType, "path", result.Path)

			w := c.OutOrStdout()
			fmt.Fprintln(w, "\nNext steps:")
			fmt.Fprintf(w, "  1. Edit %s to describe your columns\n", result.Path)
			fmt.Fprintf(w, "  2. deecheck check-config -c %s\n", result.Path)
			fmt.Fprintf(w, "  3. deecheck validate -c %s -i <file or folder>\n", result.Path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "sample_config.yml", "Path of the config to write")
	cmd.Flags().StringVarP(&fileType, "type", "t", "csv", "Sample type: csv, json or jsonl")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deecheck/internal/adapter/presenter"
	infraConfig "github.com/YoshitsuguKoike/deecheck/internal/infra/config"
	dfs "github.com/YoshitsuguKoike/deecheck/internal/infra/fs"
)

func newAnalyzeCmd(app *appContext) *cobra.Command {
	var (
		input      string
		output     string
		sampleRows int
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Infer a validation config from a data file",
		Long: `Sample the first records of a data file and write a validation config with
one inferred rule per column. Review the result before using it.`,
		RunE: func(c *cobra.Command, _ []string) error {
			raw, err := infraConfig.InferConfig(app.fs, input, sampleRows)
			if err != nil {
				return err
			}
			data, err := infraConfig.MarshalConfig(raw)
			if err != nil {
				return err
			}
			if output == "" {
				output = autoConfigPath(input)
			}
			if err := dfs.WriteFileAtomic(app.fs, output, data, 0o644); err != nil {
				return err
			}

			out := presenter.NewCLIPresenter(c.OutOrStdout(), false)
			out.PresentWrite("WROTE:", output)

			w := c.OutOrStdout()
			fmt.Fprintf(w, "\nInferred from %s:\n", input)
			fmt.Fprintf(w, "  Type:      %s\n", raw.FileInfo.FileType)
			fmt.Fprintf(w, "  Encoding:  %s\n", raw.FileInfo.Encoding)
			if raw.FileInfo.Delimiter != nil {
				fmt.Fprintf(w, "  Delimiter: %q\n", *raw.FileInfo.Delimiter)
			}
			fmt.Fprintf(w, "  Columns:   %d\n", len(raw.Columns))
			for _, col := range raw.Columns {
				req := "optional"
				if col.Required != nil && *col.Required {
					req = "required"
				}
				fmt.Fprintf(w, "    %-20s %-9s %s\n", col.Name, col.Type, req)
			}
			fmt.Fprintf(w, "\nReview %s, then run: deecheck validate -c %s -i %s\n", output, output, input)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Data file to analyze (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Config to write (default: <name>_auto_config.yml next to the input)")
	cmd.Flags().IntVar(&sampleRows, "sample-rows", infraConfig.InferSampleRows, "Records sampled for inference")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func autoConfigPath(input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(input), stem+"_auto_config.yml")
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deecheck/internal/adapter/presenter"
	infraConfig "github.com/YoshitsuguKoike/deecheck/internal/infra/config"
)

func newCheckConfigCmd(app *appContext) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Load a validation config and print its summary",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := infraConfig.LoadValidationConfig(app.fs, path)
			if err != nil {
				return err
			}
			presenter.NewCLIPresenter(c.OutOrStdout(), false).PresentConfig(path, cfg)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "YAML validation config (required)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"geotification/internal/dashboard"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the Grafana dashboard for the GreptimeDB event table",
	Long:  "dashboard writes a Grafana dashboard for the configured GreptimeDB table. GREPTIMEDB_DATASOURCE_UID names the Grafana datasource.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		p, err := dashboard.ParamsFromEnv(cfg.Output.Greptime.Table)
		if err != nil {
			return err
		}
		paths, err := dashboard.Render(dashboardOut, p)
		if err != nil {
			return err
		}
		for _, path := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory")
	rootCmd.AddCommand(dashboardCmd)
}

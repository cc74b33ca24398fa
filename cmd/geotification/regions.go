package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"geotification/internal/config"
	"geotification/internal/geofence"
	"geotification/internal/logging"
)

var regionsGeoJSON bool

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Print the regions built from the track",
	Long:  "regions parses the configured track and prints one region per waypoint as JSON or GeoJSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return printRegions(cmd.OutOrStdout(), cfg, regionsGeoJSON)
	},
}

func init() {
	regionsCmd.Flags().BoolVar(&regionsGeoJSON, "geojson", false, "Print a GeoJSON FeatureCollection with circle outlines")
}

func printRegions(out io.Writer, cfg *config.Config, asGeoJSON bool) error {
	coords, err := loadTrack(cfg)
	if err != nil {
		return err
	}
	mgr := newManager(cfg, logging.Discard())
	if _, err := mgr.Initialize(coords); err != nil {
		return fmt.Errorf("build regions: %w", err)
	}
	if asGeoJSON {
		data, err := json.MarshalIndent(geofence.FeatureCollection(mgr.States()), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(mgr.Regions())
}

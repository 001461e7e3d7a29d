package main

import (
	"fmt"

	"backend-frimining/internal/shared/geo"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var sessionPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a session configuration without replaying",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadSession(sessionPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			apart := geo.DistanceMeters(cfg.CollectionPoint.Lat, cfg.CollectionPoint.Lng,
				cfg.StockpilePoint.Lat, cfg.StockpilePoint.Lng)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok: %s %.1f m3, points %.1f m apart, radius %.1f m\n",
				cfg.MachineType, cfg.MaxCapacityM3, apart, cfg.ProximityRadiusM)
			return err
		},
	}
	cmd.Flags().StringVar(&sessionPath, "session", "", "session configuration (YAML)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"backend-frimining/internal/cycle"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type replayResult struct {
	Summary    cycle.Summary `json:"summary"`
	Positions  int           `json:"positions"`
	FinalPhase cycle.Phase   `json:"final_phase"`
}

func newRunCmd(newLogger func(*cobra.Command) *logrus.Logger) *cobra.Command {
	var sessionPath, positionsPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a position track and print the detected cycles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadSession(sessionPath)
			if err != nil {
				return err
			}
			f, err := os.Open(positionsPath)
			if err != nil {
				return fmt.Errorf("open positions: %w", err)
			}
			defer f.Close()
			positions, err := readPositions(f)
			if err != nil {
				return err
			}

			result, err := replay(cmd.Context(), cfg, positions, newLogger(cmd))
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return writeTable(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&sessionPath, "session", "", "session configuration (YAML)")
	cmd.Flags().StringVar(&positionsPath, "positions", "", "position track (CSV: timestamp,lat,lng)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("positions")
	return cmd
}

// replay drives a fresh engine over positions through its channel consumer
// and ends the session once the track is exhausted.
func replay(ctx context.Context, cfg cycle.Config, positions []cycle.Position, log logrus.FieldLogger) (replayResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	engine := cycle.NewEngine(cycle.WithLogger(log))
	handle, err := engine.StartSession(cfg)
	if err != nil {
		return replayResult{}, err
	}

	ch := make(chan cycle.Position)
	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Run(ctx, ch)
	}()
	for _, pos := range positions {
		select {
		case ch <- pos:
		case err := <-errCh:
			return replayResult{}, err
		}
	}
	close(ch)
	if err := <-errCh; err != nil {
		return replayResult{}, err
	}

	state, _ := engine.CurrentState()
	summary, err := engine.EndSession(handle)
	if err != nil {
		return replayResult{}, err
	}
	return replayResult{Summary: summary, Positions: len(positions), FinalPhase: state.Phase}, nil
}

func writeTable(out io.Writer, result replayResult) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CYCLE\tSTART\tEND\tDURATION\tVOLUME_M3")
	for _, c := range result.Summary.CompletedCycles {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\n",
			c.CycleNumber,
			c.StartTime.Format(time.RFC3339),
			c.EndTime.Format(time.RFC3339),
			time.Duration(c.DurationSec)*time.Second,
			c.MaxCapacityM3)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "positions: %d\ncycles: %d\nvolume_m3: %.2f\ndiscarded_in_progress: %t\n",
		result.Positions,
		result.Summary.CyclesCompletedCount,
		result.Summary.TotalVolumeM3,
		result.Summary.DiscardedInProgress)
	return err
}

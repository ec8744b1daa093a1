package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	str2duration "github.com/xhit/go-str2duration/v2"

	signalengine "github.com/raykavin/signalengine"
	"github.com/raykavin/signalengine/internal/config"
	"github.com/raykavin/signalengine/internal/engine"
	"github.com/raykavin/signalengine/internal/storage"
)

var (
	configPath string
	periodFlag string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "signalengine",
		Short:   "Crypto derivatives trading-signal engine",
		Version: "1.0.0",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default ./signalengine.yaml)")

	rootCmd.AddCommand(buildRunCmd())
	rootCmd.AddCommand(buildBackfillCmd())
	rootCmd.AddCommand(buildStatusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the analysis loop against live adapters until interrupted",
		RunE:  runEngine,
	}
	cmd.Flags().StringVar(&periodFlag, "period", "", "Override the analysis iteration period (e.g. 30s, 1m)")
	return cmd
}

func buildBackfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Run the label backfiller once and exit (for cron-style deployment)",
		RunE:  runBackfillOnce,
	}
}

func buildStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the most recent cached analysis without starting the loop",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cache, err := storage.NewCacheStore(cfg.Storage.CachePath)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer cache.Close()

	raw, found, err := cache.Get("latest_analysis")
	if err != nil {
		return fmt.Errorf("reading cached analysis: %w", err)
	}
	if !found {
		fmt.Println("no cached analysis yet; is the engine running?")
		return nil
	}

	var latest engine.LatestAnalysis
	if err := json.Unmarshal(raw, &latest); err != nil {
		return fmt.Errorf("decoding cached analysis: %w", err)
	}

	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)
	table.AppendBulk([][]string{
		{"Symbol", latest.Symbol},
		{"As of", latest.Time.Format(time.RFC3339)},
		{"Regime", string(latest.State.Regime)},
		{"Signal", string(latest.Signal.Class)},
		{"Confidence", fmt.Sprintf("%.2f", latest.Signal.Confidence)},
		{"Recommendation", string(latest.Recommendation.Action)},
		{"Position", string(latest.Position.State)},
	})
	table.Render()

	fmt.Print(tableString.String())
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if periodFlag != "" {
		period, err := str2duration.ParseDuration(periodFlag)
		if err != nil {
			return fmt.Errorf("invalid --period: %w", err)
		}
		cfg.General.AnalysisPeriodSeconds = int(period.Seconds())
	}

	eng, err := signalengine.New(cfg)
	if err != nil {
		return fmt.Errorf("assembling engine: %w", err)
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	signalengine.DefaultLog.Info("starting analysis loop")
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("engine stopped: %w", err)
	}
	return nil
}

func runBackfillOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := signalengine.New(cfg)
	if err != nil {
		return fmt.Errorf("assembling engine: %w", err)
	}
	defer eng.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	return eng.RunBackfillOnce(ctx)
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/raykavin/perfscope"
	"github.com/raykavin/perfscope/internal/config"
	"github.com/raykavin/perfscope/pkg/chart"
	"github.com/raykavin/perfscope/pkg/core"
	"github.com/raykavin/perfscope/pkg/dashboard"
	"github.com/raykavin/perfscope/pkg/feed"
	"github.com/raykavin/perfscope/pkg/report"
	"github.com/raykavin/perfscope/pkg/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Command line flags
var (
	configFile string

	// Shared by serve and inspect
	runID    string
	testID   string
	duration string

	// Serve command flags
	videoURL string
	title    string

	// Inspect command flags
	at   string
	bins int

	// Import, list and export command flags
	database string
	remove   bool
)

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:          "perfscope",
		Short:        "Device performance metrics next to test recordings",
		Version:      "1.0.0",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default .perfscope.yaml)")

	// Add commands
	rootCmd.AddCommand(buildServeCmd(), buildInspectCmd(), buildImportCmd(), buildListCmd(), buildExportCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Execute
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addFeedFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "Base URL of the metrics API")
	cmd.Flags().String("csv", "", "CSV file with metric,group,time,value rows")
	cmd.Flags().String("db", "", "Database with imported snapshots")
	cmd.Flags().Bool("legacy", false, "The metrics API serves the older payload format")
	cmd.Flags().StringVarP(&runID, "run", "r", "", "Run (build) identifier")
	cmd.Flags().StringVarP(&testID, "test", "t", "", "Test (step) identifier")
	cmd.Flags().StringVarP(&duration, "duration", "d", "", "Video duration, seconds or e.g. 2m30s")

	cmd.MarkFlagRequired("run")
	cmd.MarkFlagRequired("test")
}

// loadSettings merges config file, environment and flags of cmd
func loadSettings(cmd *cobra.Command) (core.Settings, error) {
	v, err := config.New(configFile)
	if err != nil {
		return core.Settings{}, err
	}

	bindings := map[string]string{
		config.KeyFeedURL:      "url",
		config.KeyFeedCSV:      "csv",
		config.KeyFeedDatabase: "db",
		config.KeyFeedLegacy:   "legacy",
		config.KeyPort:         "port",
		config.KeyDebug:        "debug",
	}
	if err := bindFlags(v, cmd, bindings); err != nil {
		return core.Settings{}, err
	}

	return config.Decode(v)
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, bindings map[string]string) error {
	for key, name := range bindings {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// openViewer builds the viewer for the flags and starts loading the test
func openViewer(cmd *cobra.Command, options ...perfscope.Option) (*perfscope.Viewer, func(), <-chan struct{}, error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	seconds := 0.0
	if duration != "" {
		if seconds, err = feed.ParseSeconds(duration); err != nil {
			return nil, nil, nil, err
		}
	}

	fetcher, closer, err := perfscope.NewFetcher(settings.Feed)
	if err != nil {
		return nil, nil, nil, err
	}

	viewer, err := perfscope.NewViewer(settings, fetcher, options...)
	if err != nil {
		closer.Close()
		return nil, nil, nil, err
	}

	done, err := viewer.Open(cmd.Context(), runID, testID, seconds)
	if err != nil {
		viewer.Close()
		closer.Close()
		return nil, nil, nil, err
	}

	release := func() {
		viewer.Close()
		if err := closer.Close(); err != nil {
			perfscope.DefaultLog.WithError(err).Warn("failed to close feed")
		}
	}
	return viewer, release, done, nil
}

func buildServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the metrics panel of a test",
		RunE:  runServe,
	}

	addFeedFlags(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "HTTP port of the chart")
	serveCmd.Flags().Bool("debug", false, "Serve unminified scripts")
	serveCmd.Flags().StringVar(&videoURL, "video", "", "URL of the test recording")
	serveCmd.Flags().StringVar(&title, "title", "", "Page title (default run/test)")

	return serveCmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	pageTitle := title
	if pageTitle == "" {
		pageTitle = runID + " / " + testID
	}

	chartOptions := []chart.Option{chart.WithTitle(pageTitle)}
	if videoURL != "" {
		chartOptions = append(chartOptions, chart.WithVideo(videoURL))
	}

	viewer, release, _, err := openViewer(cmd, perfscope.WithChartOptions(chartOptions...))
	if err != nil {
		return err
	}
	defer release()

	return viewer.Serve(cmd.Context())
}

func buildInspectCmd() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a metrics report of a test",
		RunE:  runInspect,
	}

	addFeedFlags(inspectCmd)
	inspectCmd.Flags().StringVar(&at, "at", "0", "Time to read the values at, seconds or e.g. 1m")
	inspectCmd.Flags().IntVar(&bins, "bins", report.DefaultBins, "Histogram buckets")

	return inspectCmd
}

func runInspect(cmd *cobra.Command, _ []string) error {
	seconds, err := feed.ParseSeconds(at)
	if err != nil {
		return err
	}

	viewer, release, done, err := openViewer(cmd)
	if err != nil {
		return err
	}
	defer release()

	select {
	case <-done:
	case <-cmd.Context().Done():
		return cmd.Context().Err()
	}

	progress := viewer.Controller().Progress()
	if progress.Status == dashboard.StatusFailed {
		return fmt.Errorf("%s %w", progress.Message, progress.Err)
	}

	fmt.Println(viewer.Summary(seconds))
	return viewer.Histograms(os.Stdout, bins)
}

func buildImportCmd() *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import [csv files]",
		Short: "Store CSV samples in a database for offline replay",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}

	importCmd.Flags().StringVarP(&runID, "run", "r", "", "Run (build) identifier")
	importCmd.Flags().StringVarP(&database, "db", "o", "", "Output database file")

	importCmd.MarkFlagRequired("run")
	importCmd.MarkFlagRequired("db")

	return importCmd
}

func runImport(cmd *cobra.Command, files []string) error {
	repo, err := storage.FromFile(database)
	if err != nil {
		return err
	}

	_, importErr := storage.NewImporter(repo, perfscope.DefaultLog).Import(cmd.Context(), runID, files...)
	return errors.Join(importErr, repo.Close())
}

func buildListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the snapshots stored in a database",
		RunE:  runList,
	}

	listCmd.Flags().StringVarP(&database, "db", "o", "", "Database file")
	listCmd.Flags().StringVarP(&runID, "run", "r", "", "Only list tests of this run")
	listCmd.Flags().StringVarP(&testID, "test", "t", "", "Test to delete, with --delete")
	listCmd.Flags().BoolVar(&remove, "delete", false, "Delete the snapshot of --run and --test first")
	listCmd.MarkFlagRequired("db")

	return listCmd
}

func runList(_ *cobra.Command, _ []string) error {
	repo, err := storage.FromFile(database)
	if err != nil {
		return err
	}
	defer repo.Close()

	if remove {
		if runID == "" || testID == "" {
			return errors.New("--delete needs --run and --test")
		}
		if err := repo.Delete(runID, testID); err != nil {
			return err
		}
	}

	entries, err := repo.Entries()
	if err != nil {
		return err
	}
	if runID != "" {
		entries = slices.DeleteFunc(entries, func(entry storage.Entry) bool {
			return entry.RunID != runID
		})
	}

	fmt.Print(report.Entries(entries))
	return nil
}

func buildExportCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Print a stored snapshot in the older payload format",
		RunE:  runExport,
	}

	exportCmd.Flags().StringVarP(&database, "db", "o", "", "Database file")
	exportCmd.Flags().StringVarP(&runID, "run", "r", "", "Run (build) identifier")
	exportCmd.Flags().StringVarP(&testID, "test", "t", "", "Test (step) identifier")
	exportCmd.MarkFlagRequired("db")
	exportCmd.MarkFlagRequired("run")
	exportCmd.MarkFlagRequired("test")

	return exportCmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	repo, err := storage.FromFile(database)
	if err != nil {
		return err
	}
	defer repo.Close()

	snapshot, err := repo.Fetch(cmd.Context(), runID, testID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(feed.ToLegacy(snapshot))
}

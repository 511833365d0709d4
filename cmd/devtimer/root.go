package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Afrawles/devtimer/internal/config"
	"github.com/Afrawles/devtimer/internal/devtimer"
	"github.com/Afrawles/devtimer/internal/output"
	"github.com/Afrawles/devtimer/internal/report"
)

var (
	configPath string
	logLevel   string
	format     string
	noColor    bool
	outputDir  string
	export     bool
	dryRun     bool
	xlsxOutput bool
	csvOutput  bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:          "devtimer",
	Short:        "Turn a day of commits into a time report",
	Long:         `devtimer reads commits from Wakatime and local git repositories, matches them to Jira tickets and reports or exports the time spent per project.`,
	SilenceUsage: true,
}

var (
	dailyCmd = &cobra.Command{
		Use:   "daily [date] [project]",
		Short: "Print the commits of one day, optionally exporting them to Toggl",
		Long: `Prints a report per project for the given day (today, yesterday or YYYY-MM-DD, default today).
The project argument accepts a comma-separated list; without it every configured project is read.`,
		Args: cobra.MaximumNArgs(2),
		RunE: runDaily,
	}

	projectsCmd = &cobra.Command{
		Use:   "projects",
		Short: "List the projects every source knows",
		Args:  cobra.NoArgs,
		RunE:  runProjects,
	}

	summaryCmd = &cobra.Command{
		Use:   "summary [date] [project]",
		Short: "Compare commit time with the time Wakatime tracked",
		Args:  cobra.MaximumNArgs(2),
		RunE:  runSummary,
	}
)

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(dailyCmd, projectsCmd, summaryCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: devtimer.toml in . or ~/.config/devtimer)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "", "Output format: text, markdown, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	dailyCmd.Flags().BoolVarP(&export, "export", "e", false, "Export the report to Toggl")
	dailyCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan the Toggl export without creating entries")
	dailyCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory for report files")
	dailyCmd.Flags().BoolVar(&xlsxOutput, "xlsx", false, "Write an Excel workbook")
	dailyCmd.Flags().BoolVar(&csvOutput, "csv", false, "Write CSV commit list and dashboard")
	dailyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Write a JSON report file")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if outputDir != "" {
		cfg.Output.Directory = outputDir
	}
	if format != "" {
		cfg.Output.Format = format
	}
	if noColor {
		cfg.Output.Color = false
	}
	return cfg, nil
}

func newApp(exporting bool) (*devtimer.Application, *output.Formatter, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(exporting); err != nil {
		return nil, nil, err
	}

	f, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, nil, err
	}

	app, err := devtimer.New(cfg, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	return app, output.NewFormatter(os.Stdout, f, cfg.Output.Color), nil
}

func runDaily(cmd *cobra.Command, args []string) error {
	day, projects, err := parseDayArgs(args, time.Now())
	if err != nil {
		return err
	}

	// a dry run never talks to Toggl, so it needs no credentials
	app, formatter, err := newApp(export && !dryRun)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	bar := newSpinner("Fetching commits")
	result, err := app.Handle(ctx, day, projects)
	finishBar(bar)
	if err != nil {
		return err
	}

	if err := formatter.Output(output.NewDaily(result.Rows, result.Warnings)); err != nil {
		return err
	}

	formats := devtimer.FileFormats{JSON: jsonOutput, CSV: csvOutput, Excel: xlsxOutput}
	if formats.JSON || formats.CSV || formats.Excel {
		written, err := app.WriteFiles(result, formats)
		if err != nil {
			return err
		}
		for _, path := range written {
			fmt.Fprintf(os.Stderr, "  -> %s\n", path)
		}
	}

	if !export && !dryRun {
		return nil
	}

	exportBar := newSpinner("Exporting to Toggl")
	summary, err := app.ExportResults(ctx, app.Exporter(dryRun), result)
	finishBar(exportBar)
	if err != nil {
		return fmt.Errorf("export failed after %d entries: %w", summary.Entries, err)
	}

	verb := "Exported"
	if dryRun {
		verb = "Planned"
	}
	fmt.Fprintf(os.Stderr, "\n%s %d time entries (%s), %d rows without time\n",
		verb, summary.Entries, report.FormatSeconds(summary.TotalSeconds), summary.Skipped)
	return nil
}

func runProjects(cmd *cobra.Command, args []string) error {
	app, formatter, err := newApp(false)
	if err != nil {
		return err
	}

	bar := newSpinner("Fetching projects")
	bySource, err := app.Generator.Projects(cmd.Context())
	finishBar(bar)
	if err != nil {
		return err
	}

	sources := make([]string, 0, len(bySource))
	for name := range bySource {
		sources = append(sources, name)
	}
	sort.Strings(sources)

	table := &output.Table{
		Title:   "Projects",
		Headers: []string{"source", "project"},
		Data:    bySource,
	}
	for _, source := range sources {
		for _, project := range bySource[source] {
			table.Rows = append(table.Rows, []string{source, project})
		}
	}

	return formatter.Output(table)
}

func runSummary(cmd *cobra.Command, args []string) error {
	day, projects, err := parseDayArgs(args, time.Now())
	if err != nil {
		return err
	}

	app, formatter, err := newApp(false)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	bar := newSpinner("Fetching commits and tracked time")
	result, err := app.Handle(ctx, day, projects)
	if err != nil {
		finishBar(bar)
		return err
	}
	summary, err := app.Summary(ctx, result, projects)
	finishBar(bar)
	if err != nil {
		return err
	}

	return formatter.Output(summary)
}

func newSpinner(description string) *progressbar.ProgressBar {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	_ = bar.RenderBlank()
	return bar
}

func finishBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
	}
}

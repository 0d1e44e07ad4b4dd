package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soctools/logwarden/internal/adapters/detection"
	"github.com/soctools/logwarden/internal/adapters/filter"
	"github.com/soctools/logwarden/internal/adapters/input"
	"github.com/soctools/logwarden/internal/adapters/output"
	"github.com/soctools/logwarden/internal/app"
	"github.com/soctools/logwarden/internal/domain"
	"github.com/soctools/logwarden/internal/ports"
)

var (
	cfgFile       string
	jsonStdout    bool
	fromBeginning bool

	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "logwarden",
	Short: "Access-log threat detection for SOC triage",
	Long: `LogWarden aggregates web server access logs into per-address activity
profiles, classifies brute-force, scanning, SQL injection and DDoS
behavior, and scores each suspicious address for triage.

Modes:
  analyze   One-shot analysis of a whole log file
  watch     Continuous monitoring of a growing log file`,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a log file once and write a report",
	Long: `Run one-shot analysis over the whole log file and write the report.

Examples:
  logwarden analyze --log /var/log/nginx/access.log
  logwarden analyze --log ./access.log --threshold 100 --window 1
  logwarden analyze --log ./access.log --output report --ignore-internal`,
	RunE: runAnalyze,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor a growing log file continuously",
	Long: `Watch the log file for appended lines, analyze each batch and keep a
cumulative session of scored addresses. On interrupt the session is
written as the final report.

Examples:
  logwarden watch --log /var/log/nginx/access.log
  logwarden watch --log ./access.log --from-beginning --output session`,
	RunE: runWatch,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("LogWarden %s\n", Version)
		fmt.Printf("Commit:  %s\n", Commit)
		fmt.Printf("Built:   %s\n", BuildTime)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringP("log", "l", "", "log file to analyze")
	rootCmd.PersistentFlags().IntP("threshold", "t", 100, "request count above which an address is analyzed")
	rootCmd.PersistentFlags().Float64P("window", "w", 24, "analysis window in hours")
	rootCmd.PersistentFlags().Bool("ignore-internal", false, "exclude private/loopback addresses")
	rootCmd.PersistentFlags().Bool("ignore-whitelisted", false, "exclude whitelisted addresses")
	rootCmd.PersistentFlags().String("whitelist", "", "whitelist file (one address or CIDR per line)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "report file stem (writes <stem>.json and <stem>.csv)")
	rootCmd.PersistentFlags().BoolVar(&jsonStdout, "stdout", false, "write the JSON report to stdout")

	watchCmd.Flags().BoolVar(&fromBeginning, "from-beginning", false, "process existing content before tailing")
	watchCmd.Flags().Float64("min-interval", 5, "minimum seconds between analysis cycles")
	watchCmd.Flags().Bool("metrics", false, "expose Prometheus metrics")
	watchCmd.Flags().String("metrics-addr", ":9090", "metrics listen address")

	viper.BindPFlag("log.path", rootCmd.PersistentFlags().Lookup("log"))
	viper.BindPFlag("analysis.threshold", rootCmd.PersistentFlags().Lookup("threshold"))
	viper.BindPFlag("analysis.window_hours", rootCmd.PersistentFlags().Lookup("window"))
	viper.BindPFlag("filters.ignore_internal", rootCmd.PersistentFlags().Lookup("ignore-internal"))
	viper.BindPFlag("filters.ignore_whitelisted", rootCmd.PersistentFlags().Lookup("ignore-whitelisted"))
	viper.BindPFlag("filters.whitelist_file", rootCmd.PersistentFlags().Lookup("whitelist"))
	viper.BindPFlag("output.stem", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("watch.min_interval_seconds", watchCmd.Flags().Lookup("min-interval"))
	viper.BindPFlag("metrics.enabled", watchCmd.Flags().Lookup("metrics"))
	viper.BindPFlag("metrics.addr", watchCmd.Flags().Lookup("metrics-addr"))

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/logwarden")
	}

	viper.SetDefault("analysis.threshold", 100)
	viper.SetDefault("analysis.window_hours", 24)
	viper.SetDefault("watch.min_interval_seconds", 5)
	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.addr", ":9090")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn().Err(err).Msg("Error reading config file")
		}
	}

	viper.SetEnvPrefix("LOGWARDEN")
	viper.AutomaticEnv()
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	switch viper.GetString("logging.level") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}

// buildAnalyzer wires the parser, filters, classifier and scorer into a
// BatchAnalyzer from the validated config.
func buildAnalyzer(cfg app.Config, stats *domain.RunStats) (*app.BatchAnalyzer, error) {
	var wl *filter.Whitelist
	if cfg.IgnoreWhitelisted {
		var err error
		wl, err = filter.LoadWhitelist(cfg.WhitelistPath)
		if err != nil {
			return nil, fmt.Errorf("load whitelist: %w", err)
		}
	}

	addrFilter := &filter.AddressFilter{
		Whitelist:       wl,
		IgnoreWhitelist: cfg.IgnoreWhitelisted,
		IgnoreInternal:  cfg.IgnoreInternal,
	}

	classifier, err := detection.NewRuleClassifier(detection.DefaultRuleConfig())
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	scorer := detection.NewAdditiveScorer(detection.DefaultScoreConfig())

	aggregator := app.NewAggregator(input.NewAccessLogParser(), addrFilter, stats)
	return app.NewBatchAnalyzer(aggregator, classifier, scorer, stats, cfg.Threshold, cfg.Window()), nil
}

// buildReporters opens the configured report destinations. With no output
// stem and no --stdout flag, the JSON report still goes to stdout so a bare
// run produces something visible.
func buildReporters(cfg app.Config) ([]ports.Reporter, error) {
	var reporters []ports.Reporter

	jsonConfig := output.JSONReporterConfig{Stdout: jsonStdout || cfg.OutputStem == ""}
	if cfg.OutputStem != "" && !jsonStdout {
		jsonConfig.FilePath = cfg.OutputStem + ".json"
	}
	jsonReporter, err := output.NewJSONReporter(jsonConfig)
	if err != nil {
		return nil, fmt.Errorf("open JSON report: %w", err)
	}
	reporters = append(reporters, jsonReporter)

	if cfg.OutputStem != "" {
		csvReporter, err := output.NewCSVReporter(cfg.OutputStem + ".csv")
		if err != nil {
			jsonReporter.Close()
			return nil, fmt.Errorf("open CSV report: %w", err)
		}
		reporters = append(reporters, csvReporter)
	}
	return reporters, nil
}

func writeReports(ctx context.Context, reporters []ports.Reporter, results map[string]*domain.ScoredResult) error {
	var firstErr error
	for _, r := range reporters {
		if err := r.Report(ctx, results); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	setupLogging()

	cfg := app.ConfigFromViper()
	if err := cfg.Validate(); err != nil {
		return err
	}

	stats := domain.NewRunStats()
	analyzer, err := buildAnalyzer(cfg, stats)
	if err != nil {
		return err
	}

	results, err := analyzer.AnalyzeFile(cfg.LogPath)
	if err != nil {
		return err
	}

	snap := stats.Snapshot()
	log.Info().
		Int64("lines", snap.Lines).
		Int64("parse_errors", snap.ParseErrors).
		Int("flagged", len(results)).
		Msg("Analysis complete")

	reporters, err := buildReporters(cfg)
	if err != nil {
		return err
	}
	return writeReports(context.Background(), reporters, results)
}

func runWatch(cmd *cobra.Command, args []string) error {
	setupLogging()

	cfg := app.ConfigFromViper()
	cfg.FromBeginning = fromBeginning
	if err := cfg.Validate(); err != nil {
		return err
	}

	stats := domain.NewRunStats()
	analyzer, err := buildAnalyzer(cfg, stats)
	if err != nil {
		return err
	}

	engine := app.NewWatchEngine(input.NewTailMonitor(cfg.LogPath), analyzer, stats, cfg.MinInterval)

	if cfg.MetricsEnabled {
		metrics := output.NewPrometheusMetrics("logwarden", stats, engine.Session().Len)
		engine.AddObserver(metrics)
		if err := metrics.StartServer(output.MetricsConfig{Addr: cfg.MetricsAddr, Path: "/metrics"}); err != nil {
			log.Warn().Err(err).Msg("Failed to start metrics server")
		}
		defer metrics.StopServer()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := engine.Run(ctx, cfg.LogPath, cfg.FromBeginning)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		log.Info().Msg("No flagged addresses, skipping report")
		return nil
	}

	reporters, err := buildReporters(cfg)
	if err != nil {
		return err
	}
	return writeReports(context.Background(), reporters, results)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

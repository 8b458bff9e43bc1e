// tickerpulse tracks stock ticker mentions and sentiment in chat channels.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/seenimoa/tickerpulse/api"
	"github.com/seenimoa/tickerpulse/internal/config"
	"github.com/seenimoa/tickerpulse/internal/datasource"
	"github.com/seenimoa/tickerpulse/internal/logger"
	"github.com/seenimoa/tickerpulse/internal/mentions"
	"github.com/seenimoa/tickerpulse/internal/metrics"
	"github.com/seenimoa/tickerpulse/internal/tracker"
	"github.com/seenimoa/tickerpulse/internal/vocab"
	"github.com/seenimoa/tickerpulse/pkg/models"
	"github.com/seenimoa/tickerpulse/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tickerpulse",
	Short: "Track stock ticker mentions and sentiment in chat channels",
	Long: `tickerpulse reads recent messages from Discord channels and RSS feeds,
extracts stock ticker mentions, scores their sentiment with a keyword
heuristic, and ranks tickers by mention volume within a time window.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if override, _ := cmd.Flags().GetString("log-level"); override != "" {
			level = override
		}
		return logger.Init(level, cfg.Logging.Format)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(vocabCmd)
	rootCmd.AddCommand(configCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tickerpulse %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Fetch one batch of messages and print the ticker summary",
	Example: `  tickerpulse analyze --channel 123456789012345678 --limit 100
  tickerpulse analyze --timeframe 4h --top 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applySourceFlags(cmd)
		tf := timeframeFlag(cmd)
		top, _ := cmd.Flags().GetInt("top")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tr, err := runOnce(ctx)
		if err != nil {
			return err
		}

		printSummary(tr, tf, top)
		return nil
	},
}

func init() {
	addSourceFlags(analyzeCmd)
	analyzeCmd.Flags().String("timeframe", "", timeframeUsage())
	analyzeCmd.Flags().Int("top", mentions.TopN, "number of ranked tickers to print (0 for all)")
}

// --- Export Command ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Fetch one batch of messages and write the ranked tickers as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		applySourceFlags(cmd)
		tf := timeframeFlag(cmd)
		out, _ := cmd.Flags().GetString("out")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tr, err := runOnce(ctx)
		if err != nil {
			return err
		}

		if out == "-" {
			return tr.ExportCSV(os.Stdout, tf, time.Local)
		}
		if out == "" {
			out = mentions.ExportFilename(tf, tr.Now())
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		if err := tr.ExportCSV(f, tf, time.Local); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("Wrote %d tickers to %s\n", len(tr.Ranked(tf)), out)
		return nil
	},
}

func init() {
	addSourceFlags(exportCmd)
	exportCmd.Flags().String("timeframe", "", timeframeUsage())
	exportCmd.Flags().StringP("out", "o", "", "output file (default stock_summary_<timeframe>_<date>.csv, - for stdout)")
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server with optional auto-refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Named("serve")
		metrics.Register()
		api.Version = version

		if noRefresh, _ := cmd.Flags().GetBool("no-refresh"); noRefresh {
			cfg.Refresh.Enabled = false
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tr := newTracker()
		loader := datasource.NewTickerList(cfg.Vocabulary.Source, nil)
		if cfg.Vocabulary.Blocking {
			tr.LoadVocabulary(ctx, loader)
		} else {
			tr.LoadVocabularyAsync(ctx, loader)
		}

		srv := api.NewServer(cfg, tr, logger.Named("api"))

		if cfg.Refresh.Enabled {
			if _, err := tr.Run(ctx); err != nil {
				log.Warnw("Initial run failed", "error", err)
			}
			sched := tracker.NewScheduler(tr, cfg.RefreshInterval(), logger.Named("scheduler"))
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()
		}

		fmt.Printf("🌐 Starting tickerpulse API server on %s\n", cfg.Addr())
		return srv.ListenAndServe(ctx, cfg.Addr())
	},
}

func init() {
	serveCmd.Flags().Bool("no-refresh", false, "disable the auto-refresh scheduler")
}

// --- Vocab Command ---

var vocabCmd = &cobra.Command{
	Use:   "vocab [symbol...]",
	Short: "Load the ticker vocabulary and check symbols against it",
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := vocab.Seed()
		if showSeed, _ := cmd.Flags().GetBool("seed"); showSeed {
			fmt.Printf("Seed list (%d symbols):\n  %s\n", len(seed), strings.Join(seed, " "))
		}

		tr := tracker.New(nil, tracker.Options{Logger: logger.Named("vocab")})
		added := tr.LoadVocabulary(cmd.Context(), datasource.NewTickerList(cfg.Vocabulary.Source, nil))
		fmt.Printf("Vocabulary: %d symbols (%d seed + %d from %s)\n",
			tr.Vocabulary().Size(), len(seed), added, cfg.Vocabulary.Source)

		for _, arg := range args {
			symbol := utils.NormalizeTicker(arg)
			switch v := tr.Vocabulary(); {
			case v.IsSeed(symbol):
				fmt.Printf("  %-6s ✅ known (seed)\n", symbol)
			case v.Contains(symbol):
				fmt.Printf("  %-6s ✅ known\n", symbol)
			default:
				fmt.Printf("  %-6s ❌ unknown (counted only with $ prefix or stock context)\n", symbol)
			}
		}
		return nil
	},
}

func init() {
	vocabCmd.Flags().Bool("seed", false, "print the built-in seed list")
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		force, _ := cmd.Flags().GetBool("force")
		if err := config.WriteDefault(path, force); err != nil {
			return err
		}
		abs, _ := filepath.Abs(path)
		fmt.Printf("Wrote default config to %s\n", abs)
		fmt.Printf("Set %s_DISCORD_TOKEN rather than storing the token in the file.\n", config.EnvPrefix)
		return nil
	},
}

func init() {
	configInitCmd.Flags().String("path", filepath.Join("config", "config.yaml"), "where to write the config file")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  tickerpulse - System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatus())
		fmt.Printf("  Time (ET):     %s\n", utils.FormatDateTime(utils.NowET(), utils.ET))
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Discord API:   %s\n", cfg.Discord.APIBaseURL)
		fmt.Printf("    Channels:      %d (%d messages each)\n", len(cfg.Discord.ChannelIDs), cfg.Discord.MessageCount)
		fmt.Printf("    Feeds:         %d\n", len(cfg.Feeds.URLs))
		fmt.Printf("    Ticker list:   %s\n", cfg.Vocabulary.Source)
		refresh := "off"
		if cfg.Refresh.Enabled {
			refresh = "every " + cfg.RefreshInterval().String()
		}
		fmt.Printf("    Auto-refresh:  %s (minimum %s)\n", refresh, cfg.MinRefreshInterval())
		fmt.Printf("    Timeframe:     %s\n", mentions.ParseTimeframe(cfg.Analysis.DefaultTimeframe))
		fmt.Printf("    API Server:    %s\n", cfg.Addr())
		fmt.Println()

		fmt.Println("  Credentials:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

// ============================================================
// Helpers
// ============================================================

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("channel", nil, "Discord channel ID(s), overriding config")
	cmd.Flags().Int("limit", 0, "messages per channel, 1-100 (default from config)")
	cmd.Flags().StringSlice("feed", nil, "RSS/Atom feed URL(s), overriding config")
}

// applySourceFlags copies source flag overrides into the global config.
func applySourceFlags(cmd *cobra.Command) {
	if ch, _ := cmd.Flags().GetStringSlice("channel"); len(ch) > 0 {
		cfg.Discord.ChannelIDs = ch
	}
	if n, _ := cmd.Flags().GetInt("limit"); n != 0 {
		cfg.Discord.MessageCount = n
	}
	if feeds, _ := cmd.Flags().GetStringSlice("feed"); len(feeds) > 0 {
		cfg.Feeds.URLs = feeds
	}
	cfg.Validate()
}

// timeframeUsage lists the accepted --timeframe values.
func timeframeUsage() string {
	names := make([]string, len(mentions.Timeframes))
	for i, tf := range mentions.Timeframes {
		names[i] = string(tf)
	}
	return "time window: " + strings.Join(names, ", ") + "; anything else means all (default from config)"
}

func timeframeFlag(cmd *cobra.Command) mentions.Timeframe {
	tf, _ := cmd.Flags().GetString("timeframe")
	if tf == "" {
		tf = cfg.Analysis.DefaultTimeframe
	}
	return mentions.ParseTimeframe(tf)
}

// newTracker wires the configured sources into a tracker.
func newTracker() *tracker.Tracker {
	log := logger.Get()

	var sources []datasource.MessageSource
	if len(cfg.Discord.ChannelIDs) > 0 {
		sources = append(sources, datasource.NewDiscord(datasource.DiscordConfig{
			Token:             cfg.Discord.Token,
			BaseURL:           cfg.Discord.APIBaseURL,
			ChannelIDs:        cfg.Discord.ChannelIDs,
			MessageCount:      cfg.Discord.MessageCount,
			RequestsPerSecond: cfg.Discord.RequestsPerSecond,
		}))
	}
	if len(cfg.Feeds.URLs) > 0 {
		sources = append(sources, datasource.NewFeed(cfg.Feeds.URLs, nil))
	}

	agg := datasource.NewAggregator(sources, cfg.FallbackTTL(), log.Named("datasource"))
	return tracker.New(agg, tracker.Options{
		MinInterval:  cfg.MinRefreshInterval(),
		FetchTimeout: cfg.FetchTimeout(),
		Logger:       log.Named("tracker"),
	})
}

// runOnce loads the vocabulary and performs a single run.
func runOnce(ctx context.Context) (*tracker.Tracker, error) {
	tr := newTracker()
	tr.LoadVocabulary(ctx, datasource.NewTickerList(cfg.Vocabulary.Source, nil))

	info, err := tr.Run(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Printf("📥 %s messages, %s mentions, %d skipped (%s)\n",
		humanize.Comma(int64(info.Messages)),
		humanize.Comma(int64(info.Mentions)),
		info.Skipped,
		info.Duration.Round(time.Millisecond))
	if len(info.StaleSource) > 0 {
		fmt.Printf("⚠️  using cached messages for: %v\n", info.StaleSource)
	}
	return tr, nil
}

// printSummary prints the summary counters and the ranked table.
func printSummary(tr *tracker.Tracker, tf mentions.Timeframe, top int) {
	s := tr.Summary(tf)
	ranked := tr.Ranked(tf)
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}

	fmt.Println()
	fmt.Printf("📊 Ticker summary (%s)\n", s.Timeframe)
	fmt.Printf("   Tickers: %d   🟢 Bullish: %d   🔴 Bearish: %d   ⚪ Neutral: %d\n",
		s.TotalTickers, s.Bullish, s.Bearish, s.Neutral)
	if len(ranked) == 0 {
		fmt.Println("\n   No ticker mentions found.")
		return
	}

	fmt.Println()
	writeRanked(os.Stdout, ranked)
}

// contextWidth caps the latest-context column of the ranked table.
const contextWidth = 48

// writeRanked writes the ranked table, one row per ticker, each with its
// latest retained context.
func writeRanked(w io.Writer, ranked []models.TickerSummary) {
	fmt.Fprintf(w, "   %-4s %-7s %8s %-9s %6s %7s  %-16s %s\n",
		"#", "Ticker", "Mentions", "Sentiment", "Avg", "Users", "Last mentioned", "Latest")
	for i, t := range ranked {
		latest := ""
		if c, ok := t.LatestContext(); ok {
			text := strings.Join(strings.Fields(c.Text), " ")
			latest = utils.Truncate(c.Username+": "+text, contextWidth)
		}
		fmt.Fprintf(w, "   %-4d %-7s %8d %-9s %6.2f %7d  %-16s %s\n",
			i+1, "$"+t.Ticker, t.MentionCount, t.SentimentLabel, t.SentimentAverage,
			t.UniqueUserCount, humanize.Time(t.LastSeenAt), latest)
	}
}

// Package main provides the CLI entrypoint for lyritype.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/lyritype/internal/config"
	"github.com/verte-zerg/lyritype/internal/model"
	"github.com/verte-zerg/lyritype/internal/playback"
	"github.com/verte-zerg/lyritype/internal/provider"
	"github.com/verte-zerg/lyritype/internal/stats"
	"github.com/verte-zerg/lyritype/internal/statsui"
	"github.com/verte-zerg/lyritype/internal/store"
	"github.com/verte-zerg/lyritype/internal/tui"
)

const (
	defaultGate        = model.GateGlobal
	defaultCurveWindow = 20
	defaultSongsLimit  = 10
	positionInterval   = 100 * time.Millisecond
)

var (
	practiceLowercase        bool
	practiceNoPunct          bool
	practiceGate             string
	practiceClearOnBackspace bool
	practiceUser             string
	practiceListen           string
	practiceOrigin           string
	practicePaste            bool
	practiceOffline          bool

	fetchOut string

	statsUser        string
	statsSince       string
	statsLast        int
	statsCurveWindow int

	songsLimit int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lyritype [track-url|bundle-file]",
		Short:         "Type along to song lyrics",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().BoolVar(&practiceLowercase, "lowercase", false, "lowercase the lyrics")
	rootCmd.Flags().BoolVar(&practiceNoPunct, "no-punct", false, "strip punctuation from the lyrics")
	rootCmd.Flags().StringVar(&practiceGate, "gate", defaultGate, "playback gate policy (global|per-line)")
	rootCmd.Flags().BoolVar(&practiceClearOnBackspace, "clear-on-backspace", false, "forget correctness of erased characters")
	rootCmd.Flags().StringVar(&practiceUser, "user", "", "user name credited with session scores")
	rootCmd.Flags().StringVar(&practiceListen, "listen", "", "address for the playback websocket listener (host:port)")
	rootCmd.Flags().StringVar(&practiceOrigin, "origin", playback.DefaultOrigin, "page origin allowed to report playback")
	rootCmd.Flags().BoolVar(&practicePaste, "paste", false, "read the track link from the clipboard")
	rootCmd.Flags().BoolVar(&practiceOffline, "offline", false, "only use cached lyrics bundles")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newSongsCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyBoolConfig(cmd, "lowercase", &practiceLowercase, fileCfg.Practice.Lowercase)
	applyBoolConfig(cmd, "no-punct", &practiceNoPunct, fileCfg.Practice.NoPunctuation)
	applyStringConfig(cmd, "gate", &practiceGate, fileCfg.Practice.Gate)
	applyBoolConfig(cmd, "clear-on-backspace", &practiceClearOnBackspace, fileCfg.Practice.ClearOnBackspace)
	applyStringConfig(cmd, "user", &practiceUser, fileCfg.Practice.User)
	applyStringConfig(cmd, "listen", &practiceListen, fileCfg.Practice.Listen)
	applyStringConfig(cmd, "origin", &practiceOrigin, fileCfg.Practice.Origin)

	cfg := model.Config{
		Lowercase:        practiceLowercase,
		NoPunctuation:    practiceNoPunct,
		Gate:             strings.ToLower(strings.TrimSpace(practiceGate)),
		ClearOnBackspace: practiceClearOnBackspace,
		User:             strings.TrimSpace(practiceUser),
		Listen:           strings.TrimSpace(practiceListen),
		Origin:           strings.TrimSpace(practiceOrigin),
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	provCfg, err := resolveProviderConfig(fileCfg)
	if err != nil {
		return err
	}

	initial := ""
	if len(args) > 0 {
		initial = args[0]
	}
	if practicePaste {
		pasted, err := clipboard.ReadAll()
		if err != nil {
			return fmt.Errorf("failed to read clipboard: %w", err)
		}
		initial = strings.TrimSpace(pasted)
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	logger, closeLog, err := openLogFile(config.DefaultLogPath())
	if err != nil {
		logErrf("failed to open log file, logging disabled: %v\n", err)
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		closeLog = func() {}
	}
	defer closeLog()

	client := provider.NewClient(provCfg, provider.WithLogger(logger))
	loader := newLoader(client, practiceOffline, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var program *tea.Program
	sendPosition := func(positionMs int64) {
		program.Send(tui.PositionMsg{PositionMs: positionMs})
	}

	var (
		player   playback.Controller
		listener *playback.Listener
		clock    *playback.Clock
	)
	if cfg.Listen != "" {
		listener = playback.NewListener(sendPosition,
			playback.WithOrigins(cfg.Origin),
			playback.WithLogger(logger),
		)
		player = listener
	} else {
		clock = playback.NewClock()
		player = clock
	}

	m := tui.NewModel(tui.Options{
		Config:   cfg,
		Recorder: st,
		Load:     loader,
		Player:   player,
		Logger:   logger,
		Initial:  initial,
	})
	program = tea.NewProgram(m, tea.WithAltScreen())

	if listener != nil {
		go func() {
			if err := listener.Serve(ctx, cfg.Listen); err != nil {
				logger.Error("playback listener stopped", "error", err)
			}
		}()
	} else {
		go clock.Run(ctx, positionInterval, sendPosition)
	}

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <track-url>",
		Short: "Download lyrics into a bundle for offline practice",
		Args:  cobra.ExactArgs(1),
		RunE:  runFetchCmd,
	}
	cmd.Flags().StringVar(&fetchOut, "out", "", "bundle output path (default: cache dir)")
	return cmd
}

func runFetchCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	provCfg, err := resolveProviderConfig(fileCfg)
	if err != nil {
		return err
	}
	track, err := provider.ParseTrackURL(args[0])
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client := provider.NewClient(provCfg, provider.WithLogger(logger))
	b, err := client.Fetch(cmd.Context(), track)
	if err != nil {
		return fmt.Errorf("failed to fetch lyrics: %w", err)
	}

	out := fetchOut
	if out == "" {
		out = config.DefaultBundlePath(track.ID)
	}
	if err := provider.SaveBundle(out, b); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %d cues)\n", out, b.Track.Title, len(b.Entries)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o600); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsUser, "user", "", "user filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if statsCurveWindow <= 0 {
		return fmt.Errorf("--curve-window must be > 0")
	}

	cfg := model.StatsConfig{
		User:        strings.TrimSpace(statsUser),
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return renderPlainStats(cmd.Context(), cmd.OutOrStdout(), st, cfg)
	}

	m := statsui.NewModel(st, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func renderPlainStats(ctx context.Context, w io.Writer, src stats.Source, cfg model.StatsConfig) error {
	report, err := stats.BuildReport(ctx, src, cfg)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	if err := stats.RenderSummary(w, report.Sessions); err != nil {
		return err
	}
	if len(report.Sessions) == 0 {
		return nil
	}
	if err := stats.RenderCurves(w, report.Sessions, cfg.CurveWindow); err != nil {
		return err
	}
	if err := stats.RenderSessionTable(w, report.Sessions); err != nil {
		return err
	}
	return stats.RenderCharTable(w, report.CharAggsAll)
}

func newSongsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "songs",
		Short: "Show most played songs",
		Args:  cobra.NoArgs,
		RunE:  runSongsCmd,
	}
	cmd.Flags().IntVar(&songsLimit, "limit", defaultSongsLimit, "number of songs to show")
	return cmd
}

func runSongsCmd(cmd *cobra.Command, _ []string) error {
	if songsLimit <= 0 {
		return fmt.Errorf("--limit must be > 0")
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	songs, err := st.TopSongs(cmd.Context(), songsLimit)
	if err != nil {
		return fmt.Errorf("failed to load songs: %w", err)
	}
	return stats.RenderTopSongs(cmd.OutOrStdout(), songs)
}

// newLoader resolves practice input: a local lyrics file, a cached bundle
// for the track, or a fresh fetch that is then cached.
func newLoader(client *provider.Client, offline bool, logger *slog.Logger) tui.Loader {
	return func(ctx context.Context, input string) (provider.Bundle, error) {
		if info, err := os.Stat(input); err == nil && !info.IsDir() {
			return provider.LoadFile(input)
		}
		track, err := provider.ParseTrackURL(input)
		if err != nil {
			return provider.Bundle{}, err
		}

		cachePath := config.DefaultBundlePath(track.ID)
		b, err := provider.LoadBundle(cachePath)
		if err == nil {
			if b.URL == "" {
				b.URL = track.URL
			}
			logger.Debug("using cached bundle", "track", track.ID, "path", cachePath)
			return b, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("ignoring unreadable bundle", "path", cachePath, "error", err)
		}
		if offline {
			return provider.Bundle{}, fmt.Errorf("no cached lyrics for track %s: %w", track.ID, provider.ErrNoLyrics)
		}

		b, err = client.Fetch(ctx, track)
		if err != nil {
			return provider.Bundle{}, err
		}
		if err := provider.SaveBundle(cachePath, b); err != nil {
			logger.Warn("failed to cache bundle", "path", cachePath, "error", err)
		}
		return b, nil
	}
}

func resolveProviderConfig(fileCfg config.FileConfig) (model.ProviderConfig, error) {
	cfg := model.ProviderConfig{
		LyricsEndpoint: provider.DefaultLyricsEndpoint,
		Timeout:        provider.DefaultTimeout,
	}
	if v := fileCfg.Provider.LyricsEndpoint; v != nil {
		cfg.LyricsEndpoint = strings.TrimSpace(*v)
	}
	if v := fileCfg.Provider.SpotifyClientID; v != nil {
		cfg.ClientID = strings.TrimSpace(*v)
	}
	if v := fileCfg.Provider.SpotifyClientSecret; v != nil {
		cfg.ClientSecret = strings.TrimSpace(*v)
	}
	if v := fileCfg.Provider.Timeout; v != nil {
		cfg.Timeout = *v
	}
	if v := strings.TrimSpace(os.Getenv("SPOTIFY_CLIENT_ID")); v != "" {
		cfg.ClientID = v
	}
	if v := strings.TrimSpace(os.Getenv("SPOTIFY_CLIENT_SECRET")); v != "" {
		cfg.ClientSecret = v
	}
	if err := config.Validate(cfg); err != nil {
		return model.ProviderConfig{}, fmt.Errorf("invalid provider config: %w", err)
	}
	return cfg, nil
}

func openLogFile(path string) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close of the log file.
			_ = cerr
		}
	}
	return slog.New(slog.NewTextHandler(f, nil)), closeFn, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# lyritype configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# lowercase = false             # Lowercase the lyrics
# no-punct = false              # Strip punctuation
# gate = %q                 # Playback gate policy: global or per-line
# clear-on-backspace = false    # Forget correctness of erased characters
# user = ""                     # Name credited with session scores
# listen = "127.0.0.1:7878"     # Accept playback positions over websocket
# origin = %q  # Page origin allowed to report playback

[provider]
# lyrics-endpoint = %q
# spotify-client-id = ""        # Or SPOTIFY_CLIENT_ID
# spotify-client-secret = ""    # Or SPOTIFY_CLIENT_SECRET
# timeout = "%s"
`,
		defaultGate,
		playback.DefaultOrigin,
		provider.DefaultLyricsEndpoint,
		provider.DefaultTimeout,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

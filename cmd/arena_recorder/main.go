// Command arena_recorder runs the arena simulation from a line based command
// stream or with scripted bots, and records every session to the configured
// storage backends.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/arenalab/arena-recorder/internal/api"
	"github.com/arenalab/arena-recorder/internal/botplayer"
	"github.com/arenalab/arena-recorder/internal/config"
	"github.com/arenalab/arena-recorder/internal/dispatcher"
	"github.com/arenalab/arena-recorder/internal/handlers"
	"github.com/arenalab/arena-recorder/internal/logging"
	"github.com/arenalab/arena-recorder/internal/monitor"
	intOtel "github.com/arenalab/arena-recorder/internal/otel"
	"github.com/arenalab/arena-recorder/internal/parser"
	"github.com/arenalab/arena-recorder/internal/session"
	"github.com/arenalab/arena-recorder/internal/util"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion = "0.0.1"
	BuildDate      = "unknown"

	AppName = "arena_recorder"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager = logging.NewSlogManager()

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger = SlogManager.Logger()

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	LogFilePath string
	LogFile     *os.File

	SessionStartTime = time.Now()
)

type options struct {
	configDir string
	logLevel  string
	version   bool

	bot      string
	runs     int
	seed     uint64
	maxTicks int

	show    string
	getJSON []string
	list    bool
	db      string
	outDir  string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	fs.StringVarP(&o.configDir, "config", "c", ".", "directory containing "+config.ConfigFileName)
	fs.StringVar(&o.logLevel, "log-level", "", "override logLevel from the config file")
	fs.BoolVar(&o.version, "version", false, "print version and exit")

	fs.StringVar(&o.bot, "bot", "", "play headless sessions with a bot policy (aggressive, defensive, chaotic)")
	fs.IntVar(&o.runs, "runs", 1, "number of bot sessions")
	fs.Uint64Var(&o.seed, "seed", 1, "seed of the first bot session, incremented per run")
	fs.IntVar(&o.maxTicks, "max-ticks", 60*60*5, "ticks after which a bot session is quit")

	fs.StringVar(&o.show, "show", "", "print the summary of an exported record file")
	fs.StringSliceVar(&o.getJSON, "getjson", nil, "export stored sessions by id as record files")
	fs.BoolVar(&o.list, "list", false, "list stored sessions")
	fs.StringVar(&o.db, "db", "", "sqlite dump to query instead of postgres")
	fs.StringVar(&o.outDir, "out", "", "output directory for --getjson (default storage.memory.outputDir)")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.runs < 1 {
		return o, fmt.Errorf("--runs must be at least 1, got %d", o.runs)
	}
	if o.maxTicks < 1 {
		return o, fmt.Errorf("--max-ticks must be at least 1, got %d", o.maxTicks)
	}
	if o.bot != "" {
		if _, err := botplayer.New(o.bot, nil); err != nil {
			return o, err
		}
	}
	return o, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, in io.Reader, out io.Writer) int {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if opts.version {
		fmt.Fprintf(out, "%s %s (%s)\n", AppName, CurrentVersion, BuildDate)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// load config
	if err := config.Load(opts.configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	}
	if opts.logLevel != "" {
		viper.Set("logLevel", opts.logLevel)
	}

	sessionCtx := session.NewContext()
	setupLogging(sessionCtx)
	defer shutdownLogging()

	switch {
	case opts.show != "":
		err = showRecord(out, opts.show)
	case len(opts.getJSON) > 0 || opts.list:
		err = runQuery(out, opts)
	default:
		err = runRecorder(ctx, opts, sessionCtx, in, out)
	}

	if err != nil {
		Logger.Error("Exiting with error", "error", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// setupLogging opens the log file and wires slog, the OTel bridge and the
// active session attributes together.
func setupLogging(sessionCtx *session.Context) {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs dir", "error", err, "path", logsDir)
	}

	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
	if err := logging.RotateExisting(LogFilePath); err != nil {
		Logger.Warn("Failed to rotate log file", "error", err, "path", LogFilePath)
	}

	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
		LogFile = nil
	}

	var logWriter io.Writer
	if LogFile != nil {
		logWriter = LogFile
	}

	OTelProvider, err = intOtel.New(intOtel.FromSettings(config.GetOTelConfig(), CurrentVersion, logWriter))
	if err != nil {
		Logger.Error("Failed to initialize OTel provider", "error", err)
		OTelProvider, _ = intOtel.New(intOtel.Config{})
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider.Enabled() {
		otelLogProvider = OTelProvider.LoggerProvider()
	}

	SlogManager.SetContextProvider(sessionCtx.Attrs)
	SlogManager.Setup(logWriter, viper.GetString("logLevel"), otelLogProvider)
	Logger = SlogManager.Logger()
	Logger.Info("Starting up", "version", CurrentVersion, "build", BuildDate, "log", LogFilePath)
}

func shutdownLogging() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if LogFile != nil {
		_ = LogFile.Close()
	}
}

// infraLogger is the zerolog logger used by the database, influx and dispatcher.
func infraLogger(component string) zerolog.Logger {
	var w io.Writer = os.Stderr
	if LogFile != nil {
		w = LogFile
	}
	lvl, err := zerolog.ParseLevel(viper.GetString("logLevel"))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("component", component).Logger()
}

// runRecorder wires storage, the handler service and the dispatcher, then
// drives sessions from the command stream or from bots.
func runRecorder(ctx context.Context, opts options, sessionCtx *session.Context, in io.Reader, out io.Writer) error {
	simCfg, err := config.Sim()
	if err != nil {
		return err
	}
	if err := simCfg.Validate(); err != nil {
		return err
	}

	storageCfg := config.GetStorageConfig()
	backends, err := createStorageBackends(ctx, storageCfg, storageDeps{
		LogManager: SlogManager,
		DBLogger:   infraLogger("storage"),
		Version:    CurrentVersion,
		Start:      SessionStartTime,
	})
	if err != nil {
		return err
	}
	backends = initBackends(backends)
	if len(backends) == 0 {
		Logger.Warn("No storage backend available, sessions will not be saved")
	}

	var uploader handlers.Uploader
	if storageCfg.Upload {
		client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"),
			api.WithTimeout(viper.GetDuration("api.timeout")))
		if err := client.Healthcheck(ctx); err != nil {
			Logger.Warn("Analysis server not reachable, uploads may fail", "error", err)
		}
		uploader = client
	}

	svc, err := handlers.NewService(handlers.Dependencies{
		LogManager: SlogManager,
		Session:    sessionCtx,
		SimConfig:  simCfg,
		Parser:     parser.NewParser(Logger, viper.GetString("defaultLabel")),
		Backends:   backends,
		Uploader:   uploader,
		Meter:      OTelProvider.Meter("github.com/arenalab/arena-recorder/internal/handlers"),
		Version:    CurrentVersion,
	})
	if err != nil {
		closeBackends(backends)
		return err
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(infraLogger("dispatcher")),
		dispatcher.WithMeter(OTelProvider.Meter("github.com/arenalab/arena-recorder/internal/dispatcher")))
	if err != nil {
		closeBackends(backends)
		return err
	}
	svc.RegisterHandlers(d)

	mon := monitor.NewService(monitor.Dependencies{
		LogManager: SlogManager,
		Session:    sessionCtx,
		Pending:    svc.Pending,
		Saved:      svc.Saved,
		StatusPath: filepath.Join(viper.GetString("logsDir"), "status.json"),
		Interval:   viper.GetDuration("monitor.interval"),
	})
	if viper.GetBool("monitor.enabled") {
		_ = mon.Start()
	}

	if opts.bot != "" {
		err = runBots(ctx, svc, opts, out)
	} else {
		err = runCommands(ctx, d, in, out)
	}

	if serr := svc.Shutdown(); serr != nil {
		Logger.Error("Failed to save active session", "error", serr)
	}
	// drains the save queue before the backends go away
	d.Close()
	mon.Stop()
	closeBackends(backends)

	if OTelProvider != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if ferr := OTelProvider.Flush(flushCtx); ferr != nil {
			Logger.Warn("Failed to flush OTel data", "error", ferr)
		}
	}

	Logger.Info("Recorder stopped", "sessions", sessionCtx.Started(), "saved", svc.Saved())
	return err
}

// runCommands reads one command per line and writes one reply per command.
func runCommands(ctx context.Context, d *dispatcher.Dispatcher, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		cmd, args := util.SplitCommand(sc.Text())
		if cmd == "" {
			continue
		}

		result, err := d.Dispatch(dispatcher.Event{
			Command:   cmd,
			Args:      args,
			Timestamp: time.Now(),
		})
		writeReply(out, cmd, result, err)
	}
	return sc.Err()
}

func writeReply(out io.Writer, cmd string, result any, err error) {
	switch {
	case err != nil:
		fmt.Fprintf(out, "%s error %v\n", cmd, err)
	case result == nil:
		fmt.Fprintf(out, "%s ok\n", cmd)
	default:
		fmt.Fprintf(out, "%s ok %v\n", cmd, result)
	}
}

// runBots plays opts.runs sessions with the named policy.
func runBots(ctx context.Context, svc *handlers.Service, opts options, out io.Writer) error {
	for i := 0; i < opts.runs; i++ {
		seed := opts.seed + uint64(i)
		p, err := botplayer.New(opts.bot, botplayer.NewRand(seed))
		if err != nil {
			return err
		}

		res, err := botplayer.Run(ctx, svc, p, opts.maxTicks)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				Logger.Info("Bot runs interrupted", "completed", i)
				return nil
			}
			return fmt.Errorf("bot run %d: %w", i+1, err)
		}

		outcome := ""
		if rec := svc.LastRecord(); rec != nil {
			outcome = string(rec.Outcome)
		}
		fmt.Fprintf(out, "%s run=%d seed=%d session=%s ticks=%d outcome=%s\n",
			p.Name(), i+1, seed, res.SessionID, res.Ticks, outcome)
	}
	return nil
}

// outputDir resolves where --getjson writes files.
func outputDir(opts options) string {
	if opts.outDir != "" {
		return opts.outDir
	}
	return filepath.Clean(viper.GetString("storage.memory.outputDir"))
}

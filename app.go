package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"somaradio/config"
	"somaradio/media"
	"somaradio/model"
	"somaradio/nowplaying"
	"somaradio/player"
	"somaradio/server"
	"somaradio/tui"
)

const logFileName = "somaradio.log"

// appOptions is the application graph. The run mode decides whether the
// terminal UI or the control server is invoked.
func appOptions(flags Flags) fx.Option {
	run := fx.Invoke(runTUI)
	if flags.Server {
		run = fx.Invoke(runServer)
	}

	return fx.Options(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),

		fx.Supply(flags),
		fx.Provide(
			resolveConfigPath,
			newConfig,
			newLogger,
			newSink,
			newPoller,
			newController,
		),

		run,
	)
}

type configPath string

func resolveConfigPath(flags Flags) (configPath, error) {
	if flags.ConfigPath != "" {
		return configPath(flags.ConfigPath), nil
	}
	path, err := config.Path()
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return configPath(path), nil
}

// newConfig loads the saved config and applies the command line overrides.
// A broken file falls back to the defaults.
func newConfig(flags Flags, path configPath) config.Config {
	cfg, err := config.LoadFrom(string(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Failed to load config, using defaults: %v\n", err)
	}
	return applyFlags(cfg, flags)
}

func applyFlags(cfg config.Config, flags Flags) config.Config {
	if flags.StationID != "" {
		cfg.LastStationID = flags.StationID
	}
	if flags.VolumePercent >= 0 {
		cfg.Volume = min(float64(flags.VolumePercent)/100, 1)
	}
	return cfg
}

// newLogger logs to stderr in server mode. The terminal UI owns the screen,
// so there it logs to a file next to the config.
func newLogger(flags Flags, cfg config.Config, path configPath) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	if !flags.Server {
		logPath := filepath.Join(filepath.Dir(string(path)), logFileName)
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, err
		}
		zcfg.OutputPaths = []string{logPath}
		zcfg.ErrorOutputPaths = []string{logPath}
	}
	return zcfg.Build()
}

func newSink(lc fx.Lifecycle, logger *zap.Logger, cfg config.Config) *media.FFmpegSink {
	sink := media.NewFFmpegSink(logger.Named("sink"), cfg.FFmpegPath, cfg.Volume)
	lc.Append(fx.StopHook(sink.Close))
	return sink
}

func newPoller(logger *zap.Logger, cfg config.Config) *nowplaying.Poller {
	fetcher := nowplaying.NewHTTPFetcher(logger.Named("feed"))
	renderer := nowplaying.NewLogRenderer(logger.Named("nowplaying"))
	return nowplaying.NewPoller(logger.Named("poller"), fetcher, renderer, nowplaying.Options{
		Interval:    cfg.PollInterval(),
		HistorySize: cfg.HistorySize,
	})
}

func controllerOptions(cfg config.Config) player.Options {
	opts := player.DefaultOptions()
	opts.Autoplay = true
	opts.InitialVolume = cfg.Volume
	opts.Muted = cfg.Muted
	opts.HealthCheckInterval = cfg.HealthCheckInterval()
	return opts
}

// newController tunes in the initial station on start and tears the session
// down on stop, before the sink closes.
func newController(lc fx.Lifecycle, logger *zap.Logger, sink *media.FFmpegSink, poller *nowplaying.Poller, cfg config.Config) *player.Controller {
	opts := controllerOptions(cfg)
	ctrl := player.NewController(
		logger.Named("player"),
		sink,
		player.NewHLSClientFactory(logger, opts.HLS),
		poller,
		opts,
	)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			station, ok := model.InitialStation(cfg.StationList(), cfg.LastStationID)
			if !ok {
				logger.Warn("Station catalog is empty")
				return nil
			}
			logger.Info("Tuning in", zap.String("station", station.ID))
			// Load errors are retried by the controller itself.
			if err := ctrl.LoadStation(station); err != nil {
				logger.Warn("Initial station failed to load", zap.String("station", station.ID), zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return ctrl.Close()
		},
	})
	return ctrl
}

func runServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, logger *zap.Logger, flags Flags, cfg config.Config, ctrl *player.Controller, poller *nowplaying.Poller) {
	srv := server.NewServer(logger.Named("server"), flags.Host, flags.Port, ctrl, poller, cfg.StationList())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("Control server failed", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func runTUI(lc fx.Lifecycle, shutdowner fx.Shutdowner, logger *zap.Logger, cfg config.Config, path configPath, ctrl *player.Controller, poller *nowplaying.Poller) {
	save := func(c config.Config) error {
		return config.SaveTo(string(path), c)
	}
	program := tui.NewProgram(tui.NewModel(logger.Named("tui"), ctrl, poller, cfg, save))
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				exitCode := 0
				if _, err := program.Run(); err != nil {
					logger.Error("Terminal UI failed", zap.Error(err))
					exitCode = 1
				}
				_ = shutdowner.Shutdown(fx.ExitCode(exitCode))
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			program.Quit()
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		},
	})
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogpu/gg"
	"golang.org/x/time/rate"

	"github.com/youruser/frameapp/internal/api"
	"github.com/youruser/frameapp/internal/assets"
	"github.com/youruser/frameapp/internal/config"
	imagepkg "github.com/youruser/frameapp/internal/image"
	"github.com/youruser/frameapp/internal/logger"
	"github.com/youruser/frameapp/internal/metrics"
	"github.com/youruser/frameapp/internal/util"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the TOML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "frameapp:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Log.File != "" {
		if err := util.EnsureParentDir(cfg.Log.File); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}
	log, closer := logger.NewLogger(cfg.Log.File, logger.ParseLevel(cfg.Log.Level), cfg.Log.MaxSizeMB)
	defer closer.Close()
	slog.SetDefault(log)
	gg.SetLogger(log.WithGroup("gg"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	set := assets.NewSet(assets.Paths{
		Portrait:  cfg.AssetPath(cfg.Assets.FramePortrait),
		Landscape: cfg.AssetPath(cfg.Assets.FrameLandscape),
		Font:      cfg.AssetPath(cfg.Assets.Font),
		FontGlobs: cfg.FontGlobs(),
	}, log)
	if cfg.Assets.RequireFrames {
		if err := checkFrames(set); err != nil {
			return err
		}
	}
	metrics.SetAssetsReady(set.FramesReady())
	if cfg.Assets.Watch {
		onChange := func([]string) { metrics.SetAssetsReady(set.FramesReady()) }
		if err := set.Watch(ctx, onChange); err != nil {
			log.Warn("asset watching disabled", "error", err)
		}
	}

	var fetcher imagepkg.BytesGetter
	if cfg.Fetch.Enabled {
		var opts []util.FetcherOption
		if cfg.Fetch.AllowPrivateNetworks {
			log.Warn("image_url may reach private networks")
			opts = append(opts, util.WithPrivateNetworks())
		}
		fetcher = util.NewFetcher(
			time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second,
			cfg.Fetch.RetryMax,
			cfg.MaxUploadBytes(),
			log.With("component", "fetch"),
			opts...,
		)
	}

	var limiter *api.RateLimiter
	if cfg.Server.RatePerSecond > 0 {
		limiter = api.NewRateLimiter(ctx, rate.Limit(cfg.Server.RatePerSecond), cfg.Server.RateBurst)
	}

	if logger.ParseLevel(cfg.Log.Level) > logger.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestID(), api.RequestLogger(log))
	r.MaxMultipartMemory = cfg.MaxUploadBytes()
	api.RegisterRoutes(r, api.NewHandler(cfg, set, fetcher, log), limiter)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Server.Addr, "assets", cfg.Assets.Dir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// checkFrames decodes both frame images so a broken install fails at startup
// rather than on the first request.
func checkFrames(set *assets.Set) error {
	for _, o := range []assets.Orientation{assets.Portrait, assets.Landscape} {
		path := set.FramePath(o)
		if _, err := imagepkg.LoadFrame(path); err != nil {
			return fmt.Errorf("%s frame %s: %w (set assets.require_frames = false to start anyway)", o, path, err)
		}
	}
	return nil
}

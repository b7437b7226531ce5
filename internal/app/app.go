// Package app wires the store, services and HTTP router from a
// configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/antrak/internal/api"
	"github.com/jengzang/antrak/internal/cache"
	"github.com/jengzang/antrak/internal/config"
	"github.com/jengzang/antrak/internal/database"
	"github.com/jengzang/antrak/internal/handler"
	"github.com/jengzang/antrak/internal/middleware"
	"github.com/jengzang/antrak/internal/render"
	"github.com/jengzang/antrak/internal/repository"
	"github.com/jengzang/antrak/internal/service"
	"github.com/jengzang/antrak/internal/tiles"
)

// App holds the wired components.
type App struct {
	Config  *config.Config
	Log     *slog.Logger
	DB      *sql.DB
	Tx      *database.TxManager
	Cache   cache.Cache
	Tracks  *repository.TrackRepository
	Track   *service.TrackService
	Report  *service.ReportService
	Maps    *service.MapService
	limiter *middleware.RateLimiter
	closers []func() error
}

// New opens the database, applies migrations and builds the services.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log, DB: db}
	a.closers = append(a.closers, db.Close)

	a.Tx = database.NewTxManager(db, nil)
	if err := database.NewMigrationManager(a.Tx).RunMigrations(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisDB, "antrak:")
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Cache = rc
		a.closers = append(a.closers, rc.Close)
	} else {
		a.Cache = cache.NewMemory()
	}

	provider := tiles.Provider(cfg.TileProvider)
	downloader := &tiles.Cached{
		Next:     &tiles.HTTPDownloader{Provider: provider, Client: &http.Client{Timeout: 30 * time.Second}},
		Cache:    a.Cache,
		Provider: provider,
		TTL:      7 * 24 * time.Hour,
	}

	renderer, err := render.New(cfg.MapFormat)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Tracks = repository.NewTrackRepository(a.Tx)
	a.Track = service.NewTrackService(a.Tx, a.Tracks, cfg.Filter.Thresholds(), a.Cache)
	a.Report = service.NewReportService(a.Tracks, cache.Shared(a.Cache), cfg.CacheTTL)
	a.Maps = service.NewMapService(a.Tracks, renderer, downloader, cfg.MapWidth, cfg.MapHeight)
	a.limiter = middleware.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
	return a, nil
}

// Router builds the HTTP router.
func (a *App) Router() *gin.Engine {
	h := api.Handlers{
		Track: handler.NewTrackHandler(a.Track, a.Report, a.Tracks, a.Config.MaxMemory),
	}
	return api.SetupRouter(a.Config, h, a.Log, a.limiter)
}

// Serve runs the HTTP server until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: a.Config.Port, Handler: a.Router()}

	if a.Config.RateLimitWindow > 0 {
		go a.sweep(ctx)
	}

	errc := make(chan error, 1)
	go func() {
		a.Log.Info("server starting", slog.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) sweep(ctx context.Context) {
	ticker := time.NewTicker(a.Config.RateLimitWindow)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.limiter.Sweep()
		}
	}
}

// Close releases the database and cache connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

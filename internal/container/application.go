package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/puntodigital/cursosbot/internal/catalog"
	apperrors "github.com/puntodigital/cursosbot/internal/errors"
	"github.com/puntodigital/cursosbot/internal/sentry"
)

const sentryFlushTimeout = 2 * time.Second

// Application is the fully-wired app. All dependencies are injected by the
// container; Run owns the process lifecycle.
type Application struct {
	container *Container
}

func newApplication(c *Container) *Application {
	return &Application{container: c}
}

// Run connects the transport, starts the HTTP control plane and the
// background jobs, then blocks until SIGINT/SIGTERM.
func (a *Application) Run() error {
	c := a.container

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connecting may block on QR pairing the first time; the signal context
	// lets Ctrl-C abort a pairing that never completes.
	if err := c.whatsappClient.Connect(ctx); err != nil {
		return fmt.Errorf("whatsapp connect: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := c.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.refreshCatalog(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	err := g.Wait()
	if err != nil {
		sentry.CaptureException(err)
	}
	sentry.Flush(sentryFlushTimeout)
	return err
}

// refreshCatalog periodically reloads the catalog and swaps the snapshot.
// A reload that comes back empty while the current snapshot has courses is
// treated as a source outage and discarded.
func (a *Application) refreshCatalog(ctx context.Context) {
	c := a.container
	if c.cfg.CatalogRefresh <= 0 {
		c.logger.Info("Catalog refresh disabled")
		return
	}

	ticker := time.NewTicker(c.cfg.CatalogRefresh)
	defer ticker.Stop()

	c.logger.WithField("period", c.cfg.CatalogRefresh.String()).Info("Catalog refresh job started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Catalog refresh received shutdown signal")
			return
		case <-ticker.C:
			a.applyReload(c.catalogLoader.Load(ctx))
		}
	}
}

// applyReload swaps the catalog snapshot. A reload that comes back empty
// while the current snapshot has courses is a source outage: the previous
// snapshot is kept and the swap is reported as skipped.
func (a *Application) applyReload(fresh *catalog.Store) bool {
	c := a.container
	if fresh.Empty() && !c.catalogHolder.Get().Empty() {
		c.logger.WithError(apperrors.ErrCatalogUnavailable).
			Warn("Catalog reload came back empty, keeping previous snapshot")
		sentry.CaptureMessage("catalog reload came back empty, previous snapshot kept")
		return false
	}
	c.catalogHolder.Set(fresh)
	c.logger.WithField("courses", len(fresh.All())).
		WithField("eligible", len(fresh.Eligible())).
		Info("Catalog refreshed")
	return true
}

// shutdown stops the HTTP server, then closes the container.
func (a *Application) shutdown() error {
	c := a.container
	c.logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownTimeout)
	defer cancel()

	if err := c.httpServer.Shutdown(shutdownCtx); err != nil {
		c.logger.WithError(err).Error("HTTP server shutdown error")
	}

	if err := c.Close(); err != nil {
		return fmt.Errorf("container close: %w", err)
	}

	c.logger.Info("Shutdown complete")
	return nil
}

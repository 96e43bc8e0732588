package cli

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/aretw0/suitemux/internal/config"
	"github.com/aretw0/suitemux/internal/presentation/tui"
	suitehttp "github.com/aretw0/suitemux/pkg/adapters/http"
	"github.com/aretw0/suitemux/pkg/adapters/memory"
	suiteredis "github.com/aretw0/suitemux/pkg/adapters/redis"
	"github.com/go-chi/chi/v5"
	"github.com/muesli/termenv"
)

// SuitesPath prefixes the routes of served processes.
const SuitesPath = "/suites/"

// ServeOptions contains the flags of the serve command.
type ServeOptions struct {
	// Listener overrides the configured HTTP address.
	Listener net.Listener
	// NoHTTP serves the Redis queue only.
	NoHTTP bool
	Quiet  bool
}

// PageHandler serves every page of pages as a remote child under
// SuitesPath/<name>.
func PageHandler(pages *memory.Loader) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
	})
	r.Get(SuitesPath+"{name}", func(w http.ResponseWriter, r *http.Request) {
		page, err := pages.Lookup(chi.URLParam(r, "name"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		suitehttp.PageHandler(page).ServeHTTP(w, r)
	})
	return r
}

// Serve answers child requests with the registered processes until ctx is
// done: over HTTP, and over the Redis queue when one is configured.
func Serve(ctx context.Context, cfg config.Config, env Env, opts ServeOptions) error {
	app, err := NewApp(cfg, env)
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.Ping(ctx); err != nil {
		return err
	}
	if opts.NoHTTP && app.Redis == nil {
		return errors.New("nothing to serve: HTTP disabled and no Redis address configured")
	}

	if !opts.Quiet {
		profile := termenv.Ascii
		if isTerminal(app.env.Stderr) {
			profile = termenv.ColorProfile()
		}
		tui.PrintBanner(app.env.Stderr, profile)
	}

	pages := app.Pages()
	errc := make(chan error, 2)
	running := 0

	if !opts.NoHTTP {
		srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: PageHandler(pages)}
		ln := opts.Listener
		if ln == nil {
			if ln, err = net.Listen("tcp", srv.Addr); err != nil {
				return err
			}
		}
		running++
		go func() {
			if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				errc <- err
				return
			}
			errc <- nil
		}()
		defer shutdown(srv)
		if !opts.Quiet {
			printSystemMessage(app.env.Stderr, "Serving %v on http://%s%s", pages.Paths(), ln.Addr(), SuitesPath)
		}
	}

	if app.Redis != nil {
		worker := suiteredis.NewWorker(app.Redis, pages, app.redisOptions()...)
		running++
		go func() {
			if err := worker.Serve(ctx); !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				errc <- err
				return
			}
			errc <- nil
		}()
		if !opts.Quiet {
			printSystemMessage(app.env.Stderr, "Serving %v on redis %s", pages.Paths(), cfg.Redis.Addr)
		}
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		if err == nil {
			// One side stopped cleanly, keep the other until ctx is done.
			if running > 1 {
				<-ctx.Done()
			}
			return nil
		}
		return err
	}
}

package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aretw0/suitemux/internal/config"
	suitehttp "github.com/aretw0/suitemux/pkg/adapters/http"
	"github.com/aretw0/suitemux/pkg/domain"
)

// RunOptions contains the flags of the run command.
type RunOptions struct {
	// Children are --child values, declared after the configured children.
	Children []string
	// Status serves the run status on the configured HTTP address while running.
	Status bool
	Quiet  bool
}

// Run executes the local suite together with every declared child and
// returns the merged counters.
func Run(ctx context.Context, cfg config.Config, env Env, opts RunOptions) (domain.Stats, error) {
	app, err := NewApp(cfg, env)
	if err != nil {
		return domain.Stats{}, err
	}
	defer app.Close()
	if err := app.Ping(ctx); err != nil {
		return domain.Stats{}, err
	}

	extra := make([]config.Child, 0, len(opts.Children))
	for _, c := range opts.Children {
		extra = append(extra, ParseChild(c))
	}
	ctl, err := app.Controller(extra...)
	if err != nil {
		return domain.Stats{}, err
	}
	defer ctl.Close()

	local, err := app.Local()
	if err != nil {
		return domain.Stats{}, err
	}

	if opts.Status {
		srv := &http.Server{
			Addr: cfg.HTTP.Addr,
			Handler: suitehttp.NewHandler(ctl,
				suitehttp.WithMetrics(app.Registry),
				suitehttp.WithLogger(app.logger),
			),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				app.logger.Error("status server failed", "addr", srv.Addr, "error", err)
			}
		}()
		defer shutdown(srv)
		if !opts.Quiet {
			printSystemMessage(app.env.Stderr, "Status on %s", srv.Addr)
		}
	}

	return ctl.Run(ctx, local)
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
	}
}

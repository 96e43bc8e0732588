package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aretw0/suitemux"
	"github.com/aretw0/suitemux/internal/config"
	"github.com/aretw0/suitemux/pkg/adapters/memory"
	"github.com/aretw0/suitemux/pkg/adapters/process"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/ports"
)

// RedisScheme marks children served by a Redis worker: redis:<process>?k=v.
const RedisScheme = "redis"

// SchemeLoader dispatches each child to the loader registered for the scheme
// of its location.
type SchemeLoader struct {
	loaders map[string]ports.Loader
}

// NewSchemeLoader creates a SchemeLoader. Schemes are matched case-insensitively.
func NewSchemeLoader(loaders map[string]ports.Loader) *SchemeLoader {
	l := &SchemeLoader{loaders: make(map[string]ports.Loader, len(loaders))}
	for scheme, loader := range loaders {
		l.loaders[strings.ToLower(scheme)] = loader
	}
	return l
}

func (l *SchemeLoader) Load(ctx context.Context, hs ports.Handshake) (ports.Instance, error) {
	u, err := url.Parse(hs.Location())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownLocation, hs.Location())
	}
	loader, ok := l.loaders[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: no loader for scheme %q", domain.ErrUnknownLocation, u.Scheme)
	}
	return loader.Load(ctx, hs)
}

var _ ports.Loader = (*SchemeLoader)(nil)

// ParseChild reads a --child flag: "location" or "label=location". An "="
// inside the query of a bare location does not start a label.
func ParseChild(s string) config.Child {
	label, location, found := strings.Cut(s, "=")
	if !found || strings.ContainsAny(label, "?") {
		return config.Child{Location: s}
	}
	return config.Child{Label: strings.TrimSpace(label), Location: strings.TrimSpace(location)}
}

func queryArgs(location string) map[string]string {
	args := make(map[string]string)
	u, err := url.Parse(location)
	if err != nil {
		return args
	}
	for k, v := range u.Query() {
		if len(v) > 0 {
			args[k] = v[0]
		}
	}
	return args
}

// ProcessPage serves a registered process as a remote child: the process runs
// as the local suite of a controller connected to the requesting parent.
func ProcessPage(procs *process.Loader, name string, logger *slog.Logger) memory.Page {
	return func(ctx context.Context, hs ports.Handshake) error {
		local, err := procs.Suite(name, queryArgs(hs.Location()))
		if err != nil {
			return err
		}
		ctl := suitemux.New(suitemux.WithParent(hs), suitemux.WithLogger(logger))
		defer ctl.Close()
		_, err = ctl.Run(ctx, local)
		return err
	}
}

// Pages serves every registered process under its name.
func (a *App) Pages() *memory.Loader {
	pages := memory.NewLoader(nil, memory.WithLoaderLogger(a.logger))
	for _, name := range a.Processes.Names() {
		pages.Handle(name, ProcessPage(a.Processes, name, a.logger))
	}
	return pages
}

func emptySuite() ports.Runnable {
	return memory.NewRunner()
}

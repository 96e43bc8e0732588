package redis

import (
	"log/slog"

	"github.com/aretw0/suitemux/internal/logging"
)

// DefaultPrefix namespaces every key and channel.
const DefaultPrefix = "suitemux:"

// Request is the work item pushed for every child. Workers pop it from the
// requests list and answer on the handle's events channel.
type Request struct {
	Handle   string `json:"handle"`
	Label    string `json:"label"`
	Location string `json:"location"`
}

type config struct {
	prefix string
	logger *slog.Logger
}

// Option configures a Loader or a Worker.
type Option func(*config)

// WithPrefix sets the key prefix (default "suitemux:").
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func newConfig(opts []Option) config {
	c := config{prefix: DefaultPrefix, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c config) requestsKey() string {
	return c.prefix + "requests"
}

func (c config) eventsChannel(handle string) string {
	return c.prefix + "events:" + handle
}

package process

import (
	"io"
	"os"
	"strings"

	"github.com/aretw0/suitemux/pkg/wire"
)

// ParentFromEnv returns the handshake of a program spawned by a Loader. Its
// records are written to w, normally os.Stdout. ok is false when the program
// was not spawned as a child.
func ParentFromEnv(w io.Writer) (parent *wire.Parent, ok bool) {
	id := os.Getenv(EnvHandle)
	if id == "" {
		return nil, false
	}
	return wire.NewParent(id, os.Getenv(EnvLabel), os.Getenv(EnvLocation), w), true
}

// ArgsFromEnv returns the query arguments of the child location, keyed by
// their environment form (upper case).
func ArgsFromEnv() map[string]string {
	args := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, found := strings.Cut(kv, "=")
		if !found || !strings.HasPrefix(k, EnvArgPrefix) {
			continue
		}
		args[strings.TrimPrefix(k, EnvArgPrefix)] = v
	}
	return args
}

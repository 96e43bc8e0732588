package reporter

import (
	"fmt"
	"os"
	"sort"

	"github.com/aretw0/suitemux/pkg/ports"
	"github.com/aretw0/suitemux/pkg/wire"
)

// NDJSON writes the merged stream as wire records, one per line.
func NDJSON(stream ports.Stream, opts ports.ReporterOptions) error {
	w := opts.Output
	if w == nil {
		w = os.Stdout
	}
	wire.Publish(stream, wire.NewEncoder(w))
	return nil
}

// None attaches nothing.
func None(ports.Stream, ports.ReporterOptions) error {
	return nil
}

var factories = map[string]ports.ReporterFactory{
	"spec":   Spec,
	"ndjson": NDJSON,
	"none":   None,
}

// ByName returns the reporter registered under name.
func ByName(name string) (ports.ReporterFactory, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown reporter %q (available: %v)", name, Names())
	}
	return f, nil
}

// Names lists the available reporters.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package http

import (
	"net/http"

	"github.com/aretw0/suitemux/pkg/adapters/memory"
	"github.com/aretw0/suitemux/pkg/wire"
)

// ContentType of a child's wire stream.
const ContentType = "application/x-ndjson"

// PageHandler serves page as a remote child. The request must carry the
// handshake headers sent by Loader; the response streams the page's records
// until its run ends.
func PageHandler(page memory.Page) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderHandle)
		if id == "" {
			http.Error(w, "missing "+HeaderHandle+" header", http.StatusBadRequest)
			return
		}
		location := r.Header.Get(HeaderLocation)
		if location == "" {
			location = r.URL.String()
		}

		w.Header().Set("Content-Type", ContentType)
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		parent := wire.NewParent(id, r.Header.Get(HeaderLabel), location, w)
		if err := page(r.Context(), parent); err != nil {
			parent.Fail(err)
			return
		}
		_ = parent.Wait(r.Context())
	})
}

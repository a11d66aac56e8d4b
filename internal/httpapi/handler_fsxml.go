package httpapi

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"voip-router/internal/fsxml"
	"voip-router/internal/models"
	"voip-router/internal/routing"
)

type Lookuper interface {
	Lookup(ctx context.Context, params url.Values) (*fsxml.Document, models.ResolvedIdentity, error)
}

// XMLCurlHandler answers mod_xml_curl. The switch always gets HTTP 200 and
// a well-formed document; every failure becomes the not-found document.
func XMLCurlHandler(svc Lookuper, deadline time.Duration) http.HandlerFunc {
	if deadline <= 0 {
		deadline = 2 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		doc := fsxml.NotFound()

		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic while building xml document", "request_id", chimw.GetReqID(r.Context()), "panic", rec)
				writeXML(w, fsxml.NotFound())
				return
			}
			writeXML(w, doc)
		}()

		if err := r.ParseForm(); err != nil {
			slog.Warn("unreadable xml_curl request", "request_id", chimw.GetReqID(r.Context()), "error", err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), deadline)
		defer cancel()

		found, id, err := svc.Lookup(ctx, r.Form)
		if err != nil {
			logLookupFailure(r, id, err)
			return
		}
		doc = found
	}
}

func logLookupFailure(r *http.Request, id models.ResolvedIdentity, err error) {
	attrs := []any{
		"request_id", chimw.GetReqID(r.Context()),
		"section", id.Section,
		"user", id.User,
		"context", id.Context,
		"destination", id.Destination,
		"error", err,
	}
	if id.Tenant != nil {
		attrs = append(attrs, "tenant", id.Tenant.Slug)
	}

	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, routing.ErrNoRoute):
		slog.Info("xml_curl lookup not found", attrs...)
	case errors.Is(err, models.ErrConfigInvalid):
		slog.Warn("xml_curl lookup hit invalid configuration", attrs...)
	default:
		slog.Error("xml_curl lookup failed", attrs...)
	}
}

// writeXML renders into a buffer first so an encoding failure still yields
// a complete not-found document.
func writeXML(w http.ResponseWriter, doc *fsxml.Document) {
	var buf bytes.Buffer
	if err := fsxml.Encode(&buf, doc); err != nil {
		slog.Error("failed to encode xml document", "error", err)
		buf.Reset()
		_ = fsxml.Encode(&buf, fsxml.NotFound())
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

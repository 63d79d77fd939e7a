package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

type Handler struct {
	service      *Service
	maxBodyBytes int64
}

func NewHandler(service *Service, maxBodyBytes int64) *Handler {
	return &Handler{service: service, maxBodyBytes: maxBodyBytes}
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	chunks, err := DecodeChunks(r.Body)
	if err != nil {
		slog.WarnContext(ctx, "rejected ingest payload", "error", err)
		h.writeResult(ctx, w, http.StatusBadRequest, Result{OK: false, Error: err.Error()})
		return
	}

	processed, err := h.service.Process(ctx, chunks)
	if err != nil {
		h.writeResult(ctx, w, http.StatusInternalServerError, Result{OK: false, Error: Message(err)})
		return
	}

	h.writeResult(ctx, w, http.StatusOK, Result{OK: true, Count: &processed})
}

// NotFound answers every route other than POST /ingest.
func NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if _, err := w.Write([]byte("Not Found")); err != nil {
		slog.ErrorContext(r.Context(), "failed to write response", "error", err)
	}
}

func (h *Handler) writeResult(ctx context.Context, w http.ResponseWriter, status int, res Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

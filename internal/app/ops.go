package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/supportbot/core/buildinfo"
	"github.com/m3rciful/supportbot/core/logger"
	"github.com/m3rciful/supportbot/core/telegram/sender"
	"github.com/m3rciful/supportbot/internal/support"
)

// opsDeps are the read-only views exposed over HTTP. Any field may be nil.
type opsDeps struct {
	Stats func() support.Stats
	// Ping checks the journal; nil means the journal is disabled.
	Ping       func(ctx context.Context) error
	Sender     func() sender.Stats
	LogDropped func() uint64
}

type statsResponse struct {
	support.Stats
	Sender     sender.Stats   `json:"sender"`
	LogDropped uint64         `json:"log_dropped"`
	Journal    bool           `json:"journal"`
	Build      buildinfo.Info `json:"build"`
}

func newOpsRouter(deps opsDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if deps.Ping != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		resp := statsResponse{Journal: deps.Ping != nil, Build: buildinfo.Current()}
		if deps.Stats != nil {
			resp.Stats = deps.Stats()
		}
		if deps.Sender != nil {
			resp.Sender = deps.Sender()
		}
		if deps.LogDropped != nil {
			resp.LogDropped = deps.LogDropped()
		}
		writeJSON(w, http.StatusOK, resp)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.LogEvent(r.Context(), logger.Ops, slog.LevelDebug, "http.request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("code", ww.Status()),
			slog.String("req_id", middleware.GetReqID(r.Context())),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
	})
}

// opsServer runs the ops router on its own listener.
type opsServer struct {
	srv  *http.Server
	done chan struct{}
}

func startOps(addr string, h http.Handler) *opsServer {
	s := &opsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
		},
		done: make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		logger.Ops.Info("ops listening", slog.String("event", "ops.start"), slog.String("addr", addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Ops.Error("ops server failed", slog.String("event", "ops.fail"), slog.String("err", err.Error()))
		}
	}()
	return s
}

func (s *opsServer) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ChuLiYu/widgetsync/internal/metrics"
	"github.com/ChuLiYu/widgetsync/pkg/types"
)

const maxBodyBytes = 1 << 20

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Logger      *slog.Logger
	Metrics     *metrics.Collector // nil 時不提供 /metrics
	MetricsPath string             // 預設 /metrics
}

// NewHTTPHandler 建立 HTTP 路由
//
// 路由：
//   - GET|POST /action   執行 action
//   - GET|POST /         帶 ?action= 時同上，否則 404
//   - GET /healthz       存活檢查
//   - GET /metrics       Prometheus 指標（若啟用）
func NewHTTPHandler(d *Dispatcher, cfg HTTPConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	h := &httpHandler{dispatcher: d, log: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		r.Handle(cfg.MetricsPath, cfg.Metrics.Handler())
	}
	r.Get("/action", h.action)
	r.Post("/action", h.action)
	r.Get("/", h.root)
	r.Post("/", h.root)
	return r
}

type httpHandler struct {
	dispatcher *Dispatcher
	log        *slog.Logger
}

func (h *httpHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (h *httpHandler) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get(types.KeyAction) == "" && r.Method == http.MethodGet {
		http.NotFound(w, r)
		return
	}
	h.action(w, r)
}

func (h *httpHandler) action(w http.ResponseWriter, r *http.Request) {
	params, err := requestParams(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.dispatcher.Dispatch(params)
	if err != nil {
		if errors.Is(err, ErrUnknownAction) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error("Action failed", "action", params[types.KeyAction], "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(result)
	if err != nil {
		h.log.Error("Failed to encode response", "action", params[types.KeyAction], "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(body)
}

// requestParams flattens query, form and JSON body into one map. JSON values
// that are not strings (the events array) are kept as raw JSON text.
func requestParams(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	params := make(map[string]string)
	for k, v := range r.URL.Query() {
		params[k] = v[0]
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if r.Method != http.MethodPost {
		return params, nil
	}
	if mediaType == "application/json" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
		if len(data) == 0 {
			return params, nil
		}
		var body map[string]json.RawMessage
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		for k, raw := range body {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				params[k] = s
			} else {
				params[k] = string(raw)
			}
		}
		return params, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form: %w", err)
	}
	for k, v := range r.PostForm {
		params[k] = v[0]
	}
	return params, nil
}

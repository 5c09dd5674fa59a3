package server

import (
	"errors"
	"net/http"
	"runtime/debug"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xtding233/wheel-backend/internal/wheel"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type errResp struct {
	Err    string `json:"err"`
	Reason string `json:"reason,omitempty"`
}

// NewHandler returns the HTTP API of svc.
func NewHandler(svc *Service, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{svc: svc, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /wheel", h.wheel)
	mux.HandleFunc("POST /spin", h.spin)
	mux.HandleFunc("POST /complete", h.complete)
	mux.HandleFunc("GET /state", h.state)
	mux.HandleFunc("GET /simulate", h.simulate)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	return recoverMiddleware(log, mux)
}

type handler struct {
	svc *Service
	log *zap.Logger
}

func (h *handler) wheel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Wheel())
}

func (h *handler) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.State())
}

func (h *handler) spin(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Spin()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) complete(w http.ResponseWriter, r *http.Request) {
	idx, ok, msg := parseInt(r, "index")
	if !ok || msg != "" {
		http.Error(w, "missing/invalid param index", http.StatusBadRequest)
		return
	}
	ann, err := h.svc.Complete(idx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ann)
}

func (h *handler) simulate(w http.ResponseWriter, r *http.Request) {
	trials, ok, msg := parseInt(r, "trials")
	if msg != "" || (ok && (trials <= 0 || trials > MaxSimTrials)) {
		http.Error(w, "invalid param trials", http.StatusBadRequest)
		return
	}
	if !ok {
		trials = 10_000
	}
	var seed uint64
	if s := r.URL.Query().Get("seed"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			http.Error(w, "invalid seed", http.StatusBadRequest)
			return
		}
		seed = v
	}
	rep, err := h.svc.Simulate(trials, seed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func parseInt(r *http.Request, key string) (int, bool, string) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, false, ""
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, "invalid " + key
	}
	return v, true, ""
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := errResp{Err: err.Error()}
	code := http.StatusInternalServerError
	var rej *wheel.SpinRejected
	switch {
	case errors.As(err, &rej):
		resp.Reason = string(rej.Reason)
		code = http.StatusConflict
	case errors.Is(err, wheel.ErrNotSpinning),
		errors.Is(err, wheel.ErrCompletionMismatch),
		errors.Is(err, wheel.ErrStaleSpin),
		errors.Is(err, ErrManualCompletion):
		code = http.StatusConflict
	case errors.Is(err, wheel.ErrIndexOutOfRange):
		code = http.StatusBadRequest
	}
	writeJSON(w, code, resp)
}

func recoverMiddleware(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if e := recover(); e != nil {
				log.Error("panic serving request",
					zap.String("path", r.URL.Path),
					zap.Any("panic", e),
					zap.ByteString("stack", debug.Stack()),
				)
				writeJSON(w, http.StatusInternalServerError, errResp{Err: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Zhima-Mochi/minishop-assistant/internal/application/assistant"
	"github.com/Zhima-Mochi/minishop-assistant/internal/application/dispatcher"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/shoperr"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability/logctx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerSessionID      = "X-Session-ID"

	maxBodyBytes = 1 << 20
)

type Dispatcher interface {
	Dispatch(ctx context.Context, sid string, req dispatcher.Request) (any, error)
}

type Assistant interface {
	Handle(ctx context.Context, sid, message string) (*assistant.Result, error)
}

type Handler struct {
	dispatcher Dispatcher
	assistant  Assistant
	metrics    http.Handler
	origins    []string
	log        observability.Logger

	requests observability.Counter   // http_requests_total{method,route,status}
	latency  observability.Histogram // http_request_duration_seconds{method,route,status}
}

type Option func(*Handler)

// WithAllowedOrigins enables CORS for browser clients on the listed origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Handler) { h.origins = origins }
}

// NewHandler wires the chat endpoints. metricsHandler is served at /metrics
// when non-nil.
func NewHandler(d Dispatcher, a Assistant, metricsHandler http.Handler, tel observability.Observability, opts ...Option) *Handler {
	log, _, metrics := observability.Parts(tel)
	h := &Handler{
		dispatcher: d,
		assistant:  a,
		metrics:    metricsHandler,
		log:        log.With(observability.F("component", componentHTTPHandler)),
		requests:   metrics.Counter(observability.MHTTPRequests),
		latency:    metrics.Histogram(observability.MHTTPRequestDuration),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if len(h.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", headerRequestID, headerSessionID},
			ExposedHeaders: []string{headerRequestID, headerSessionID},
			MaxAge:         300,
		}))
	}

	// Trace → Request Logger → Access Log → HTTP metrics → Handler
	h.handle(r, http.MethodPost, "/chat", h.handleChat)
	h.handle(r, http.MethodPost, "/chat-nlp", h.handleChatNLP)
	h.handle(r, http.MethodGet, "/health", h.handleHealth)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		_ = writeJSON(w, http.StatusNotFound, errorBody{Error: "not found", Kind: "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		_ = writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed", Kind: "method_not_allowed"})
	})
	return r
}

func (h *Handler) handle(r chi.Router, method, route string, handler http.HandlerFunc) {
	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string { return r.Header.Get(headerRequestID) },
			func(r *http.Request) string { return strings.TrimSpace(r.Header.Get(headerSessionID)) },
		)(
			h.withAccessLog(
				h.withHTTPMetrics(handler),
			),
		),
	)
	r.Method(method, route, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Store stable route template for low-cardinality labels
		wrapped.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), route)))
	}))
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req dispatcher.Request
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.dispatcher.Dispatch(r.Context(), SessionFromContext(r.Context()), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, resp)
}

type chatNLPRequest struct {
	Message string `json:"message"`
}

func (h *Handler) handleChatNLP(w http.ResponseWriter, r *http.Request) {
	var req chatNLPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.assistant.Handle(r.Context(), SessionFromContext(r.Context()), req.Message)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, res)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		return shoperr.Validation(shoperr.FieldError{Field: "body", Message: msg})
	}
	return nil
}

const encodeFailureBody = `{"error":"internal error","kind":"internal_error"}` + "\n"

// writeJSON encodes body before touching the response, so an unencodable
// value becomes a 500 instead of a 200 with a truncated body.
func writeJSON(w http.ResponseWriter, status int, body any) error {
	var buf bytes.Buffer
	err := json.NewEncoder(&buf).Encode(body)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, encodeFailureBody)
		return err
	}
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
	return nil
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, body any) {
	if err := writeJSON(w, status, body); err != nil {
		logctx.FromOr(r.Context(), h.log).Error("http_encode_error", observability.F("error", err))
	}
}

type errorBody struct {
	Error  string   `json:"error"`
	Kind   string   `json:"kind"`
	Fields []string `json:"fields,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	kind := shoperr.KindOf(err)
	msg := shoperr.MessageOf(err)
	if kind == shoperr.KindInternal {
		logctx.FromOr(r.Context(), h.log).Error("http_internal_error", observability.F("error", err))
		msg = "internal error"
	}
	h.respond(w, r, status, errorBody{Error: msg, Kind: string(kind), Fields: shoperr.FieldsOf(err)})
}

// StatusFor maps an error onto its HTTP status.
func StatusFor(err error) int {
	switch shoperr.KindOf(err) {
	case shoperr.KindValidation, shoperr.KindInvalidAction:
		return http.StatusBadRequest
	case shoperr.KindUnauthorized:
		return http.StatusUnauthorized
	case shoperr.KindInvalidState:
		return http.StatusUnprocessableEntity
	case shoperr.KindUpstream:
		if shoperr.Unavailable(err) {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

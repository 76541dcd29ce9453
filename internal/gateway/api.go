// ABOUTME: HTTP API for the registry node built on chi
// ABOUTME: Health, account, transaction and event stream endpoints with JSON error bodies

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/ledger"
	"github.com/2389/mythic-metadata/internal/registry"
	"github.com/2389/mythic-metadata/internal/rpc"
)

// maxBodySize bounds POST /api/transactions bodies.
const maxBodySize = 1 << 20

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Code  uint32 `json:"code"`
}

// TransactionsResponse is the body of GET /api/transactions.
type TransactionsResponse struct {
	Slot         uint64            `json:"slot"`
	Transactions []ledger.TxRecord `json:"transactions"`
}

// newRouter builds the HTTP handler.
func (g *Gateway) newRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", g.handleHealth)
	r.Get("/ready", g.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/accounts/{address}", g.handleGetAccount)
		r.Get("/transactions", g.handleListTransactions)
		r.Post("/transactions", g.handleSubmitTransaction)
		r.Get("/events", g.handleEvents)
	})
	return r
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
	})
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the ledger answers.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	slot, err := g.service.LatestSlot(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "ledger unavailable: %v", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (slot %d)", slot)
}

func (g *Gateway) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	view, err := g.service.Account(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		g.sendJSONError(w, r, err)
		return
	}
	g.sendJSON(w, http.StatusOK, view)
}

func (g *Gateway) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			g.sendJSONError(w, r, fmt.Errorf("%w: limit %q is not a non-negative integer", registry.ErrInvalidInstruction, raw))
			return
		}
		limit = n
	}

	slot, err := g.service.LatestSlot(r.Context())
	if err != nil {
		g.sendJSONError(w, r, err)
		return
	}
	txs, err := g.service.Transactions(r.Context(), limit)
	if err != nil {
		g.sendJSONError(w, r, err)
		return
	}
	if txs == nil {
		txs = []ledger.TxRecord{}
	}
	g.sendJSON(w, http.StatusOK, TransactionsResponse{Slot: slot, Transactions: txs})
}

func (g *Gateway) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var req rpc.SubmitTransactionRequest
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		g.sendJSONError(w, r, fmt.Errorf("%w: decoding request: %v", registry.ErrInvalidInstruction, err))
		return
	}

	receipt, err := g.service.Submit(r.Context(), req.Transaction)
	if err != nil {
		g.sendJSONError(w, r, err)
		return
	}
	g.sendJSON(w, http.StatusOK, rpc.SubmitTransactionResponse{
		ID:   receipt.ID,
		Op:   string(receipt.Op),
		Slot: receipt.Slot,
	})
}

// handleEvents streams committed transactions as server-sent events. The
// optional account query parameter restricts the stream to transactions
// that wrote that account.
func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	var account address.Pubkey
	if raw := r.URL.Query().Get("account"); raw != "" {
		pk, err := address.Parse(raw)
		if err != nil {
			g.sendJSONError(w, r, fmt.Errorf("%w: account %q: %v", registry.ErrInvalidInstruction, raw, err))
			return
		}
		account = pk
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		g.sendJSONError(w, r, fmt.Errorf("%w: streaming not supported", registry.ErrInternal))
		return
	}

	ch := g.service.Subscribe(r.Context(), account)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range ch {
		g.writeSSEEvent(w, "transaction", ev)
		flusher.Flush()
	}
}

func (g *Gateway) writeSSEEvent(w http.ResponseWriter, event string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		g.logger.Error("failed to marshal SSE data", "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}

// HTTPStatus maps a registry error to its HTTP status code.
func HTTPStatus(err error) int {
	switch registry.KindOf(err) {
	case registry.KindAlreadyExists, registry.KindConflict:
		return http.StatusConflict
	case registry.KindNotFound:
		return http.StatusNotFound
	case registry.KindUnauthorized:
		if errors.Is(err, registry.ErrSignatureInvalid) || errors.Is(err, registry.ErrSignatureExpired) {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case registry.KindInvalidArgument:
		return http.StatusBadRequest
	case registry.KindExhausted:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (g *Gateway) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("writing response", "error", err)
	}
}

func (g *Gateway) sendJSONError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		g.logger.Error("request failed", "path", r.URL.Path, "request_id", RequestID(r.Context()), "error", err)
	}
	g.sendJSON(w, status, ErrorResponse{
		Error: err.Error(),
		Kind:  string(registry.KindOf(err)),
		Code:  registry.CodeOf(err),
	})
}

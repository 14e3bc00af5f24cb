package explorer

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bitvia/bitvia/internal/rpc"
)

// RegisterRoutes mounts the explorer JSON API on the given router.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/mempoolinfo", handleMempool(svc))
		r.Get("/network", handleNetwork(svc))
		r.Get("/blockhash/{height}", handleBlockHash(svc))
		r.Get("/block/{hash}", handleBlock(svc))
		r.Get("/tx/{txid}", handleTx(svc))
		r.Get("/addr/{address}", handleAddr(svc))
		r.Get("/addr/{address}/history", handleAddrHistory(svc))
	})
}

func handleMempool(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Mempool(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleNetwork(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Network(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleBlockHash(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		height, err := strconv.ParseUint(chi.URLParam(r, "height"), 10, 64)
		if err != nil {
			http.Error(w, "height must be a non-negative integer", http.StatusBadRequest)
			return
		}
		view, err := svc.BlockHashByHeight(r.Context(), height)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleBlock(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset := queryInt(r, "offset", 0)
		limit := queryInt(r, "limit", -1)

		view, err := svc.BlockByHash(r.Context(), chi.URLParam(r, "hash"), offset, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleTx(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resolve := queryInt(r, "resolve", -1)

		view, err := svc.TxByID(r.Context(), chi.URLParam(r, "txid"), resolve)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleAddr(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		details := false
		if v := r.URL.Query().Get("details"); v != "" {
			details, _ = strconv.ParseBool(v)
		}

		view, err := svc.AddressBalance(r.Context(), chi.URLParam(r, "address"), details)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleAddrHistory(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset := queryInt(r, "offset", 0)
		limit := queryInt(r, "limit", -1)

		view, err := svc.AddressHistory(r.Context(), chi.URLParam(r, "address"), offset, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// writeError maps backend failures onto HTTP statuses: unknown
// blocks/transactions become 404, bad addresses 400, and everything
// else is reported as an upstream failure.
func writeError(w http.ResponseWriter, err error) {
	var rpcErr *rpc.Error
	if errors.As(err, &rpcErr) {
		msg := strings.ToLower(rpcErr.Message)
		if strings.Contains(msg, "not found") || strings.Contains(msg, "no such mempool or blockchain transaction") ||
			strings.Contains(msg, "block height out of range") {
			http.Error(w, "not found: "+rpcErr.Message, http.StatusNotFound)
			return
		}
	}
	if strings.Contains(err.Error(), "decoding address") || strings.Contains(err.Error(), "is not a") {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if errors.Is(err, ErrNoIndex) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	http.Error(w, "backend request failed: "+err.Error(), http.StatusBadGateway)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Package api provides the HTTP handlers that expose the key-value store.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"github.com/leg100/kvproxy/internal"
	"github.com/leg100/kvproxy/internal/http/decode"
	"github.com/leg100/kvproxy/internal/kv"
)

const (
	// HealthyStatus is the status reported by the health check.
	HealthyStatus = "healthy"
	// SuccessStatus is the status reported upon storing a pair.
	SuccessStatus = "success"

	KeyNotFoundMessage      = "Key not found"
	KeyValueRequiredMessage = "Key and value are required"
)

// Handlers translates HTTP requests into key-value store operations.
type Handlers struct {
	logr.Logger

	Store kv.Store
}

func NewHandlers(logger logr.Logger, store kv.Store) *Handlers {
	return &Handlers{Logger: logger, Store: store}
}

func (h *Handlers) AddHandlers(r *mux.Router) {
	r.HandleFunc("/healthcheck", h.healthcheck).Methods("GET")
	r.HandleFunc("/get/{key}", h.get).Methods("GET")
	r.HandleFunc("/set", h.set).Methods("POST")
}

func (h *Handlers) healthcheck(w http.ResponseWriter, r *http.Request) {
	h.Info("health check requested")
	writeJSON(w, http.StatusOK, map[string]string{"status": HealthyStatus})
}

func (h *Handlers) get(w http.ResponseWriter, r *http.Request) {
	var opts struct {
		Key string `schema:"key,required"`
	}
	if err := decode.Route(&opts, r); err != nil {
		h.Error(err, "decoding get request")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.Info("getting value", "key", opts.Key)

	value, err := h.Store.Get(r.Context(), opts.Key)
	if errors.Is(err, internal.ErrKeyNotFound) {
		h.Info("key not found", "key", opts.Key)
		writeError(w, http.StatusNotFound, KeyNotFoundMessage)
		return
	} else if err != nil {
		h.Error(err, "retrieving value", "key", opts.Key)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Info("retrieved value", "key", opts.Key, "value", value)
	writeJSON(w, http.StatusOK, map[string]string{opts.Key: value})
}

func (h *Handlers) set(w http.ResponseWriter, r *http.Request) {
	h.Info("setting value")

	var pair kv.Pair
	if err := decode.JSON(&pair, r); err != nil {
		h.Error(err, "decoding set request")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := pair.Validate(); errors.Is(err, internal.ErrKeyValueRequired) {
		h.Info("rejected set request", "reason", err.Error())
		writeError(w, http.StatusBadRequest, KeyValueRequiredMessage)
		return
	}
	if err := h.Store.Set(r.Context(), pair.Key, pair.Value); err != nil {
		h.Error(err, "setting value", "key", pair.Key)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Info("set value", "key", pair.Key, "value", pair.Value)
	writeJSON(w, http.StatusCreated, map[string]string{"status": SuccessStatus})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

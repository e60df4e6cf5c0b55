package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ZilDuck/membership-market/internal/daemon"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/internal/repository"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"net/http"
)

type status interface {
	Health() daemon.Health
	Latest() (entity.BillingRun, bool)
}

func router(d status, runs repository.BillingRunRepository) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := d.Health()
		if !health.Healthy {
			writeJson(w, http.StatusServiceUnavailable, health)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "OK")
	}).Methods("GET")

	r.HandleFunc("/runs/latest", func(w http.ResponseWriter, r *http.Request) {
		if run, ok := d.Latest(); ok {
			writeJson(w, http.StatusOK, run)
			return
		}

		run, err := runs.Latest()
		if errors.Is(err, repository.ErrBillingRunNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			zap.L().With(zap.Error(err)).Error("Failed to read latest run")
			http.Error(w, "failed to read latest run", http.StatusInternalServerError)
			return
		}
		writeJson(w, http.StatusOK, run)
	}).Methods("GET")

	return r
}

func writeJson(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

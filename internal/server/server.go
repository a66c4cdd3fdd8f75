// Package server exposes pricing, implied-vol solving and surface builds
// over REST.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/contactkeval/vol-surface/internal/data"
	"github.com/contactkeval/vol-surface/internal/logger"
	"github.com/contactkeval/vol-surface/internal/pricing"
	"github.com/contactkeval/vol-surface/internal/surface"
)

// Server answers requests against one chain provider.
type Server struct {
	prov      data.Provider
	overrides data.Overrides
	cfg       surface.Config
	now       func() time.Time
}

// New returns a server that builds surfaces from prov with cfg, applying
// overrides to every fetched chain.
func New(prov data.Provider, cfg surface.Config, overrides data.Overrides) *Server {
	return &Server{prov: prov, overrides: overrides, cfg: cfg, now: time.Now}
}

// Router wires the endpoints.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	router.HandleFunc("/surface", s.buildSurface).Methods(http.MethodPost)
	router.HandleFunc("/price", s.price).Methods(http.MethodPost)
	router.HandleFunc("/iv", s.impliedVol).Methods(http.MethodPost)
	return router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Handler:           s.Router(),
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	logger.Infof("server gracefully stopped")
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type surfaceRequest struct {
	Ticker string   `json:"ticker"`
	Band   *float64 `json:"band,omitempty"`
}

func (s *Server) buildSurface(w http.ResponseWriter, r *http.Request) {
	var req surfaceRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Ticker == "" {
		writeError(w, http.StatusBadRequest, errors.New("ticker is required"))
		return
	}

	chain, err := data.FetchChain(r.Context(), s.prov, req.Ticker)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	s.overrides.Apply(chain)

	cfg := s.cfg
	if req.Band != nil {
		cfg.Band = *req.Band
	}
	surf, err := surface.NewBuilder(cfg).WithClock(s.now).Build(r.Context(), chain)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, surf)
}

type priceRequest struct {
	pricing.Contract
	Vol float64 `json:"vol"`
}

type priceResponse struct {
	Lattice      float64 `json:"lattice"`
	BlackScholes float64 `json:"black_scholes"`
	Vega         float64 `json:"vega"`
}

func (s *Server) price(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if !decode(w, r, &req) {
		return
	}
	c := s.withSteps(req.Contract)

	var resp priceResponse
	var err error
	if resp.Lattice, err = pricing.LatticePrice(c, req.Vol); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if resp.BlackScholes, err = pricing.BlackScholesMerton(c, req.Vol); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	// vega needs room below vol for the bump; a price without it is still useful
	if resp.Vega, err = pricing.LatticeVega(c, req.Vol); err != nil {
		logger.Debugf("vega unavailable at %v: %v", req.Vol, err)
	}
	writeJSON(w, http.StatusOK, resp)
}

type ivRequest struct {
	pricing.Contract
	Price float64 `json:"price"`
}

func (s *Server) impliedVol(w http.ResponseWriter, r *http.Request) {
	var req ivRequest
	if !decode(w, r, &req) {
		return
	}
	c := s.withSteps(req.Contract)

	res, err := s.cfg.Solver().Solve(c, req.Price)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, pricing.ErrInvalidContract):
		writeError(w, http.StatusBadRequest, err)
	default:
		logger.WithFields(logrus.Fields{"strike": c.Strike, "price": req.Price}).Debugf("iv diverged: %v", err)
		writeJSON(w, http.StatusUnprocessableEntity, res)
	}
}

func (s *Server) withSteps(c pricing.Contract) pricing.Contract {
	if c.Steps == 0 {
		c.Steps = s.cfg.Steps
	}
	if c.Steps == 0 {
		c.Steps = pricing.DefaultSteps
	}
	return c
}

func statusFor(err error) int {
	if errors.Is(err, pricing.ErrInvalidContract) {
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

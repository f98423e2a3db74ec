// Package web serves the bot's status endpoint and Prometheus metrics.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/avolkov/bandbot/internal/domain"
	"github.com/avolkov/bandbot/internal/services/exchange"
	"github.com/avolkov/bandbot/internal/services/strategy/band"
)

type statusReader interface {
	Snapshot() band.Snapshot
}

// Server exposes /status (JSON position view with a live ticker price) and
// /metrics.
type Server struct {
	addr     string
	strategy statusReader
	pricer   exchange.Pricer
	pair     domain.Pair
	logger   *zap.Logger
}

// NewServer creates a new web server instance. The pricer is optional; when
// set, /status includes the current ticker price next to the closed-candle
// price the strategy trades on.
func NewServer(addr string, strategy statusReader, pricer exchange.Pricer, pair domain.Pair, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{addr: addr, strategy: strategy, pricer: pricer, pair: pair, logger: logger}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("web server listening", zap.String("addr", s.addr))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusResponse struct {
	band.Snapshot
	TickerPrice string `json:"ticker_price,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.strategy == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	resp := statusResponse{Snapshot: s.strategy.Snapshot()}
	if s.pricer != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if price, err := s.pricer.GetPrice(ctx, s.pair); err != nil {
			s.logger.Debug("failed to fetch ticker price for status", zap.Error(err))
		} else {
			resp.TickerPrice = price.String()
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode status", zap.Error(err))
	}
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/market-screener/internal/domain"
	"github.com/aristath/market-screener/internal/modules/backtest"
	"github.com/aristath/market-screener/internal/modules/scoring"
	"github.com/aristath/market-screener/internal/modules/screening"
)

const dateLayout = "2006-01-02"

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "market-screener",
	})
}

// screenRequest is the JSON body of POST /api/screen. Callers give either
// a preset name or explicit params; with neither, the default Schloss
// parameter set is used.
type screenRequest struct {
	AsOf         string            `json:"as_of"`
	Preset       string            `json:"preset,omitempty"`
	Params       *screening.Params `json:"params,omitempty"`
	ScoreWeights *scoring.Weights  `json:"score_weights,omitempty"`
}

// resolveParams turns a preset name / explicit params pair into the
// parameter set to screen with.
func (s *Server) resolveParams(preset string, explicit *screening.Params) (screening.Params, error) {
	if preset != "" && explicit != nil {
		return screening.Params{}, domain.NewConfigError("preset", "give either a preset or explicit params, not both")
	}
	if preset != "" {
		p, ok := s.presets[preset]
		if !ok {
			return screening.Params{}, domain.NewConfigError("preset", "unknown preset %q", preset)
		}
		return p.Params, nil
	}
	if explicit != nil {
		return *explicit, nil
	}
	return screening.DefaultParams(), nil
}

// screenResponse pairs the raw screening results with the score ranking
type screenResponse struct {
	AsOf     string               `json:"as_of"`
	Results  []screening.Result   `json:"results"`
	Ranked   []scoring.Result     `json:"ranked"`
	Warnings []domain.DataWarning `json:"warnings,omitempty"`
}

// handleScreen screens the point-in-time universe and scores survivors
func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	var req screenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	asOf, err := time.Parse(dateLayout, req.AsOf)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
		return
	}
	params, err := s.resolveParams(req.Preset, req.Params)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := params.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	weights := scoring.DefaultWeights()
	if req.ScoreWeights != nil {
		weights = *req.ScoreWeights
	}
	pipeline, err := scoring.NewPipeline(weights, s.store, s.log)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snaps, err := s.store.Universe(r.Context(), asOf, params.AllowedMarkets)
	if err != nil {
		s.log.Error().Err(err).Msg("Universe fetch failed")
		s.writeError(w, http.StatusInternalServerError, "universe fetch failed")
		return
	}

	results, err := s.screener.Screen(snaps, params)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapByID := make(map[domain.StockID]domain.StockSnapshot, len(snaps))
	for _, snap := range snaps {
		snapByID[snap.ID] = snap
	}
	ranked, warnings, err := pipeline.Score(r.Context(), results, snapByID, asOf)
	if err != nil {
		s.log.Error().Err(err).Msg("Scoring failed")
		s.writeError(w, http.StatusInternalServerError, "scoring failed")
		return
	}

	s.writeJSON(w, http.StatusOK, screenResponse{
		AsOf:     req.AsOf,
		Results:  results,
		Ranked:   ranked,
		Warnings: warnings,
	})
}

// handleListPresets returns the configured screening presets sorted by name
func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.presets))
	for name := range s.presets {
		names = append(names, name)
	}
	sort.Strings(names)

	presets := make([]screening.Preset, 0, len(names))
	for _, name := range names {
		presets = append(presets, s.presets[name])
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"presets": presets,
	})
}

// backtestRequest is the JSON body of POST /api/backtest. Dates are
// plain YYYY-MM-DD strings; everything else maps onto backtest.Config.
type backtestRequest struct {
	StrategyName        string                    `json:"strategy_name"`
	Preset              string                    `json:"preset,omitempty"`
	Params              *screening.Params         `json:"strategy_params,omitempty"`
	ScoreWeights        *scoring.Weights          `json:"score_weights,omitempty"`
	StartDate           string                    `json:"start_date"`
	EndDate             string                    `json:"end_date"`
	InitialCapital      float64                   `json:"initial_capital"`
	CommissionRate      *float64                  `json:"commission_rate,omitempty"`
	PerMarketCommission map[domain.Market]float64 `json:"per_market_commission,omitempty"`
	MinCommission       *float64                  `json:"min_commission,omitempty"`
	TopN                int                       `json:"top_n,omitempty"`
	RiskFreeRate        *float64                  `json:"risk_free_rate,omitempty"`
	Frequency           backtest.Frequency        `json:"rebalance_frequency"`
	Weighting           string                    `json:"weighting,omitempty"`
}

// toConfig converts the request into an engine config, filling optional
// fields from server defaults.
func (s *Server) toConfig(req backtestRequest) (backtest.Config, error) {
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return backtest.Config{}, domain.NewConfigError("start_date", "must be YYYY-MM-DD, got %q", req.StartDate)
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return backtest.Config{}, domain.NewConfigError("end_date", "must be YYYY-MM-DD, got %q", req.EndDate)
	}

	params, err := s.resolveParams(req.Preset, req.Params)
	if err != nil {
		return backtest.Config{}, err
	}

	cfg := backtest.Config{
		StrategyName:        req.StrategyName,
		Params:              params,
		ScoreWeights:        scoring.DefaultWeights(),
		Start:               start,
		End:                 end,
		InitialCapital:      req.InitialCapital,
		CommissionRate:      s.cfg.CommissionRate,
		PerMarketCommission: req.PerMarketCommission,
		MinCommission:       s.cfg.MinCommission,
		TopN:                req.TopN,
		RiskFreeRate:        s.cfg.RiskFreeRate,
		Frequency:           req.Frequency,
		Weighting:           req.Weighting,
	}
	if req.ScoreWeights != nil {
		cfg.ScoreWeights = *req.ScoreWeights
	}
	if req.CommissionRate != nil {
		cfg.CommissionRate = *req.CommissionRate
	}
	if req.MinCommission != nil {
		cfg.MinCommission = *req.MinCommission
	}
	if req.RiskFreeRate != nil {
		cfg.RiskFreeRate = *req.RiskFreeRate
	}
	return cfg, nil
}

// handleRunBacktest runs a backtest synchronously and caches the result.
// Invalid configuration is a 400; a mid-run fault is a 500 that still
// reports the partial run for diagnostics.
func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	cfg, err := s.toConfig(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.engine.Run(r.Context(), cfg)
	if err != nil {
		if domain.IsConfigError(err) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var runErr *backtest.RunError
		if errors.As(err, &runErr) {
			s.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"error":   runErr.Error(),
				"stage":   runErr.Stage,
				"partial": runErr.Partial,
			})
			return
		}

		s.log.Error().Err(err).Msg("Backtest failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.cache.Put(res); err != nil {
		// Cache trouble must not fail a completed run.
		s.log.Error().Err(err).Str("run_id", res.ID).Msg("Failed to cache backtest result")
	}

	s.writeJSON(w, http.StatusOK, res)
}

// handleGetBacktest returns a cached backtest result by run id
func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.cache.Get(id)
	if errors.Is(err, backtest.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "no backtest result for id "+id)
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("run_id", id).Msg("Failed to load backtest result")
		s.writeError(w, http.StatusInternalServerError, "failed to load result")
		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

// compareRequest is the JSON body of POST /api/backtest/compare
type compareRequest struct {
	IDs []string `json:"ids"`
}

// handleCompareBacktests aggregates cached runs into a comparison table
func (s *Server) handleCompareBacktests(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if len(req.IDs) == 0 {
		s.writeError(w, http.StatusBadRequest, "ids must not be empty")
		return
	}

	results := make([]*backtest.Result, 0, len(req.IDs))
	for _, id := range req.IDs {
		res, err := s.cache.Get(id)
		if errors.Is(err, backtest.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "no backtest result for id "+id)
			return
		}
		if err != nil {
			s.log.Error().Err(err).Str("run_id", id).Msg("Failed to load backtest result")
			s.writeError(w, http.StatusInternalServerError, "failed to load result")
			return
		}
		results = append(results, res)
	}

	s.writeJSON(w, http.StatusOK, backtest.Compare(results))
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// Package solve provides the HTTP handlers and business logic for creating
// scenarios, running equilibrium solves, and querying the solve ledger.
//
// Economies are rebuilt from the stored definition on every solve: the
// solvers are memoryless, so a solve is always a pure function of the
// scenario's current parameters.
package solve

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eqmx/equilibrium-engine/internal/economy"
	"github.com/eqmx/equilibrium-engine/internal/gridspec"
	"github.com/eqmx/equilibrium-engine/internal/guard"
	"github.com/eqmx/equilibrium-engine/internal/metrics"
	"github.com/eqmx/equilibrium-engine/internal/model"
	"github.com/eqmx/equilibrium-engine/internal/store"
)

// Service handles scenario operations. Uses a mutex for serialized
// amendment and solve execution (single-instance). For horizontal scaling,
// replace with distributed locking or database-level optimistic concurrency.
type Service struct {
	store   store.Store
	limiter *guard.SizeLimiter
	mu      sync.Mutex
	wsHub   *WSHub // optional WebSocket hub for solve broadcasts
}

// NewService creates a new solve service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, limiter *guard.SizeLimiter, hub *WSHub) *Service {
	return &Service{
		store:   st,
		limiter: limiter,
		wsHub:   hub,
	}
}

// --- Request/Response types ---

// CreateScenarioRequest is the JSON body for scenario creation.
type CreateScenarioRequest struct {
	Name       string           `json:"name"`
	Kind       string           `json:"kind"` // "exchange" or "production"
	Definition model.Definition `json:"definition"`
}

// AmendScenarioRequest is the JSON body for PATCH /scenarios/{scenarioID}.
// Only the solvers' mutable parameters may be amended; structural fields
// (Π, endowments, cost structure) require a new scenario.
type AmendScenarioRequest struct {
	Weight *float64    `json:"weight,omitempty"` // production: μ
	Bliss  [][]float64 `json:"bliss,omitempty"`
}

// SolveRequest is the JSON body for POST /scenarios/{scenarioID}/solve.
type SolveRequest struct {
	Variant string `json:"variant"` // "competitive" (default) or "monopoly"
}

// SurplusResponse is the single-good welfare decomposition.
type SurplusResponse struct {
	ScenarioID      string          `json:"scenario_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	ConsumerSurplus decimal.Decimal `json:"consumer_surplus"`
	ProducerSurplus decimal.Decimal `json:"producer_surplus"`
}

// CurvesResponse carries inverse demand/supply series for an external
// plotting surface. Values stay float64: these are chart series, not
// ledger entries.
type CurvesResponse struct {
	ScenarioID string    `json:"scenario_id"`
	Quantities []float64 `json:"quantities"`
	Demand     []float64 `json:"demand"`
	Supply     []float64 `json:"supply"`
}

// --- Economy construction from stored definitions ---

func buildExchange(def model.Definition) (*economy.ExchangeEconomy, error) {
	margin := def.SatiationMargin
	if margin == 0 {
		margin = economy.DefaultSatiationMargin
	}
	return economy.NewExchangeEconomyMargin(def.Substitution, def.Bliss, def.Endowments, def.Wealth, margin)
}

func buildProduction(def model.Definition) (*economy.ProductionEconomy, error) {
	if len(def.Bliss) != 1 {
		return nil, errors.New("production definition requires exactly one bliss vector")
	}
	return economy.NewProductionEconomy(def.Substitution, def.Bliss[0], def.CostLinear, def.CostQuad, def.Weight)
}

// validateDefinition constructs the economy once to surface configuration
// errors at creation time rather than first solve.
func validateDefinition(kind string, def model.Definition) error {
	switch kind {
	case model.KindExchange:
		_, err := buildExchange(def)
		return err
	case model.KindProduction:
		_, err := buildProduction(def)
		return err
	default:
		return errors.New("kind must be exchange or production")
	}
}

// --- HTTP Handlers ---

// CreateScenario handles POST /api/v1/scenarios
func (s *Service) CreateScenario(w http.ResponseWriter, r *http.Request) {
	var req CreateScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		writeError(w, "name is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	if err := s.limiter.CheckProblem(req.Definition.Goods(), req.Definition.AgentCount()); err != nil {
		metrics.GuardRejections.Inc()
		writeError(w, err.Error(), http.StatusConflict)
		return
	}
	count, err := s.store.CountScenarios(ctx)
	if err != nil {
		writeError(w, "failed to check scenario count", http.StatusInternalServerError)
		return
	}
	if err := s.limiter.CheckScenarioCount(count); err != nil {
		metrics.GuardRejections.Inc()
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	if err := validateDefinition(req.Kind, req.Definition); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	sc := &model.Scenario{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Kind:       req.Kind,
		Definition: req.Definition,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.CreateScenario(ctx, sc); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}
	metrics.ActiveScenarios.Inc()

	slog.Info("scenario created",
		"id", sc.ID,
		"name", sc.Name,
		"kind", sc.Kind,
		"goods", req.Definition.Goods(),
		"agents", req.Definition.AgentCount(),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sc)
}

// GetScenario handles GET /api/v1/scenarios/{scenarioID}
func (s *Service) GetScenario(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "scenarioID")

	sc, err := s.store.GetScenario(r.Context(), scenarioID)
	if err != nil {
		writeError(w, "scenario not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sc)
}

// ListScenarios handles GET /api/v1/scenarios
// Returns all scenarios, optionally filtered by ?kind=<kind>. With ?name=,
// performs an exact-name lookup instead (at most one result).
func (s *Service) ListScenarios(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		sc, err := s.store.GetScenarioByName(r.Context(), name)
		if err != nil {
			writeError(w, "scenario not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]model.Scenario{*sc})
		return
	}

	scenarios, err := s.store.ListScenarios(r.Context())
	if err != nil {
		writeError(w, "failed to list scenarios", http.StatusInternalServerError)
		return
	}
	if scenarios == nil {
		scenarios = []model.Scenario{}
	}

	if kind := r.URL.Query().Get("kind"); kind != "" {
		var filtered []model.Scenario
		for _, sc := range scenarios {
			if sc.Kind == kind {
				filtered = append(filtered, sc)
			}
		}
		if filtered == nil {
			filtered = []model.Scenario{}
		}
		scenarios = filtered
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(scenarios)
}

// AmendScenario handles PATCH /api/v1/scenarios/{scenarioID}
// Amends the mutable solver parameters (planner weight, bliss points).
func (s *Service) AmendScenario(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "scenarioID")

	var req AmendScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Weight == nil && req.Bliss == nil {
		writeError(w, "nothing to amend: provide weight and/or bliss", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// Serialize against concurrent solves: a solve must never observe a
	// half-applied amendment.
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, err := s.store.GetScenario(ctx, scenarioID)
	if err != nil {
		writeError(w, "scenario not found", http.StatusNotFound)
		return
	}

	def := sc.Definition
	if req.Weight != nil {
		if sc.Kind != model.KindProduction {
			writeError(w, "weight applies only to production scenarios", http.StatusBadRequest)
			return
		}
		def.Weight = *req.Weight
	}
	if req.Bliss != nil {
		def.Bliss = req.Bliss
	}

	// Revalidate by reconstruction before persisting.
	if err := validateDefinition(sc.Kind, def); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	if err := s.store.UpdateScenarioDefinition(ctx, scenarioID, def, now); err != nil {
		writeError(w, "failed to amend scenario", http.StatusInternalServerError)
		return
	}
	sc.Definition = def
	sc.UpdatedAt = now

	slog.Info("scenario amended", "id", sc.ID, "name", sc.Name)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:       "scenario_updated",
			ScenarioID: sc.ID,
			Name:       sc.Name,
			Kind:       sc.Kind,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sc)
}

// Solve handles POST /api/v1/scenarios/{scenarioID}/solve
// Rebuilds the economy from the stored definition, runs the requested
// variant, and appends an immutable solve record.
func (s *Service) Solve(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "scenarioID")

	var req SolveRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	if req.Variant == "" {
		req.Variant = model.VariantCompetitive
	}
	if req.Variant != model.VariantCompetitive && req.Variant != model.VariantMonopoly {
		writeError(w, "variant must be competitive or monopoly", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// Serialize solve execution.
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, err := s.store.GetScenario(ctx, scenarioID)
	if err != nil {
		writeError(w, "scenario not found", http.StatusNotFound)
		return
	}

	start := time.Now()
	rec := &model.SolveRecord{
		ID:         uuid.New().String(),
		ScenarioID: sc.ID,
		Kind:       sc.Kind,
		Variant:    req.Variant,
		CreatedAt:  time.Now().UTC(),
	}

	switch sc.Kind {
	case model.KindExchange:
		if req.Variant == model.VariantMonopoly {
			writeError(w, "monopoly variant is defined only for production scenarios", http.StatusBadRequest)
			return
		}
		econ, err := buildExchange(sc.Definition)
		if err != nil {
			writeSolveError(w, err)
			return
		}
		eq, err := econ.Solve()
		if err != nil {
			writeSolveError(w, err)
			return
		}
		rec.Prices = model.FromFloats(eq.Prices)
		rec.Allocations = model.FromFloatRows(eq.Allocations)
		rec.Multipliers = model.FromFloats(eq.WealthMultipliers)

	case model.KindProduction:
		econ, err := buildProduction(sc.Definition)
		if err != nil {
			writeSolveError(w, err)
			return
		}
		var eq *economy.ProductionEquilibrium
		if req.Variant == model.VariantMonopoly {
			eq, err = econ.Monopoly()
		} else {
			eq, err = econ.Competitive()
		}
		if err != nil {
			writeSolveError(w, err)
			return
		}
		rec.Prices = model.FromFloats(eq.Prices)
		rec.Allocations = model.FromFloatRows([][]float64{eq.Quantities})

		// Single-good competitive solves carry the welfare decomposition
		// on the record; the monopoly wedge makes it meaningless there.
		if econ.Goods() == 1 && req.Variant == model.VariantCompetitive {
			if res, serr := econ.Surplus(); serr == nil {
				cs := decimal.NewFromFloat(res.Consumer).Round(model.ReportScale)
				ps := decimal.NewFromFloat(res.Producer).Round(model.ReportScale)
				rec.ConsumerSurplus = &cs
				rec.ProducerSurplus = &ps
			}
		}

	default:
		writeError(w, "internal error: unknown scenario kind", http.StatusInternalServerError)
		return
	}

	if err := s.store.InsertSolveRecord(ctx, rec); err != nil {
		writeError(w, "failed to record solve", http.StatusInternalServerError)
		return
	}

	metrics.SolvesTotal.WithLabelValues(sc.Kind, req.Variant).Inc()
	metrics.SolveLatency.WithLabelValues(sc.Kind, req.Variant).Observe(time.Since(start).Seconds())

	slog.Info("solve completed",
		"record_id", rec.ID,
		"scenario", sc.ID,
		"kind", sc.Kind,
		"variant", req.Variant,
		"numeraire_price", rec.Prices[0].String(),
	)

	if s.wsHub != nil {
		prices := make([]string, len(rec.Prices))
		for i, p := range rec.Prices {
			prices[i] = p.String()
		}
		s.wsHub.Broadcast(WSMessage{
			Type:       "solve_completed",
			ScenarioID: sc.ID,
			Name:       sc.Name,
			Kind:       sc.Kind,
			Variant:    req.Variant,
			Prices:     prices,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// GetSurplus handles GET /api/v1/scenarios/{scenarioID}/surplus
// Defined only for single-good production scenarios.
func (s *Service) GetSurplus(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "scenarioID")

	sc, err := s.store.GetScenario(r.Context(), scenarioID)
	if err != nil {
		writeError(w, "scenario not found", http.StatusNotFound)
		return
	}
	if sc.Kind != model.KindProduction {
		writeError(w, "surplus is defined only for production scenarios", http.StatusBadRequest)
		return
	}

	econ, err := buildProduction(sc.Definition)
	if err != nil {
		writeSolveError(w, err)
		return
	}
	res, err := econ.Surplus()
	if err != nil {
		writeSolveError(w, err)
		return
	}

	resp := SurplusResponse{
		ScenarioID:      sc.ID,
		Quantity:        decimal.NewFromFloat(res.Quantity).Round(model.ReportScale),
		Price:           decimal.NewFromFloat(res.Price).Round(model.ReportScale),
		ConsumerSurplus: decimal.NewFromFloat(res.Consumer).Round(model.ReportScale),
		ProducerSurplus: decimal.NewFromFloat(res.Producer).Round(model.ReportScale),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetCurves handles GET /api/v1/scenarios/{scenarioID}/curves?grid=start:stop:points
// Returns inverse demand/supply series for an external plotting surface.
func (s *Service) GetCurves(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "scenarioID")

	spec := r.URL.Query().Get("grid")
	if spec == "" {
		writeError(w, "grid query parameter is required (start:stop:points)", http.StatusBadRequest)
		return
	}
	grid, err := gridspec.Parse(spec)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.limiter.CheckGrid(grid.Points); err != nil {
		metrics.GuardRejections.Inc()
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	sc, err := s.store.GetScenario(r.Context(), scenarioID)
	if err != nil {
		writeError(w, "scenario not found", http.StatusNotFound)
		return
	}
	if sc.Kind != model.KindProduction {
		writeError(w, "curves are defined only for production scenarios", http.StatusBadRequest)
		return
	}

	econ, err := buildProduction(sc.Definition)
	if err != nil {
		writeSolveError(w, err)
		return
	}
	series, err := econ.Curves(grid.Values())
	if err != nil {
		writeSolveError(w, err)
		return
	}

	resp := CurvesResponse{
		ScenarioID: sc.ID,
		Quantities: series.Quantities,
		Demand:     series.Demand,
		Supply:     series.Supply,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetHistory handles GET /api/v1/scenarios/{scenarioID}/history
// Returns the immutable solve ledger for a scenario.
func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "scenarioID")

	records, err := s.store.GetSolveRecordsByScenario(r.Context(), scenarioID)
	if err != nil {
		writeError(w, "failed to get solve history", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []model.SolveRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// --- Error helpers ---

// writeSolveError maps solver failures onto HTTP statuses: structural
// infeasibilities of an otherwise well-formed economy are 422, anything
// else about the inputs is 400. Nonexistence diagnostics travel with the
// response.
func writeSolveError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	reason := "invalid"

	switch {
	case errors.Is(err, economy.ErrNonSatiation):
		status, reason = http.StatusUnprocessableEntity, "non_satiation"
	case errors.Is(err, economy.ErrNoEquilibrium):
		status, reason = http.StatusUnprocessableEntity, "no_equilibrium"
	case errors.Is(err, economy.ErrDegenerateNumeraire):
		status, reason = http.StatusUnprocessableEntity, "degenerate_numeraire"
	}
	metrics.SolveFailures.WithLabelValues(reason).Inc()

	body := map[string]any{"error": err.Error()}
	var neq *economy.NoEquilibriumError
	if errors.As(err, &neq) {
		body["agent"] = neq.Agent
		body["allocation"] = neq.Allocation
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

/*
handlers.go - HTTP API handlers for the incentive engine

PURPOSE:
  Exposes the dashboard projections, quota maintenance and contract ingestion
  via REST. Handlers parse input, delegate to the dashboard service or the
  syncer, and serialize the result.

ENDPOINTS:
  Dashboard (all accept ?mes=YYYY-MM, default current month):
    GET    /api/dashboard              Full view (?incluir_provisorias=bool)
    GET    /api/vendedores             Ranked seller stats
    GET    /api/global                 Team quota stats and ladder
    GET    /api/agregados/{dimensao}   One dimension table
    GET    /api/serie                  Daily series
    GET    /api/qualidade              Data quality counts

  Quotas:
    GET    /api/metas/{mes}            Quotas of a month
    PUT    /api/metas/{mes}            Replace quotas of a month

  Contracts:
    POST   /api/contratos/import       Normalize and apply raw records
    GET    /api/contratos/{id}         One normalized contract

  Sync:
    POST   /api/sync                   Run a sync now
    GET    /api/sync/runs              Recent runs (?limit=N)

  Scenarios:
    GET    /api/cenarios               List demo scenarios
    POST   /api/cenarios/load          Reset and load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON {"error", "details"}:
  - 400: invalid month, flag or body
  - 404: unknown dimension or contract
  - 409: a sync or import is already running
  - 502: the contract source failed
  - 503: no contract source configured
  - 500: internal errors; aggregation failures use a fixed message

SEE ALSO:
  - dto.go: Quota request/response bodies
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
  - dashboard/dashboard.go: Projections served here
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/warp/incentive-engine/commission"
	"github.com/warp/incentive-engine/contract"
	"github.com/warp/incentive-engine/dashboard"
	"github.com/warp/incentive-engine/source"
)

const (
	msgDashboardFailure = "falha ao carregar dados do painel"
	defaultRunLimit     = 20
	maxImportBytes      = 32 << 20
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Deps are the collaborators a Handler serves from.
type Deps struct {
	Dashboard *dashboard.Service
	Contracts contract.Store
	Quotas    commission.QuotaStore
	Runs      source.RunStore
	Syncer    *source.Syncer
	Logger    *zap.Logger

	// Resetter enables scenario loading to clear the store first. Optional.
	Resetter Resetter
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	dashboard *dashboard.Service
	contracts contract.Store
	quotas    commission.QuotaStore
	runs      source.RunStore
	syncer    *source.Syncer
	resetter  Resetter
	logger    *zap.Logger

	now func() time.Time
}

func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		dashboard: d.Dashboard,
		contracts: d.Contracts,
		quotas:    d.Quotas,
		runs:      d.Runs,
		syncer:    d.Syncer,
		resetter:  d.Resetter,
		logger:    logger,
		now:       time.Now,
	}
}

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// GetDashboard returns the full view of a month.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	m, opts, ok := h.viewParams(w, r)
	if !ok {
		return
	}
	view, err := h.dashboard.Build(r.Context(), m, opts)
	if err != nil {
		h.dashboardFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListSellers returns the ranked seller stats.
func (h *Handler) ListSellers(w http.ResponseWriter, r *http.Request) {
	m, ok := h.month(w, r)
	if !ok {
		return
	}
	sellers, err := h.dashboard.Sellers(r.Context(), m)
	if err != nil {
		h.dashboardFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sellers)
}

// GetGlobal returns the team quota stats.
func (h *Handler) GetGlobal(w http.ResponseWriter, r *http.Request) {
	m, ok := h.month(w, r)
	if !ok {
		return
	}
	global, err := h.dashboard.Global(r.Context(), m)
	if err != nil {
		h.dashboardFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, global)
}

// GetDimension returns one dimension table.
func (h *Handler) GetDimension(w http.ResponseWriter, r *http.Request) {
	m, opts, ok := h.viewParams(w, r)
	if !ok {
		return
	}
	rows, err := h.dashboard.Dimension(r.Context(), m, chi.URLParam(r, "dimensao"), opts)
	if errors.Is(err, dashboard.ErrUnknownDimension) {
		writeError(w, http.StatusNotFound, "dimensão desconhecida", err)
		return
	}
	if err != nil {
		h.dashboardFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// GetSeries returns the zero-filled daily series.
func (h *Handler) GetSeries(w http.ResponseWriter, r *http.Request) {
	m, opts, ok := h.viewParams(w, r)
	if !ok {
		return
	}
	points, err := h.dashboard.Series(r.Context(), m, opts)
	if err != nil {
		h.dashboardFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// GetQuality returns the quality flag counts.
func (h *Handler) GetQuality(w http.ResponseWriter, r *http.Request) {
	m, ok := h.month(w, r)
	if !ok {
		return
	}
	report, err := h.dashboard.Quality(r.Context(), m)
	if err != nil {
		h.dashboardFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// QUOTA HANDLERS
// =============================================================================

// GetQuotas returns the quotas of the month in the path.
func (h *Handler) GetQuotas(w http.ResponseWriter, r *http.Request) {
	m, err := commission.ParseMonth(chi.URLParam(r, "mes"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "mês inválido", err)
		return
	}
	q, err := h.quotas.Quotas(r.Context(), m)
	if err != nil {
		h.internalError(w, r, "falha ao carregar metas", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuotasDTO(q))
}

// PutQuotas replaces every quota of the month in the path.
func (h *Handler) PutQuotas(w http.ResponseWriter, r *http.Request) {
	m, err := commission.ParseMonth(chi.URLParam(r, "mes"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "mês inválido", err)
		return
	}
	var req QuotasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "corpo inválido", err)
		return
	}
	q, err := req.toQuotas(m)
	if err != nil {
		writeError(w, http.StatusBadRequest, "meta inválida", err)
		return
	}
	if err := h.quotas.SetQuotas(r.Context(), q); err != nil {
		h.internalError(w, r, "falha ao salvar metas", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuotasDTO(q))
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// ImportContracts normalizes and applies a JSON array of raw records.
func (h *Handler) ImportContracts(w http.ResponseWriter, r *http.Request) {
	var raws []contract.RawContract
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBytes)).Decode(&raws); err != nil {
		writeError(w, http.StatusBadRequest, "corpo inválido", err)
		return
	}
	run, err := h.syncer.Import(r.Context(), raws)
	if err != nil {
		h.syncFailure(w, r, run, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GetContract returns one normalized contract.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.contracts.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, contract.ErrContractNotFound) {
		writeError(w, http.StatusNotFound, "contrato não encontrado", nil)
		return
	}
	if err != nil {
		h.internalError(w, r, "falha ao carregar contrato", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// =============================================================================
// SYNC HANDLERS
// =============================================================================

// TriggerSync runs one sync and returns its record.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	run, err := h.syncer.Run(r.Context())
	if err != nil {
		h.syncFailure(w, r, run, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ListSyncRuns returns the most recent runs.
func (h *Handler) ListSyncRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limite inválido", err)
			return
		}
		limit = n
	}
	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.internalError(w, r, "falha ao carregar execuções", err)
		return
	}
	if runs == nil {
		runs = []source.SyncRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// =============================================================================
// HELPERS
// =============================================================================

// month reads ?mes=, defaulting to the current month.
func (h *Handler) month(w http.ResponseWriter, r *http.Request) (commission.Month, bool) {
	raw := r.URL.Query().Get("mes")
	if raw == "" {
		return commission.MonthOf(h.now()), true
	}
	m, err := commission.ParseMonth(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "mês inválido", err)
		return "", false
	}
	return m, true
}

func (h *Handler) viewParams(w http.ResponseWriter, r *http.Request) (commission.Month, dashboard.Options, bool) {
	m, ok := h.month(w, r)
	if !ok {
		return "", dashboard.Options{}, false
	}
	var opts dashboard.Options
	if raw := r.URL.Query().Get("incluir_provisorias"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "incluir_provisorias inválido", err)
			return "", dashboard.Options{}, false
		}
		opts.IncludeProvisional = v
	}
	return m, opts, true
}

// dashboardFailure hides the cause from the client and logs it.
func (h *Handler) dashboardFailure(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("dashboard aggregation failed",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, msgDashboardFailure, nil)
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.logger.Error(message,
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, message, nil)
}

func (h *Handler) syncFailure(w http.ResponseWriter, r *http.Request, run source.SyncRun, err error) {
	switch {
	case errors.Is(err, source.ErrSyncInProgress):
		writeError(w, http.StatusConflict, "sincronização em andamento", nil)
	case errors.Is(err, source.ErrNoFetcher):
		writeError(w, http.StatusServiceUnavailable, "fonte de contratos não configurada", nil)
	case run.Origin == source.OriginSync && run.ID != "":
		// the run was recorded; details tell the client what got applied
		writeError(w, http.StatusBadGateway, "falha na sincronização", run)
	default:
		h.internalError(w, r, "falha na sincronização", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	resp := ErrorResponse{Error: message}
	switch d := details.(type) {
	case nil:
	case error:
		resp.Details = d.Error()
	default:
		resp.Details = d
	}
	writeJSON(w, status, resp)
}

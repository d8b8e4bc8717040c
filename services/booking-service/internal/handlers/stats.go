package handlers

import (
	"net/http"
	"time"

	"github.com/md-rashed-zaman/barberia/libs/httpx"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
)

// statsRequest mirrors the legacy body. id_usuario is accepted and ignored:
// figures are global.
type statsRequest struct {
	UsuarioID int64 `json:"id_usuario"`
}

func (a *API) dashboardStats(w http.ResponseWriter, r *http.Request) {
	var req statsRequest
	if err := decodeOptional(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	d, err := a.stats.Dashboard(r.Context(), actorFrom(r.Context()))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newDashboardView(d))
}

func (a *API) paymentStats(w http.ResponseWriter, r *http.Request) {
	var req statsRequest
	if err := decodeOptional(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	s, err := a.stats.Payments(r.Context(), actorFrom(r.Context()))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newPagosStatsView(s))
}

// incomeReport defaults to the current month up to today.
func (a *API) incomeReport(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "fecha_desde")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	to, err := queryDate(r, "fecha_hasta")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	today := model.DayOf(model.WallClock(time.Now()))
	if to.IsZero() {
		to = today
	}
	if from.IsZero() {
		from = time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	in, err := a.stats.Income(r.Context(), actorFrom(r.Context()), from, to)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newIngresosView(in))
}

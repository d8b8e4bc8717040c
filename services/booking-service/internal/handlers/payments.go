package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/barberia/libs/httpx"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/payments"
)

func (a *API) paymentFilter(r *http.Request) (model.PaymentFilter, error) {
	q := r.URL.Query()
	var f model.PaymentFilter
	if raw := q.Get("estado"); raw != "" {
		f.Status = model.PaymentStatus(raw)
		if !f.Status.Valid() {
			return f, apperr.Validation("invalid estado %q", raw)
		}
	}
	if raw := q.Get("metodo"); raw != "" {
		f.Method = model.PaymentMethod(raw)
		if !f.Method.Valid() {
			return f, apperr.Validation("invalid metodo %q", raw)
		}
	}
	var err error
	if f.From, err = queryDate(r, "fecha_desde"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(r, "fecha_hasta"); err != nil {
		return f, err
	}
	if f.ClientID, err = queryID(r, "id_usuario"); err != nil {
		return f, err
	}
	return f, nil
}

func (a *API) listPayments(w http.ResponseWriter, r *http.Request) {
	filter, err := a.paymentFilter(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	pays, err := a.payments.List(r.Context(), actorFrom(r.Context()), filter)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"pagos": newPagoViews(pays)})
}

func (a *API) myPayments(w http.ResponseWriter, r *http.Request) {
	filter, err := a.paymentFilter(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	actor := actorFrom(r.Context())
	filter.ClientID = actor.UserID
	pays, err := a.payments.List(r.Context(), actor, filter)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"pagos": newPagoViews(pays)})
}

func (a *API) getPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	p, err := a.payments.Get(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newPagoView(p))
}

func (a *API) paymentsForAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	pays, err := a.payments.ForAppointment(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"pagos": newPagoViews(pays)})
}

type registerPagoRequest struct {
	CitaID      int64               `json:"id_cita"`
	UsuarioID   int64               `json:"id_usuario"`
	Monto       model.Money         `json:"monto"`
	Metodo      model.PaymentMethod `json:"metodo"`
	FechaPago   string              `json:"fecha_pago"`
	Comprobante string              `json:"comprobante"`
	Notas       string              `json:"notas"`
}

// registerPayment serves both POST /pagos and POST /admin/pagos; the
// reconciler only honors id_usuario for admins.
func (a *API) registerPayment(w http.ResponseWriter, r *http.Request) {
	var req registerPagoRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	var paidOn time.Time
	if strings.TrimSpace(req.FechaPago) != "" {
		d, err := model.ParseDate(req.FechaPago)
		if err != nil {
			a.writeError(w, r, apperr.Wrap(apperr.KindValidation, err, "invalid fecha_pago"))
			return
		}
		paidOn = d
	}
	p, err := a.payments.Register(r.Context(), actorFrom(r.Context()), payments.RegisterRequest{
		AppointmentID: req.CitaID,
		ClientID:      req.UsuarioID,
		Amount:        req.Monto,
		Method:        req.Metodo,
		Receipt:       req.Comprobante,
		PaidOn:        paidOn,
		Notes:         req.Notas,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, newPagoView(p))
}

func (a *API) approvePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	p, err := a.payments.Approve(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newPagoView(p))
}

type rechazoRequest struct {
	Motivo string `json:"motivo"`
}

func (a *API) rejectPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req rechazoRequest
	if err := decodeOptional(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	p, err := a.payments.Reject(r.Context(), actorFrom(r.Context()), id, strings.TrimSpace(req.Motivo))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newPagoView(p))
}

func (a *API) uncollected(w http.ResponseWriter, r *http.Request) {
	appts, err := a.payments.Uncollected(r.Context(), actorFrom(r.Context()))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"citas": newCitaViews(appts)})
}

type cobroRequest struct {
	Monto model.Money `json:"monto"`
}

type cobroResponse struct {
	Cita citaView `json:"cita"`
	Pago pagoView `json:"pago"`
}

func (a *API) completeAndCollect(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req cobroRequest
	if err := decodeOptional(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	p, appt, err := a.payments.CompleteAndCollect(r.Context(), actorFrom(r.Context()), id, req.Monto)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, cobroResponse{Cita: newCitaView(appt), Pago: newPagoView(p)})
}

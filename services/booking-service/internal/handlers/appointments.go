package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/barberia/libs/httpx"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
)

type availabilityResponse struct {
	Fecha string   `json:"fecha"`
	Horas []string `json:"horas"`
}

func (a *API) availabilityFor(w http.ResponseWriter, r *http.Request) {
	day, err := queryDate(r, "fecha")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if day.IsZero() {
		a.writeError(w, r, apperr.Validation("fecha is required (YYYY-MM-DD)"))
		return
	}
	exclude, err := queryID(r, "excluir")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	free, err := a.availability.Free(r.Context(), day, exclude)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, availabilityResponse{Fecha: day.Format(model.DateLayout), Horas: free})
}

func (a *API) listAppointments(w http.ResponseWriter, r *http.Request) {
	var filter model.AppointmentFilter
	var err error
	if filter.ClientID, err = queryID(r, "id_usuario"); err != nil {
		a.writeError(w, r, err)
		return
	}
	if filter.Day, err = queryDate(r, "fecha"); err != nil {
		a.writeError(w, r, err)
		return
	}
	if raw := r.URL.Query().Get("estado"); raw != "" {
		status := model.AppointmentStatus(raw)
		if !status.Valid() {
			a.writeError(w, r, apperr.Validation("invalid estado %q", raw))
			return
		}
		filter.Statuses = []model.AppointmentStatus{status}
	}
	appts, err := a.writer.List(r.Context(), actorFrom(r.Context()), filter)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"citas": newCitaViews(appts)})
}

func (a *API) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	appt, err := a.writer.Get(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newCitaView(appt))
}

type createCitaRequest struct {
	UsuarioID   int64                   `json:"id_usuario"`
	ServicioID  int64                   `json:"id_servicio"`
	FechaHora   string                  `json:"fecha_hora"`
	Fecha       string                  `json:"fecha"`
	Hora        string                  `json:"hora"`
	Estado      model.AppointmentStatus `json:"estado"`
	Notas       string                  `json:"notas"`
	MetodoPago  model.PaymentMethod     `json:"metodo_pago"`
	Comprobante string                  `json:"comprobante"`
}

// createCitaResponse is the created appointment plus the outcome of the
// optional payment intent.
type createCitaResponse struct {
	citaView
	Pago      *pagoView `json:"pago,omitempty"`
	PagoError string    `json:"pago_error,omitempty"`
}

func (a *API) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req createCitaRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := a.writer.Create(r.Context(), actorFrom(r.Context()), booking.CreateRequest{
		ClientID:      req.UsuarioID,
		ServiceID:     req.ServicioID,
		Schedule:      booking.Schedule{DateTime: req.FechaHora, Date: req.Fecha, Time: req.Hora},
		Status:        req.Estado,
		Notes:         req.Notas,
		PaymentMethod: req.MetodoPago,
		Receipt:       req.Comprobante,
	})
	if err != nil {
		a.writeBookingError(w, r, err)
		return
	}
	out := createCitaResponse{citaView: newCitaView(res.Appointment)}
	if res.Payment != nil {
		p := newPagoView(*res.Payment)
		out.Pago = &p
	}
	if res.PaymentErr != nil {
		out.PagoError = res.PaymentErr.Error()
	}
	httpx.WriteJSON(w, http.StatusCreated, out)
}

type updateCitaRequest struct {
	UsuarioID  *int64                   `json:"id_usuario"`
	ServicioID *int64                   `json:"id_servicio"`
	FechaHora  string                   `json:"fecha_hora"`
	Fecha      string                   `json:"fecha"`
	Hora       string                   `json:"hora"`
	Notas      *string                  `json:"notas"`
	Estado     *model.AppointmentStatus `json:"estado"`
}

func (a *API) updateAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req updateCitaRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	appt, err := a.writer.Update(r.Context(), actorFrom(r.Context()), id, booking.UpdateRequest{
		ClientID:  req.UsuarioID,
		ServiceID: req.ServicioID,
		Schedule:  booking.Schedule{DateTime: req.FechaHora, Date: req.Fecha, Time: req.Hora},
		Notes:     req.Notas,
		Status:    req.Estado,
	})
	if err != nil {
		a.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newCitaView(appt))
}

type estadoRequest struct {
	Estado model.AppointmentStatus `json:"estado"`
}

func (a *API) setAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req estadoRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	appt, err := a.writer.SetStatus(r.Context(), actorFrom(r.Context()), id, req.Estado)
	if err != nil {
		a.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newCitaView(appt))
}

func (a *API) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.writer.Delete(r.Context(), actorFrom(r.Context()), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"mensaje": "cita eliminada"})
}

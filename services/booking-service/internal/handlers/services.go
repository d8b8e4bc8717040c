package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/barberia/libs/httpx"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
)

type servicioRequest struct {
	Nombre      *string      `json:"nombre"`
	Descripcion *string      `json:"descripcion"`
	Precio      *model.Money `json:"precio"`
	Duracion    *int         `json:"duracion"`
}

func (req servicioRequest) input() catalog.Input {
	return catalog.Input{
		Name:            req.Nombre,
		Description:     req.Descripcion,
		Price:           req.Precio,
		DurationMinutes: req.Duracion,
	}
}

func (a *API) listServices(w http.ResponseWriter, r *http.Request) {
	svcs, err := a.catalog.List(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]servicioView, 0, len(svcs))
	for _, s := range svcs {
		out = append(out, newServicioView(s))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"servicios": out})
}

func (a *API) createService(w http.ResponseWriter, r *http.Request) {
	var req servicioRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	svc, err := a.catalog.Create(r.Context(), actorFrom(r.Context()), req.input())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, newServicioView(svc))
}

func (a *API) updateService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req servicioRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	svc, err := a.catalog.Update(r.Context(), actorFrom(r.Context()), id, req.input())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newServicioView(svc))
}

func (a *API) deleteService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.catalog.Delete(r.Context(), actorFrom(r.Context()), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"mensaje": "servicio eliminado"})
}

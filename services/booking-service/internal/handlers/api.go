// Package handlers exposes the booking engine over HTTP with the JSON
// contract the existing front end already speaks.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/barberia/libs/auth"
	"github.com/md-rashed-zaman/barberia/libs/httpx"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/accounts"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/payments"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/stats"
)

type Deps struct {
	Accounts     *accounts.Accounts
	Catalog      *catalog.Catalog
	Availability *availability.Resolver
	Writer       *booking.Writer
	Payments     *payments.Reconciler
	Stats        *stats.Aggregator
	Verifier     *auth.Verifier
	Logger       *slog.Logger
}

type API struct {
	accounts     *accounts.Accounts
	catalog      *catalog.Catalog
	availability *availability.Resolver
	writer       *booking.Writer
	payments     *payments.Reconciler
	stats        *stats.Aggregator
	verifier     *auth.Verifier
	logger       *slog.Logger
}

func New(d Deps) *API {
	return &API{
		accounts:     d.Accounts,
		catalog:      d.Catalog,
		availability: d.Availability,
		writer:       d.Writer,
		payments:     d.Payments,
		stats:        d.Stats,
		verifier:     d.Verifier,
		logger:       d.Logger,
	}
}

// Register mounts every route on mux.
func (a *API) Register(mux *http.ServeMux) {
	authed := func(h http.HandlerFunc) http.Handler { return a.requireAuth(h) }
	admin := func(h http.HandlerFunc) http.Handler { return a.requireAuth(requireAdmin(h)) }

	mux.HandleFunc("POST /login", a.login)
	mux.Handle("POST /register", a.optionalAuth(http.HandlerFunc(a.register)))

	mux.HandleFunc("GET /servicios", a.listServices)
	mux.Handle("POST /servicios", admin(a.createService))
	mux.Handle("PUT /servicios/{id}", admin(a.updateService))
	mux.Handle("DELETE /servicios/{id}", admin(a.deleteService))

	mux.Handle("GET /citas/disponibilidad", authed(a.availabilityFor))
	mux.Handle("GET /citas", authed(a.listAppointments))
	mux.Handle("GET /citas/{id}", authed(a.getAppointment))
	mux.Handle("POST /citas", authed(a.createAppointment))
	mux.Handle("PUT /citas/{id}", authed(a.updateAppointment))
	mux.Handle("PATCH /citas/{id}/estado", authed(a.setAppointmentStatus))
	mux.Handle("DELETE /citas/{id}", admin(a.deleteAppointment))

	mux.Handle("GET /pagos", admin(a.listPayments))
	mux.Handle("GET /pagos/{id}", authed(a.getPayment))
	mux.Handle("GET /pagos/cita/{id}", authed(a.paymentsForAppointment))
	mux.Handle("GET /mis-pagos", authed(a.myPayments))
	mux.Handle("POST /pagos", authed(a.registerPayment))
	mux.Handle("POST /admin/pagos", admin(a.registerPayment))
	mux.Handle("PUT /pagos/{id}/aprobar", admin(a.approvePayment))
	mux.Handle("PUT /pagos/{id}/rechazar", admin(a.rejectPayment))
	mux.Handle("GET /admin/cobros", admin(a.uncollected))
	mux.Handle("POST /admin/citas/{id}/cobrar", admin(a.completeAndCollect))

	mux.Handle("POST /dashboard/stats", admin(a.dashboardStats))
	mux.Handle("POST /dashboard/pagos-stats", admin(a.paymentStats))
	mux.Handle("GET /reportes/ingresos", admin(a.incomeReport))

	mux.Handle("GET /usuarios", admin(a.listUsers))
	mux.Handle("PUT /usuarios/{id}", admin(a.updateUser))
	mux.Handle("DELETE /usuarios/{id}", admin(a.deleteUser))
}

type ctxKey struct{}

func withActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

func actorFrom(ctx context.Context) model.Actor {
	actor, _ := ctx.Value(ctxKey{}).(model.Actor)
	return actor
}

func (a *API) authenticate(r *http.Request) (model.Actor, error) {
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return model.Actor{}, apperr.New(apperr.KindUnauthorized, "missing or invalid Authorization header")
	}
	claims, err := a.verifier.Verify(r.Context(), token)
	if err != nil {
		return model.Actor{}, apperr.Wrap(apperr.KindUnauthorized, err, "invalid token")
	}
	return accounts.ActorFromClaims(claims)
}

func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.authenticate(r)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
	})
}

// optionalAuth attaches the caller when a valid token is present and
// otherwise lets the request through anonymously.
func (a *API) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		actor, err := a.authenticate(r)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !actorFrom(r.Context()).IsAdmin() {
			httpx.WriteJSON(w, http.StatusForbidden, httpx.ErrorBody{Error: "forbidden", Kind: string(apperr.KindForbidden)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	httpx.ErrorBody
	RefreshAvailability bool `json:"refrescar_disponibilidad,omitempty"`
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"kind", kind,
			"err", err,
		)
		if kind == apperr.KindInternal {
			msg = "internal error"
		}
	}
	httpx.WriteJSON(w, status, errorResponse{ErrorBody: httpx.ErrorBody{Error: msg, Kind: string(kind)}})
}

// writeBookingError tells the client to reload availability after losing a slot.
func (a *API) writeBookingError(w http.ResponseWriter, r *http.Request, err error) {
	if !apperr.Is(err, apperr.KindConflict) {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusConflict, errorResponse{
		ErrorBody:           httpx.ErrorBody{Error: err.Error(), Kind: string(apperr.KindConflict)},
		RefreshAvailability: true,
	})
}

func decode(r *http.Request, dst any) error {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid request")
	}
	return nil
}

// decodeOptional accepts an empty body.
func decodeOptional(r *http.Request, dst any) error {
	err := httpx.DecodeJSON(r, dst)
	if err == nil || errors.Is(err, httpx.ErrEmptyBody) {
		return nil
	}
	return apperr.Wrap(apperr.KindValidation, err, "invalid request")
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id %q", raw)
	}
	return id, nil
}

func queryID(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, apperr.Validation("invalid %s %q", key, raw)
	}
	return id, nil
}

func queryDate(r *http.Request, key string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.KindValidation, err, "invalid %s", key)
	}
	return d, nil
}

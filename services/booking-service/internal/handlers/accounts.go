package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/barberia/libs/httpx"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/accounts"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Usuario   usuarioView `json:"usuario"`
	Token     string      `json:"token"`
	TokenType string      `json:"token_type"`
	ExpiraEn  string      `json:"expira_en"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	s, err := a.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Usuario:   newUsuarioView(s.User),
		Token:     s.Token,
		TokenType: "Bearer",
		ExpiraEn:  s.ExpiresAt.UTC().Format(model.DateTimeLayout),
	})
}

type registerRequest struct {
	Nombre   string     `json:"nombre"`
	Email    string     `json:"email"`
	Telefono string     `json:"telefono"`
	Password string     `json:"password"`
	Rol      model.Role `json:"rol"`
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	u, err := a.accounts.Register(r.Context(), actorFrom(r.Context()), accounts.RegisterRequest{
		Name:     req.Nombre,
		Email:    req.Email,
		Phone:    req.Telefono,
		Password: req.Password,
		Role:     req.Rol,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, newUsuarioView(u))
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.accounts.List(r.Context(), actorFrom(r.Context()))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]usuarioView, 0, len(users))
	for _, u := range users {
		out = append(out, newUsuarioView(u))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"usuarios": out})
}

type updateUserRequest struct {
	Nombre   *string     `json:"nombre"`
	Email    *string     `json:"email"`
	Telefono *string     `json:"telefono"`
	Rol      *model.Role `json:"rol"`
	Password *string     `json:"password"`
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req updateUserRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	u, err := a.accounts.Update(r.Context(), actorFrom(r.Context()), id, accounts.UserInput{
		Name:     req.Nombre,
		Email:    req.Email,
		Phone:    req.Telefono,
		Role:     req.Rol,
		Password: req.Password,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newUsuarioView(u))
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.accounts.Delete(r.Context(), actorFrom(r.Context()), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"mensaje": "usuario eliminado"})
}

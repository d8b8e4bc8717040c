// Package accounts owns users: registration, password login, session tokens
// and admin maintenance of the user list.
package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/md-rashed-zaman/barberia/libs/auth"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storecall"
)

const minPasswordLength = 6

type Store interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id int64) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id int64, fn func(*model.User) error) (model.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type Config struct {
	Secret   string
	TokenTTL time.Duration
}

type Accounts struct {
	store  Store
	policy storecall.Policy
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func New(store Store, policy storecall.Policy, cfg Config, logger *slog.Logger) *Accounts {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	return &Accounts{store: store, policy: policy, cfg: cfg, logger: logger, now: time.Now}
}

type RegisterRequest struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     model.Role
}

// Session is what a successful login hands back.
type Session struct {
	User      model.User
	Token     string
	ExpiresAt time.Time
}

// Register creates a user. Anyone may sign up as a client; creating an
// admin takes an admin caller.
func (a *Accounts) Register(ctx context.Context, actor model.Actor, req RegisterRequest) (model.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Role == "" {
		req.Role = model.RoleClient
	}
	switch {
	case req.Name == "":
		return model.User{}, apperr.Validation("nombre is required")
	case !validEmail(req.Email):
		return model.User{}, apperr.Validation("a valid email is required")
	case len(req.Password) < minPasswordLength:
		return model.User{}, apperr.Validation("password must have at least %d characters", minPasswordLength)
	case !req.Role.Valid():
		return model.User{}, apperr.Validation("rol must be admin or cliente (got %q)", req.Role)
	case req.Role == model.RoleAdmin && !actor.IsAdmin():
		return model.User{}, apperr.Forbidden("only admins can create admins")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return model.User{}, apperr.Wrap(apperr.KindInternal, err, "hash password")
	}
	u := model.User{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		Role:         req.Role,
		PasswordHash: hash,
	}
	err = storecall.Exec(ctx, a.policy, "create user", func(ctx context.Context) error {
		return a.store.CreateUser(ctx, &u)
	})
	if errors.Is(err, storage.ErrDuplicate) {
		return model.User{}, apperr.Wrap(apperr.KindValidation, err, "email %s is already registered", req.Email)
	}
	if err != nil {
		return model.User{}, err
	}
	a.logger.Info("user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Login checks the password and issues an HS256 session token.
func (a *Accounts) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, apperr.Validation("email and password required")
	}
	u, err := storecall.Read(ctx, a.policy, "get user by email", func(ctx context.Context) (model.User, error) {
		return a.store.GetUserByEmail(ctx, email)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, apperr.New(apperr.KindUnauthorized, "invalid credentials")
	}
	if err != nil {
		return Session{}, err
	}
	if err := verifyPassword(u.PasswordHash, password); err != nil {
		return Session{}, apperr.New(apperr.KindUnauthorized, "invalid credentials")
	}

	token, exp, err := a.issueToken(u)
	if err != nil {
		return Session{}, err
	}
	a.logger.Info("user logged in", "user_id", u.ID)
	return Session{User: u, Token: token, ExpiresAt: exp}, nil
}

func (a *Accounts) issueToken(u model.User) (string, time.Time, error) {
	if a.cfg.Secret == "" {
		return "", time.Time{}, apperr.New(apperr.KindConfig, "JWT_SECRET is not configured")
	}
	now := a.now()
	exp := now.Add(a.cfg.TokenTTL)
	token, err := auth.SignHS256(auth.Claims{
		Sub:   strconv.FormatInt(u.ID, 10),
		Name:  u.Name,
		Email: u.Email,
		Role:  string(u.Role),
		Iat:   now.Unix(),
		Exp:   exp.Unix(),
	}, a.cfg.Secret)
	if err != nil {
		return "", time.Time{}, apperr.Wrap(apperr.KindInternal, err, "sign token")
	}
	return token, exp, nil
}

// ActorFromClaims turns verified token claims into the caller of an operation.
func ActorFromClaims(c *auth.Claims) (model.Actor, error) {
	if c == nil {
		return model.Actor{}, apperr.New(apperr.KindUnauthorized, "missing token")
	}
	id, err := strconv.ParseInt(c.Sub, 10, 64)
	if err != nil || id <= 0 {
		return model.Actor{}, apperr.New(apperr.KindUnauthorized, "token subject is not a user id")
	}
	role := model.Role(c.Role)
	if !role.Valid() {
		return model.Actor{}, apperr.New(apperr.KindUnauthorized, "token role %q is unknown", c.Role)
	}
	return model.Actor{UserID: id, Role: role}, nil
}

func (a *Accounts) List(ctx context.Context, actor model.Actor) ([]model.User, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("only admins can list users")
	}
	return storecall.Read(ctx, a.policy, "list users", a.store.ListUsers)
}

// UserInput holds editable user fields; nil leaves a field unchanged.
type UserInput struct {
	Name     *string
	Email    *string
	Phone    *string
	Role     *model.Role
	Password *string
}

func (a *Accounts) Update(ctx context.Context, actor model.Actor, id int64, in UserInput) (model.User, error) {
	if !actor.IsAdmin() {
		return model.User{}, apperr.Forbidden("only admins can edit users")
	}
	var hash string
	if in.Password != nil {
		pw := *in.Password
		if len(pw) < minPasswordLength {
			return model.User{}, apperr.Validation("password must have at least %d characters", minPasswordLength)
		}
		var err error
		if hash, err = hashPassword(pw); err != nil {
			return model.User{}, apperr.Wrap(apperr.KindInternal, err, "hash password")
		}
	}

	u, err := storecall.Write(ctx, a.policy, "update user", func(ctx context.Context) (model.User, error) {
		return a.store.UpdateUser(ctx, id, func(u *model.User) error {
			if in.Name != nil {
				name := strings.TrimSpace(*in.Name)
				if name == "" {
					return apperr.Validation("nombre must not be empty")
				}
				u.Name = name
			}
			if in.Email != nil {
				email := strings.TrimSpace(*in.Email)
				if !validEmail(email) {
					return apperr.Validation("a valid email is required")
				}
				u.Email = email
			}
			if in.Phone != nil {
				u.Phone = strings.TrimSpace(*in.Phone)
			}
			if in.Role != nil {
				if !in.Role.Valid() {
					return apperr.Validation("rol must be admin or cliente (got %q)", *in.Role)
				}
				u.Role = *in.Role
			}
			if hash != "" {
				u.PasswordHash = hash
			}
			return nil
		})
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return model.User{}, apperr.NotFound("user %d not found", id)
	case errors.Is(err, storage.ErrDuplicate):
		return model.User{}, apperr.Wrap(apperr.KindValidation, err, "email is already registered")
	case err != nil:
		return model.User{}, err
	}
	a.logger.Info("user updated", "user_id", id, "by", actor.UserID)
	return u, nil
}

// Delete removes a user that has no appointments or payments. Admins cannot
// delete themselves.
func (a *Accounts) Delete(ctx context.Context, actor model.Actor, id int64) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("only admins can delete users")
	}
	if actor.UserID == id {
		return apperr.Validation("admins cannot delete their own account")
	}
	err := storecall.Exec(ctx, a.policy, "delete user", func(ctx context.Context) error {
		return a.store.DeleteUser(ctx, id)
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound("user %d not found", id)
	case errors.Is(err, storage.ErrReferenced):
		return apperr.Wrap(apperr.KindDependency, err, "user %d has appointments or payments", id)
	case err != nil:
		return err
	}
	a.logger.Info("user deleted", "user_id", id, "by", actor.UserID)
	return nil
}

func validEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t")
}

func hashPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(hash string, raw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
}

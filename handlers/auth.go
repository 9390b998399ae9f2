package handlers

import (
	"net/http"

	"github.com/CrowderSoup/project-tracker/database"
	"github.com/CrowderSoup/project-tracker/services"
)

// AuthHandler handles authentication-related endpoints
type AuthHandler struct {
	users  *services.UserService
	errors errorWriter
}

func NewAuthHandler(users *services.UserService, development bool) *AuthHandler {
	return &AuthHandler{
		users:  users,
		errors: errorWriter{development: development},
	}
}

type session struct {
	User  *database.User `json:"user"`
	Token string         `json:"token"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		h.errors.write(w, r, err)
		return
	}

	user, token, err := h.users.Register(r.Context(), req)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "User registered successfully", session{User: user, Token: token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.errors.write(w, r, err)
		return
	}

	user, token, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Login successful", session{User: user, Token: token})
}

// Me returns the user behind the bearer token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFrom(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "No token provided")
		return
	}

	user, err := h.users.Get(r.Context(), actor.ID)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", user)
}

package handlers

import (
	"net/http"

	"github.com/CrowderSoup/project-tracker/services"
)

type UserHandler struct {
	users  *services.UserService
	errors errorWriter
}

func NewUserHandler(users *services.UserService, development bool) *UserHandler {
	return &UserHandler{users: users, errors: errorWriter{development: development}}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	var req services.UserUpdate
	if err := decodeJSON(r, &req); err != nil {
		h.errors.write(w, r, err)
		return
	}

	user, err := h.users.Update(r.Context(), actor, id, req)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusOK, "User updated successfully", user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	if err := h.users.Delete(r.Context(), actor, id); err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusOK, "User deleted successfully", nil)
}

package handlers

import (
	"net/http"

	"github.com/CrowderSoup/project-tracker/database"
	"github.com/CrowderSoup/project-tracker/services"
)

type ProjectHandler struct {
	projects *services.ProjectService
	errors   errorWriter
}

func NewProjectHandler(projects *services.ProjectService, development bool) *ProjectHandler {
	return &ProjectHandler{projects: projects, errors: errorWriter{development: development}}
}

// List accepts status and owner (or owner_id) filters.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, err := queryID(r, "owner", "owner_id")
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	filter := database.ProjectFilter{
		Status:  r.URL.Query().Get("status"),
		OwnerID: owner,
	}

	projects, err := h.projects.List(r.Context(), filter)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", projects)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	project, err := h.projects.Get(r.Context(), id)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", project)
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	var req services.ProjectInput
	if err := decodeJSON(r, &req); err != nil {
		h.errors.write(w, r, err)
		return
	}

	project, err := h.projects.Create(r.Context(), actor, req)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Project created successfully", project)
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	var patch database.ProjectPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.errors.write(w, r, err)
		return
	}

	project, err := h.projects.Update(r.Context(), actor, id, patch)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Project updated successfully", project)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	if err := h.projects.Delete(r.Context(), actor, id); err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Project deleted successfully", nil)
}

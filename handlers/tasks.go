package handlers

import (
	"net/http"

	"github.com/CrowderSoup/project-tracker/database"
	"github.com/CrowderSoup/project-tracker/services"
)

type TaskHandler struct {
	tasks  *services.TaskService
	errors errorWriter
}

func NewTaskHandler(tasks *services.TaskService, development bool) *TaskHandler {
	return &TaskHandler{tasks: tasks, errors: errorWriter{development: development}}
}

// List accepts project_id, owner_id, status and priority filters.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, err := queryID(r, "project_id")
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	ownerID, err := queryID(r, "owner_id", "owner")
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := database.TaskFilter{
		ProjectID: projectID,
		OwnerID:   ownerID,
		Status:    q.Get("status"),
		Priority:  q.Get("priority"),
	}

	tasks, err := h.tasks.List(r.Context(), filter)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	task, err := h.tasks.Get(r.Context(), id)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", task)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	var req services.TaskInput
	if err := decodeJSON(r, &req); err != nil {
		h.errors.write(w, r, err)
		return
	}

	task, err := h.tasks.Create(r.Context(), actor, req)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Task created successfully", task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	var patch database.TaskPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.errors.write(w, r, err)
		return
	}

	task, err := h.tasks.Update(r.Context(), actor, id, patch)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Task updated successfully", task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	if err := h.tasks.Delete(r.Context(), actor, id); err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Task deleted successfully", nil)
}

package server

import (
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/desertthunder/oracle/internal/models"
)

// listTasks filters by the status, priority and category query parameters.
func (d *DevAPI) listTasks(w http.ResponseWriter, r *http.Request, u *devUser) {
	query := r.URL.Query()
	status := models.TaskStatus(query.Get("status"))
	priority := models.TaskPriority(query.Get("priority"))
	category := query.Get("category")

	d.mu.Lock()
	list := []models.Task{}
	for _, t := range d.tasks[u.user.ID] {
		if (status == "" || t.Status == status) &&
			(priority == "" || t.Priority == priority) &&
			(category == "" || t.Category == category) {
			list = append(list, t)
		}
	}
	d.mu.Unlock()

	WriteJSON(w, http.StatusOK, list)
}

func (d *DevAPI) createTask(w http.ResponseWriter, r *http.Request, u *devUser) {
	task, ok := d.decodeTask(w, r)
	if !ok {
		return
	}
	if task.ID == "" {
		task.ID = "task_" + uuid.New().String()
	}
	if task.Created.IsZero() {
		task.Created = d.now().UTC()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if taskIndex(d.tasks[u.user.ID], task.ID) >= 0 {
		WriteError(w, http.StatusConflict, "Task already exists")
		return
	}
	d.tasks[u.user.ID] = append(d.tasks[u.user.ID], task)

	WriteJSON(w, http.StatusCreated, task)
}

func (d *DevAPI) updateTask(w http.ResponseWriter, r *http.Request, u *devUser) {
	task, ok := d.decodeTask(w, r)
	if !ok {
		return
	}
	task.ID = Var(r, "id")

	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.tasks[u.user.ID]
	i := taskIndex(list, task.ID)
	if i < 0 {
		WriteError(w, http.StatusNotFound, "Task not found")
		return
	}
	if task.Created.IsZero() {
		task.Created = list[i].Created
	}
	if task.Updated.IsZero() {
		task.Updated = d.now().UTC()
	}
	list[i] = task

	WriteJSON(w, http.StatusOK, task)
}

func (d *DevAPI) deleteTask(w http.ResponseWriter, r *http.Request, u *devUser) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.tasks[u.user.ID]
	i := taskIndex(list, Var(r, "id"))
	if i < 0 {
		WriteError(w, http.StatusNotFound, "Task not found")
		return
	}
	d.tasks[u.user.ID] = slices.Delete(list, i, i+1)

	WriteJSON(w, http.StatusOK, ErrorBody{Message: "Task deleted"})
}

// completeTask marks a task completed. A "notes" string in the body replaces the task notes.
func (d *DevAPI) completeTask(w http.ResponseWriter, r *http.Request, u *devUser) {
	results := map[string]any{}
	if err := DecodeJSON(r, &results); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.tasks[u.user.ID]
	i := taskIndex(list, Var(r, "id"))
	if i < 0 {
		WriteError(w, http.StatusNotFound, "Task not found")
		return
	}
	list[i].Status = models.StatusCompleted
	list[i].Updated = d.now().UTC()
	for j := range list[i].Subtasks {
		list[i].Subtasks[j].Completed = true
	}
	if notes, ok := results["notes"].(string); ok {
		list[i].Notes = notes
	}

	WriteJSON(w, http.StatusOK, list[i])
}

func (d *DevAPI) decodeTask(w http.ResponseWriter, r *http.Request) (models.Task, bool) {
	var task models.Task
	if err := DecodeJSON(r, &task); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return task, false
	}
	task.Title = strings.TrimSpace(task.Title)
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if err := task.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return task, false
	}
	return task, true
}

func taskIndex(list []models.Task, id string) int {
	return slices.IndexFunc(list, func(t models.Task) bool { return t.ID == id })
}

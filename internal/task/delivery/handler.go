package delivery

import (
	"net/http"

	"pmchat-backend/internal/task/domain"
	"pmchat-backend/internal/task/usecase"
	"pmchat-backend/pkg/apperror"
	"pmchat-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskUsecase usecase.TaskUsecase
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskUsecase usecase.TaskUsecase) *TaskHandler {
	return &TaskHandler{
		taskUsecase: taskUsecase,
	}
}

// CreateTaskRequest represents the request body for creating a task
type CreateTaskRequest struct {
	Task  *domain.Task `json:"task"`
	Email string       `json:"email"`
}

// PatchTaskRequest carries the owner and target alongside the changed fields
type PatchTaskRequest struct {
	Email string `json:"email"`
	ID    string `json:"id"`
	usecase.TaskUpdateRequest
}

type DeleteTaskRequest struct {
	Email string `json:"email"`
	ID    string `json:"id"`
}

type CommentRequest struct {
	Author string `json:"author" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

// CreateTask creates a task and links it to its project stage
// POST /tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := response.Bind(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	task, err := h.taskUsecase.CreateTask(c.Request.Context(), req.Task, response.CallerEmail(c, req.Email))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": task.ID})
}

// GetTasks returns the tasks reported by email
// GET /tasks?email=
func (h *TaskHandler) GetTasks(c *gin.Context) {
	tasks, err := h.taskUsecase.ListByReporter(c.Request.Context(), response.CallerEmail(c, c.Query("email")))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GetTasksByEmail returns the tasks visible to email under role
// GET /tasks/by-email/:email?role=
func (h *TaskHandler) GetTasksByEmail(c *gin.Context) {
	tasks, err := h.taskUsecase.ListTasks(c.Request.Context(), domain.Role(c.Query("role")), c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GetTaskByID returns a specific task
// GET /tasks/:id
func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	task, err := h.taskUsecase.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTask merges the supplied fields into a task
// PATCH /tasks
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req PatchTaskRequest
	if err := response.BindStrict(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	if req.ID == "" {
		response.Error(c, apperror.Validation("task.Update", "id is required"))
		return
	}

	if _, err := h.taskUsecase.UpdateTask(c.Request.Context(), req.ID, req.TaskUpdateRequest, response.CallerEmail(c, req.Email)); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteTask deletes a task
// DELETE /tasks
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	var req DeleteTaskRequest
	if err := response.Bind(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	if req.ID == "" {
		response.Error(c, apperror.Validation("task.Delete", "id is required"))
		return
	}

	if err := h.taskUsecase.DeleteTask(c.Request.Context(), req.ID, response.CallerEmail(c, req.Email)); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AddComment appends a comment to a task
// POST /tasks/:id/comments
func (h *TaskHandler) AddComment(c *gin.Context) {
	var req CommentRequest
	if err := response.Bind(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	comment, err := h.taskUsecase.AddComment(c.Request.Context(), c.Param("id"), response.CallerEmail(c, req.Author), req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// RegisterRoutes mounts the task routes on rg
func (h *TaskHandler) RegisterRoutes(rg gin.IRoutes) {
	rg.POST("/tasks", h.CreateTask)
	rg.GET("/tasks", h.GetTasks)
	rg.PATCH("/tasks", h.UpdateTask)
	rg.DELETE("/tasks", h.DeleteTask)
	rg.GET("/tasks/by-email/:email", h.GetTasksByEmail)
	rg.GET("/tasks/:id", h.GetTaskByID)
	rg.POST("/tasks/:id/comments", h.AddComment)
}

package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"taskhub/internal/app"
	"taskhub/internal/model"
	"taskhub/internal/pkg/upload"
	"taskhub/internal/transport/http/middleware"
	"taskhub/internal/transport/http/response"
)

// attachmentField is the multipart field name attachments arrive in.
const attachmentField = "fileUrl"

type TaskHandler struct {
	taskService *app.TaskService
	uploadDir   string
}

type CreateTaskRequest struct {
	Title       string `json:"title" form:"title" binding:"required,min=3,max=100"`
	Description string `json:"description" form:"description"`
	Priority    string `json:"priority" form:"priority" binding:"omitempty,oneof=Low Medium High"`
	DueDate     string `json:"dueDate" form:"dueDate" binding:"required"`
	AssignedTo  string `json:"assignedTo" form:"assignedTo"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title" form:"title"`
	Description *string `json:"description" form:"description"`
	Priority    *string `json:"priority" form:"priority" binding:"omitempty,oneof=Low Medium High"`
	DueDate     *string `json:"dueDate" form:"dueDate"`
	Status      *string `json:"status" form:"status" binding:"omitempty,oneof=Pending 'In Progress' Completed"`
	AssignedTo  *string `json:"assignedTo" form:"assignedTo"`
}

func NewTaskHandler(taskService *app.TaskService, uploadDir string) *TaskHandler {
	return &TaskHandler{taskService: taskService, uploadDir: uploadDir}
}

func (h *TaskHandler) Create(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized")
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid due date")
		return
	}

	attachment, ok := h.stageAttachment(c)
	if !ok {
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), actor, app.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    model.Priority(req.Priority),
		DueDate:     dueDate,
		AssignedTo:  req.AssignedTo,
		Attachment:  attachment,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrForbidden):
			response.Error(c, http.StatusForbidden, response.CodeForbidden, "access denied: invalid user role")
		case errors.Is(err, app.ErrInvalidTitle),
			errors.Is(err, app.ErrInvalidDueDate),
			errors.Is(err, app.ErrAssigneeNotFound),
			errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to create task")
		}
		return
	}

	response.Created(c, task)
}

func (h *TaskHandler) List(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized")
		return
	}

	tasks, err := h.taskService.List(actor)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to fetch tasks")
		return
	}

	response.OK(c, tasks)
}

func (h *TaskHandler) Get(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized")
		return
	}

	task, err := h.taskService.Get(actor, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrTaskNotFound):
			response.Error(c, http.StatusNotFound, response.CodeTaskNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to fetch task")
		}
		return
	}

	response.OK(c, task)
}

func (h *TaskHandler) Update(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized")
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	input := app.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
	}
	if req.Priority != nil {
		priority := model.Priority(*req.Priority)
		input.Priority = &priority
	}
	if req.Status != nil {
		status := model.Status(*req.Status)
		input.Status = &status
	}
	if req.DueDate != nil && *req.DueDate != "" {
		dueDate, err := parseDueDate(*req.DueDate)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid due date")
			return
		}
		input.DueDate = &dueDate
	}

	attachment, ok := h.stageAttachment(c)
	if !ok {
		return
	}
	input.Attachment = attachment

	task, err := h.taskService.Update(c.Request.Context(), actor, c.Param("id"), input)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrTaskNotFound):
			response.Error(c, http.StatusNotFound, response.CodeTaskNotFound, err.Error())
		case errors.Is(err, app.ErrForbidden):
			response.Error(c, http.StatusForbidden, response.CodeForbidden, "access denied: you cannot update this task")
		case errors.Is(err, app.ErrAssigneeNotFound),
			errors.Is(err, app.ErrInvalidStatusTransition),
			errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to update task")
		}
		return
	}

	response.OK(c, task)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized")
		return
	}

	id := c.Param("id")
	if err := h.taskService.Delete(c.Request.Context(), actor, id); err != nil {
		switch {
		case errors.Is(err, app.ErrTaskNotFound):
			response.Error(c, http.StatusNotFound, response.CodeTaskNotFound, err.Error())
		case errors.Is(err, app.ErrForbidden):
			response.Error(c, http.StatusForbidden, response.CodeForbidden, "access denied: you cannot delete this task")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to delete task")
		}
		return
	}

	response.OK(c, gin.H{"message": "task deleted successfully", "deleted_task_id": id})
}

// stageAttachment pulls an optional multipart file, validates it and writes
// it to the local staging dir. A false return means the request was already
// answered with an upload error.
func (h *TaskHandler) stageAttachment(c *gin.Context) (*app.Attachment, bool) {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return nil, true
	}

	fileHeader, err := c.FormFile(attachmentField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, true
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid file upload")
		return nil, false
	}

	if err := upload.Validate(fileHeader.Filename, fileHeader.Size); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return nil, false
	}

	tempPath := filepath.Join(h.uploadDir, upload.TempName(fileHeader.Filename))
	if err := c.SaveUploadedFile(fileHeader, tempPath); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to store uploaded file")
		return nil, false
	}

	return &app.Attachment{Path: tempPath, Name: fileHeader.Filename}, true
}

func parseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

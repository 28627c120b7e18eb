package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"taskhub/internal/audit"
	"taskhub/internal/metrics"
	"taskhub/internal/model"
	"taskhub/internal/pkg/upload"
	"taskhub/internal/policy"
)

var (
	ErrTaskNotFound            = errors.New("task not found")
	ErrForbidden               = errors.New("access denied")
	ErrAssigneeNotFound        = errors.New("user to assign task not found")
	ErrInvalidTitle            = errors.New("title must be between 3 and 100 characters")
	ErrInvalidDueDate          = errors.New("due date must be a valid date in the future")
	ErrInvalidStatusTransition = errors.New("status cannot move backwards")
)

// TaskStore is the persistence surface TaskService needs. Satisfied by
// repository.TaskRepository.
type TaskStore interface {
	Create(task *model.Task) error
	GetByID(id string) (*model.Task, error)
	ListAll() ([]model.Task, error)
	ListByAssignee(assigneeID string) ([]model.Task, error)
	Save(task *model.Task) error
	Delete(id string) error
}

// UserDirectory resolves assignees. Satisfied by repository.UserRepository.
type UserDirectory interface {
	GetByID(id string) (*model.User, error)
}

// NotificationPublisher enqueues a notification for async delivery.
type NotificationPublisher interface {
	Publish(ctx context.Context, n model.Notification) error
}

// FileStore holds task attachments. Satisfied by storage.ObjectStore.
type FileStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
	Remove(ctx context.Context, key string) error
}

type TaskService struct {
	tasks    TaskStore
	users    UserDirectory
	files    FileStore
	notifier NotificationPublisher
	audit    *audit.Log
	rules    policy.Policy
}

// Attachment is a staged upload waiting to be pushed to the object store.
// Path points at the local temp copy, Name is the client's original name.
type Attachment struct {
	Path string
	Name string
}

type CreateTaskInput struct {
	Title       string
	Description string
	Priority    model.Priority
	DueDate     time.Time
	AssignedTo  string
	Attachment  *Attachment
}

// UpdateTaskInput is a patch: nil means the field was absent from the
// request and must keep its prior value. Present-but-empty strings are
// also left unmerged, matching the API's long-standing behavior.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Priority    *model.Priority
	DueDate     *time.Time
	Status      *model.Status
	AssignedTo  *string
	Attachment  *Attachment
}

// TaskView is a task joined with its assignee's public profile.
type TaskView struct {
	model.Task
	Assignee *model.Profile `json:"assignee,omitempty"`
}

func NewTaskService(
	tasks TaskStore,
	users UserDirectory,
	files FileStore,
	notifier NotificationPublisher,
	auditLog *audit.Log,
	rules policy.Policy,
) *TaskService {
	return &TaskService{
		tasks:    tasks,
		users:    users,
		files:    files,
		notifier: notifier,
		audit:    auditLog,
		rules:    rules,
	}
}

func (s *TaskService) Create(ctx context.Context, actor *model.User, input CreateTaskInput) (*model.Task, error) {
	caller := policy.Caller{ID: actor.ID, Role: actor.Role}

	decision, err := s.rules.ForCreate(caller, strings.TrimSpace(input.AssignedTo))
	if err != nil {
		return nil, ErrForbidden
	}

	title := strings.TrimSpace(input.Title)
	if len(title) < 3 || len(title) > 100 {
		return nil, ErrInvalidTitle
	}
	if input.DueDate.IsZero() || input.DueDate.Before(time.Now()) {
		return nil, ErrInvalidDueDate
	}

	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return nil, ErrInvalidInput
	}

	var assignee *model.User
	if decision.AssignedTo != actor.ID {
		assignee, err = s.users.GetByID(decision.AssignedTo)
		if err != nil {
			return nil, err
		}
		if assignee == nil {
			return nil, ErrAssigneeNotFound
		}
	}

	fileURL, fileKey, err := s.uploadAttachment(ctx, input.Attachment)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		Title:       title,
		Description: input.Description,
		Priority:    priority,
		DueDate:     input.DueDate,
		Status:      model.StatusPending,
		AssignedBy:  decision.AssignedBy,
		AssignedTo:  decision.AssignedTo,
		FileURL:     fileURL,
		FileKey:     fileKey,
	}
	if err := s.tasks.Create(task); err != nil {
		return nil, err
	}

	metrics.TasksCreatedTotal.Inc()
	s.audit.Activity("Task Created", actor.ID, task.ID, "Title: "+task.Title)

	due := task.DueDate.Format("2006-01-02")
	switch {
	case actor.Role == model.RoleUser:
		s.publish(ctx, model.Notification{
			Email:   actor.Email,
			Subject: "Task Created Successfully",
			Body:    fmt.Sprintf("Task %q has been created successfully and assigned to you, the due date for the task is %q.", task.Title, due),
		})
	case assignee == nil:
		s.publish(ctx, model.Notification{
			Email:   actor.Email,
			Subject: "Task Assignment Successful",
			Body:    fmt.Sprintf("Task %q has been assigned to you by default.", task.Title),
		})
	default:
		s.publish(ctx, model.Notification{
			Email:   actor.Email,
			Subject: "Task Assignment Successful",
			Body:    fmt.Sprintf("You have successfully assigned the task %q to %q (ID: %q), and the due date is %q.", task.Title, assignee.Username, assignee.ID, due),
		})
		s.publish(ctx, model.Notification{
			Email:   assignee.Email,
			Subject: "New Task Assigned to You",
			Body:    fmt.Sprintf("A new task %q has been assigned to you by %q (ID: %q), and the due date for the task is %q.", task.Title, actor.Username, actor.ID, due),
		})
	}

	return task, nil
}

func (s *TaskService) List(actor *model.User) ([]TaskView, error) {
	caller := policy.Caller{ID: actor.ID, Role: actor.Role}

	var (
		tasks []model.Task
		err   error
	)
	scope := s.rules.ListScope(caller)
	if scope.All {
		tasks, err = s.tasks.ListAll()
	} else {
		tasks, err = s.tasks.ListByAssignee(scope.AssigneeID)
	}
	if err != nil {
		return nil, err
	}

	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, viewOf(t))
	}
	return views, nil
}

// Get never distinguishes "exists but hidden" from "does not exist":
// both come back as ErrTaskNotFound.
func (s *TaskService) Get(actor *model.User, id string) (*TaskView, error) {
	caller := policy.Caller{ID: actor.ID, Role: actor.Role}

	task, err := s.tasks.GetByID(id)
	if err != nil {
		return nil, err
	}
	if task == nil || !s.rules.CanRead(caller, task) {
		return nil, ErrTaskNotFound
	}

	view := viewOf(*task)
	return &view, nil
}

func (s *TaskService) Update(ctx context.Context, actor *model.User, id string, input UpdateTaskInput) (*model.Task, error) {
	caller := policy.Caller{ID: actor.ID, Role: actor.Role}

	task, err := s.tasks.GetByID(id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		s.audit.Error("Task Update Failed", actor.ID, id, "Task not found")
		return nil, ErrTaskNotFound
	}
	if !s.rules.CanUpdate(caller, task) {
		return nil, ErrForbidden
	}

	var assignee *model.User
	if input.AssignedTo != nil && *input.AssignedTo != "" {
		assignee, err = s.users.GetByID(*input.AssignedTo)
		if err != nil {
			return nil, err
		}
		if assignee == nil {
			return nil, ErrAssigneeNotFound
		}
	}

	statusChanged := false
	if input.Status != nil && *input.Status != "" {
		if !input.Status.Valid() {
			return nil, ErrInvalidInput
		}
		if *input.Status != task.Status {
			if !s.rules.AllowStatusChange(task.Status, *input.Status) {
				return nil, ErrInvalidStatusTransition
			}
			statusChanged = true
		}
	}

	fileChanged := false
	if input.Attachment != nil {
		newURL, newKey, err := s.uploadAttachment(ctx, input.Attachment)
		if err != nil {
			return nil, err
		}
		if task.FileKey != "" {
			if err := s.files.Remove(ctx, task.FileKey); err != nil {
				log.Printf("remove replaced attachment %s failed: %v", task.FileKey, err)
			}
		}
		task.FileURL = newURL
		task.FileKey = newKey
		fileChanged = true
	}

	if input.Title != nil && strings.TrimSpace(*input.Title) != "" {
		task.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil && *input.Description != "" {
		task.Description = *input.Description
	}
	if input.Priority != nil && *input.Priority != "" {
		if !input.Priority.Valid() {
			return nil, ErrInvalidInput
		}
		task.Priority = *input.Priority
	}
	if input.DueDate != nil && !input.DueDate.IsZero() {
		task.DueDate = *input.DueDate
	}
	if statusChanged {
		task.Status = *input.Status
	}
	if assignee != nil {
		task.AssignedTo = assignee.ID
	}

	if err := s.tasks.Save(task); err != nil {
		return nil, err
	}

	if statusChanged {
		s.audit.Activity("Task Status Updated", actor.ID, task.ID, "Status changed to: "+string(task.Status))
	}
	if fileChanged {
		s.audit.Activity("Task File Updated", actor.ID, task.ID, "Uploaded file URL: "+task.FileURL)
	}
	s.audit.Activity("Task Updated", actor.ID, task.ID, "Updated task title: "+task.Title)

	if assignee != nil {
		s.publish(ctx, model.Notification{
			Email:   actor.Email,
			Subject: "Task Assignment Successful",
			Body:    fmt.Sprintf("You have successfully updated and assigned the task %q to %q (ID: %q).", task.Title, assignee.Username, assignee.ID),
		})
	} else {
		s.publish(ctx, model.Notification{
			Email:   actor.Email,
			Subject: "Task Updated Successfully",
			Body:    fmt.Sprintf("Task %q has been updated.", task.Title),
		})
	}

	if current, err := s.users.GetByID(task.AssignedTo); err == nil && current != nil && current.ID != actor.ID {
		s.publish(ctx, model.Notification{
			Email:   current.Email,
			Subject: "Task Updated Successfully",
			Body: fmt.Sprintf("Task %q has been updated by %q (ID: %q), and the due date is %q.",
				task.Title, actor.Username, actor.ID, task.DueDate.Format("2006-01-02")),
		})
	}

	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, actor *model.User, id string) error {
	caller := policy.Caller{ID: actor.ID, Role: actor.Role}

	task, err := s.tasks.GetByID(id)
	if err != nil {
		return err
	}
	if task == nil {
		s.audit.Error("Task Deletion Failed", actor.ID, id, "Task not found")
		return ErrTaskNotFound
	}
	if !s.rules.CanDelete(caller, task) {
		return ErrForbidden
	}

	if task.FileKey != "" {
		if err := s.files.Remove(ctx, task.FileKey); err != nil {
			log.Printf("remove attachment %s for task %s failed: %v", task.FileKey, task.ID, err)
		}
	}

	if err := s.tasks.Delete(task.ID); err != nil {
		return err
	}

	s.audit.Activity("Task Deleted", actor.ID, task.ID, "Task with id "+task.ID+" is deleted")
	return nil
}

// uploadAttachment pushes a staged file to the object store, returning the
// public URL and the object key. The local temp copy is discarded only on
// success.
func (s *TaskService) uploadAttachment(ctx context.Context, att *Attachment) (string, string, error) {
	if att == nil {
		return "", "", nil
	}

	key := upload.ObjectKey(att.Name)
	url, err := s.files.Upload(ctx, att.Path, key)
	if err != nil {
		return "", "", fmt.Errorf("upload attachment failed: %w", err)
	}
	if err := os.Remove(att.Path); err != nil {
		log.Printf("remove staged attachment %s failed: %v", att.Path, err)
	}
	return url, key, nil
}

func (s *TaskService) publish(ctx context.Context, n model.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, n); err != nil {
		log.Printf("enqueue notification for %s failed: %v", n.Email, err)
	}
}

func viewOf(t model.Task) TaskView {
	view := TaskView{Task: t}
	if t.Assignee != nil {
		profile := t.Assignee.Profile()
		view.Assignee = &profile
	}
	view.Task.Assignee = nil
	return view
}

package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskhub/internal/model"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(task *model.Task) error {
	if err := r.db.Create(task).Error; err != nil {
		return fmt.Errorf("create task failed: %w", err)
	}
	return nil
}

func (r *TaskRepository) GetByID(id string) (*model.Task, error) {
	var task model.Task
	if err := r.db.Preload("Assignee").Where("id = ?", id).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query task by id failed: %w", err)
	}
	return &task, nil
}

// ListAll returns every task in the store's natural order; no explicit
// sort is applied.
func (r *TaskRepository) ListAll() ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks failed: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) ListByAssignee(assigneeID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.Preload("Assignee").Where("assigned_to = ?", assigneeID).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks by assignee failed: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Save(task *model.Task) error {
	if err := r.db.Save(task).Error; err != nil {
		return fmt.Errorf("save task failed: %w", err)
	}
	return nil
}

func (r *TaskRepository) Delete(id string) error {
	if err := r.db.Where("id = ?", id).Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete task failed: %w", err)
	}
	return nil
}

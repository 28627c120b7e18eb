package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskhub/internal/model"
)

func TestListScope(t *testing.T) {
	p := Policy{}

	admin := Caller{ID: "admin-1", Role: model.RoleAdmin}
	user := Caller{ID: "user-1", Role: model.RoleUser}

	assert.True(t, p.ListScope(admin).All)
	assert.Equal(t, Scope{AssigneeID: "user-1"}, p.ListScope(user))
}

func TestCanRead(t *testing.T) {
	p := Policy{}
	task := &model.Task{AssignedBy: "admin-1", AssignedTo: "user-1"}

	tests := []struct {
		name   string
		caller Caller
		want   bool
	}{
		{"admin reads anything", Caller{ID: "admin-2", Role: model.RoleAdmin}, true},
		{"assignee reads own task", Caller{ID: "user-1", Role: model.RoleUser}, true},
		{"other user cannot read", Caller{ID: "user-2", Role: model.RoleUser}, false},
		{"assigner without admin role cannot read", Caller{ID: "admin-1", Role: model.RoleUser}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.CanRead(tt.caller, task))
		})
	}
}

func TestForCreate(t *testing.T) {
	p := Policy{}

	t.Run("user is forced to self-assign", func(t *testing.T) {
		d, err := p.ForCreate(Caller{ID: "user-1", Role: model.RoleUser}, "user-2")
		assert.NoError(t, err)
		assert.Equal(t, CreateDecision{AssignedBy: "user-1", AssignedTo: "user-1"}, d)
	})

	t.Run("admin assigns requested target", func(t *testing.T) {
		d, err := p.ForCreate(Caller{ID: "admin-1", Role: model.RoleAdmin}, "user-2")
		assert.NoError(t, err)
		assert.Equal(t, CreateDecision{AssignedBy: "admin-1", AssignedTo: "user-2"}, d)
	})

	t.Run("admin defaults to self when target omitted", func(t *testing.T) {
		d, err := p.ForCreate(Caller{ID: "admin-1", Role: model.RoleAdmin}, "")
		assert.NoError(t, err)
		assert.Equal(t, CreateDecision{AssignedBy: "admin-1", AssignedTo: "admin-1"}, d)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		_, err := p.ForCreate(Caller{ID: "x", Role: model.Role("Ghost")}, "")
		assert.ErrorIs(t, err, ErrRoleNotAllowed)
	})
}

func TestCanUpdate(t *testing.T) {
	p := Policy{}
	task := &model.Task{AssignedBy: "admin-1", AssignedTo: "user-1"}

	assert.True(t, p.CanUpdate(Caller{ID: "other", Role: model.RoleAdmin}, task))
	assert.True(t, p.CanUpdate(Caller{ID: "admin-1", Role: model.RoleUser}, task))
	assert.True(t, p.CanUpdate(Caller{ID: "user-1", Role: model.RoleUser}, task))
	assert.False(t, p.CanUpdate(Caller{ID: "user-2", Role: model.RoleUser}, task))
}

func TestCanDelete(t *testing.T) {
	p := Policy{}
	task := &model.Task{AssignedBy: "admin-1", AssignedTo: "user-1"}

	assert.True(t, p.CanDelete(Caller{ID: "admin-1", Role: model.RoleAdmin}, task))
	assert.False(t, p.CanDelete(Caller{ID: "user-1", Role: model.RoleUser}, task))
	// Deletion rights follow assignedBy, not the role.
	assert.False(t, p.CanDelete(Caller{ID: "admin-2", Role: model.RoleAdmin}, task))
}

func TestAllowStatusChange(t *testing.T) {
	t.Run("permissive by default", func(t *testing.T) {
		p := Policy{}
		assert.True(t, p.AllowStatusChange(model.StatusCompleted, model.StatusPending))
		assert.True(t, p.AllowStatusChange(model.StatusPending, model.StatusCompleted))
	})

	t.Run("forward-only when enforced", func(t *testing.T) {
		p := Policy{EnforceStatusOrder: true}
		assert.True(t, p.AllowStatusChange(model.StatusPending, model.StatusInProgress))
		assert.True(t, p.AllowStatusChange(model.StatusInProgress, model.StatusCompleted))
		assert.True(t, p.AllowStatusChange(model.StatusPending, model.StatusPending))
		assert.False(t, p.AllowStatusChange(model.StatusPending, model.StatusCompleted))
		assert.False(t, p.AllowStatusChange(model.StatusCompleted, model.StatusPending))
		assert.False(t, p.AllowStatusChange(model.StatusInProgress, model.StatusPending))
	})
}

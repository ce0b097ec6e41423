package models

import "time"

// PersistedTask is the JSON projection of a Task stored under the "tasks" key.
type PersistedTask struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Assignee    string     `json:"assignee"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// PersistedMember is the JSON projection of a TeamMember stored under the "teamMembers" key.
type PersistedMember struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
	IsActive bool      `json:"isActive"`
}

// Persisted returns the plain-data projection of t.
func (t *Task) Persisted() PersistedTask {
	return PersistedTask{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Assignee:    t.Assignee,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		DueDate:     copyTime(t.DueDate),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// TaskFromPersisted rebuilds a Task, keeping the stored id and timestamps.
// Unknown status or priority values fall back to the defaults.
func TaskFromPersisted(p PersistedTask) *Task {
	status := TaskStatus(p.Status)
	if !status.Valid() {
		status = TaskStatusTodo
	}
	priority := TaskPriority(p.Priority)
	if !priority.Valid() {
		priority = TaskPriorityMedium
	}
	return &Task{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Assignee:    p.Assignee,
		Priority:    priority,
		Status:      status,
		DueDate:     copyTime(p.DueDate),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// Persisted returns the plain-data projection of m.
func (m *TeamMember) Persisted() PersistedMember {
	return PersistedMember{
		ID:       m.ID,
		Name:     m.Name,
		Email:    m.Email,
		Role:     string(m.Role),
		JoinedAt: m.JoinedAt,
		IsActive: m.IsActive,
	}
}

// MemberFromPersisted rebuilds a TeamMember from its stored projection.
func MemberFromPersisted(p PersistedMember) *TeamMember {
	role := MemberRole(p.Role)
	if !role.Valid() {
		role = MemberRoleMember
	}
	return &TeamMember{
		ID:       p.ID,
		Name:     p.Name,
		Email:    p.Email,
		Role:     role,
		JoinedAt: p.JoinedAt,
		IsActive: p.IsActive,
	}
}

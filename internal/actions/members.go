package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/joescharf/tm/internal/models"
)

// ErrMemberNotFound is returned when no member has the requested id.
var ErrMemberNotFound = errors.New("member not found")

// MemberRepository is the member persistence used by Members.
// controller.Members satisfies it.
type MemberRepository interface {
	Create(ctx context.Context, in models.MemberInput) *models.TeamMember
	GetAll(ctx context.Context) []*models.TeamMember
	GetByID(ctx context.Context, id string) (*models.TeamMember, bool)
	Update(ctx context.Context, id string, u models.MemberUpdate) (*models.TeamMember, bool)
	Delete(ctx context.Context, id string) (*models.TeamMember, bool)
	Reactivate(ctx context.Context, id string) (*models.TeamMember, bool)
}

// Members validates member input before it reaches the repository.
type Members struct {
	repo MemberRepository

	// mu holds the active-email check and the write that follows it
	// together so concurrent requests cannot both claim one address.
	mu sync.Mutex
}

// NewMembers returns a member action layer over repo.
func NewMembers(repo MemberRepository) *Members {
	return &Members{repo: repo}
}

// CreateMember validates in and adds an active member.
func (m *Members) CreateMember(ctx context.Context, in models.MemberInput) (*models.TeamMember, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.validate(ctx, "", in.Name, in.Email, in.Role); err != nil {
		return nil, err
	}
	return m.repo.Create(ctx, in), nil
}

// UpdateMember validates the merged result of u and applies it.
func (m *Members) UpdateMember(ctx context.Context, id string, u models.MemberUpdate) (*models.TeamMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.GetMember(ctx, id)
	if err != nil {
		return nil, err
	}

	name, email, role := current.Name, current.Email, current.Role
	if u.Name != nil {
		name = strings.TrimSpace(*u.Name)
		u.Name = &name
	}
	if u.Email != nil {
		email = strings.TrimSpace(*u.Email)
		u.Email = &email
	}
	if u.Role != nil {
		role = *u.Role
	}
	if err := m.validate(ctx, id, name, email, role); err != nil {
		return nil, err
	}

	updated, ok := m.repo.Update(ctx, id, u)
	if !ok {
		return nil, fmt.Errorf("update member %s: %w", id, ErrMemberNotFound)
	}
	return updated, nil
}

// DeleteMember deactivates the member, freeing its email for reuse.
func (m *Members) DeleteMember(ctx context.Context, id string) (*models.TeamMember, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("id", "member id is required")
	}
	removed, ok := m.repo.Delete(ctx, id)
	if !ok {
		return nil, fmt.Errorf("delete member %s: %w", id, ErrMemberNotFound)
	}
	return removed, nil
}

// ReactivateMember marks a removed member active again. It fails with
// ErrValidation while another active member holds the same email.
func (m *Members) ReactivateMember(ctx context.Context, id string) (*models.TeamMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.GetMember(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.IsActive {
		return current, nil
	}
	for _, other := range m.repo.GetAll(ctx) {
		if other.Email == current.Email {
			return nil, invalid("email", fmt.Sprintf("email %s is now used by %s", current.Email, other.Name))
		}
	}
	reactivated, ok := m.repo.Reactivate(ctx, id)
	if !ok {
		return nil, fmt.Errorf("reactivate member %s: %w", id, ErrMemberNotFound)
	}
	return reactivated, nil
}

// ListMembers returns active members.
func (m *Members) ListMembers(ctx context.Context) []*models.TeamMember {
	return m.repo.GetAll(ctx)
}

// GetMember returns a member by id, active or not.
func (m *Members) GetMember(ctx context.Context, id string) (*models.TeamMember, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("id", "member id is required")
	}
	member, ok := m.repo.GetByID(ctx, id)
	if !ok {
		return nil, fmt.Errorf("get member %s: %w", id, ErrMemberNotFound)
	}
	return member, nil
}

// validate checks name, email and role. selfID is excluded from the
// duplicate email check so a member can keep its own address.
func (m *Members) validate(ctx context.Context, selfID, name, email string, role models.MemberRole) error {
	fe := FieldErrors{}
	if name == "" {
		fe["name"] = "name is required"
	}
	switch {
	case email == "":
		fe["email"] = "email is required"
	case !models.ValidEmail(email):
		fe["email"] = "email is invalid"
	default:
		for _, other := range m.repo.GetAll(ctx) {
			if other.Email == email && other.ID != selfID {
				fe["email"] = "email already exists"
				break
			}
		}
	}
	if role != "" && !role.Valid() {
		fe["role"] = fmt.Sprintf("invalid role %q", role)
	}
	return fe.err()
}

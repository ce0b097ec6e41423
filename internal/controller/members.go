package controller

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/joescharf/tm/internal/kv"
	"github.com/joescharf/tm/internal/models"
)

// Members is the team member repository. Deleting a member deactivates it.
type Members struct {
	mu      sync.RWMutex
	store   kv.Store
	logger  *slog.Logger
	now     func() time.Time
	members []*models.TeamMember
}

// NewMembers builds a controller and loads any previously saved members.
func NewMembers(ctx context.Context, store kv.Store, opts ...Option) *Members {
	o := buildOptions(opts)
	c := &Members{store: store, logger: o.logger, now: o.now}

	var persisted []models.PersistedMember
	if err := load(ctx, store, MembersKey, &persisted); err != nil {
		c.logger.ErrorContext(ctx, "load team members", slog.Any("error", err))
		return c
	}
	for _, p := range persisted {
		c.members = append(c.members, models.MemberFromPersisted(p))
	}
	return c
}

// Create stores a new active member. Input validation is the caller's job.
func (c *Members) Create(ctx context.Context, in models.MemberInput) *models.TeamMember {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := models.NewTeamMember(in, c.now())
	c.members = append(c.members, m)
	c.saveLocked(ctx)
	return m.Clone()
}

// GetAll returns active members in insertion order.
func (c *Members) GetAll(_ context.Context) []*models.TeamMember {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*models.TeamMember
	for _, m := range c.members {
		if m.IsActive {
			out = append(out, m.Clone())
		}
	}
	return out
}

// GetAllIncludingInactive returns every member ever created.
func (c *Members) GetAllIncludingInactive(_ context.Context) []*models.TeamMember {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*models.TeamMember, len(c.members))
	for i, m := range c.members {
		out[i] = m.Clone()
	}
	return out
}

// GetByID returns the member (active or not) and true, or nil and false.
func (c *Members) GetByID(_ context.Context, id string) (*models.TeamMember, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.members[i].Clone(), true
	}
	return nil, false
}

// Update applies u to the member with the given id.
func (c *Members) Update(ctx context.Context, id string, u models.MemberUpdate) (*models.TeamMember, bool) {
	return c.mutate(ctx, id, func(m *models.TeamMember) { m.Apply(u) })
}

// Delete deactivates the member. The record is kept.
func (c *Members) Delete(ctx context.Context, id string) (*models.TeamMember, bool) {
	return c.mutate(ctx, id, (*models.TeamMember).Deactivate)
}

// Reactivate marks a previously deleted member active again.
func (c *Members) Reactivate(ctx context.Context, id string) (*models.TeamMember, bool) {
	return c.mutate(ctx, id, (*models.TeamMember).Activate)
}

func (c *Members) mutate(ctx context.Context, id string, fn func(*models.TeamMember)) (*models.TeamMember, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return nil, false
	}
	fn(c.members[i])
	c.saveLocked(ctx)
	return c.members[i].Clone(), true
}

func (c *Members) indexLocked(id string) int {
	return slices.IndexFunc(c.members, func(m *models.TeamMember) bool { return m.ID == id })
}

func (c *Members) saveLocked(ctx context.Context) {
	persisted := make([]models.PersistedMember, len(c.members))
	for i, m := range c.members {
		persisted[i] = m.Persisted()
	}
	save(ctx, c.store, c.logger, MembersKey, persisted)
}

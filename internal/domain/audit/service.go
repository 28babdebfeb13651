package audit

import (
	"context"
	"time"

	"minimart/internal/core/appctx"
	"minimart/internal/core/apperror"
	"minimart/internal/core/id"
	"minimart/pkg/logger"
)

// SystemActor attributes entries produced by background jobs.
const SystemActor = "system"

// ListFilter narrows audit queries.
type ListFilter struct {
	Action     *Action
	EntityType *string
	ActorID    *string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// Store persists audit entries. The postgres implementation compresses
// metadata payloads before writing.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter ListFilter) ([]Entry, error)
}

// Service builds entries from the request context and hands them to the
// store. Recording failures are logged and swallowed: an audit write
// must never fail the business operation it documents, the operation's
// own transaction already holds the durable record.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Record appends an entry attributed to the authenticated user.
func (s *Service) Record(ctx context.Context, entityType string, entityID id.ID, meta Metadata) {
	user := appctx.GetUser(ctx)
	if user == nil {
		logger.Error(ctx, "audit entry dropped: no user in context",
			"action", meta.Kind(), "entity_type", entityType, "entity_id", entityID)
		return
	}
	s.append(ctx, entityType, entityID, user.UserID, user.Username, meta)
}

// RecordSystem appends an entry attributed to a background job.
func (s *Service) RecordSystem(ctx context.Context, entityType string, entityID id.ID, meta Metadata) {
	s.append(ctx, entityType, entityID, SystemActor, SystemActor, meta)
}

func (s *Service) append(ctx context.Context, entityType string, entityID id.ID, actorID, actorName string, meta Metadata) {
	entry := &Entry{
		ID:         id.New(),
		Action:     meta.Kind(),
		EntityType: entityType,
		EntityID:   entityID.String(),
		ActorID:    actorID,
		ActorName:  actorName,
		Metadata:   meta,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.Append(ctx, entry); err != nil {
		logger.Error(ctx, "failed to append audit entry",
			"action", entry.Action, "entity_id", entry.EntityID, "error", err)
	}
}

// List returns entries newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	entries, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return entries, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"minimart/internal/core/apperror"
	"minimart/internal/core/id"
	"minimart/internal/domain/auth"
)

const usersTable = "users"

// UserRepo implements auth.UserRepository.
type UserRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
	columns   []string
}

// NewUserRepo creates a new user repository.
func NewUserRepo(txManager *TxManager) *UserRepo {
	return &UserRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns:   ExtractDBColumns[auth.User](),
	}
}

var _ auth.UserRepository = (*UserRepo)(nil)

// Create inserts a new user.
func (r *UserRepo) Create(ctx context.Context, u *auth.User) error {
	q := r.builder.Insert(usersTable).SetMap(StructToMap(u))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by id.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	q := r.builder.Select(r.columns...).From(usersTable).
		Where(squirrel.Eq{"id": userID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var u auth.User
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &u, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", userID)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetByUsername retrieves a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	q := r.builder.Select(r.columns...).From(usersTable).
		Where(squirrel.Eq{"username": username}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var u auth.User
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &u, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", username)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// Update modifies a user with optimistic locking.
func (r *UserRepo) Update(ctx context.Context, u *auth.User) error {
	currentVersion := u.Version
	u.Version++

	values := StructToMap(u)
	delete(values, "id")
	delete(values, "created_at")

	q := r.builder.Update(usersTable).
		SetMap(values).
		Where(squirrel.Eq{"id": u.ID}).
		Where(squirrel.Eq{"version": currentVersion})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("user", u.ID)
	}
	return nil
}

// List returns users ordered by username.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]auth.User, error) {
	q := r.builder.Select(r.columns...).From(usersTable).
		OrderBy("username ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var users []auth.User
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &users, sql, args...); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	return users, nil
}

package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/user"
)

var userColumns = []string{
	"id", "email", "full_name", "role", "department_id", "is_active",
	"password_hash", "created_at", "updated_at", "last_login",
}

type userRow struct {
	ID           string      `db:"id"`
	Email        string      `db:"email"`
	FullName     string      `db:"full_name"`
	Role         string      `db:"role"`
	DepartmentID null.String `db:"department_id"`
	IsActive     bool        `db:"is_active"`
	PasswordHash null.Bytes  `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

type userRepository struct {
	base
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{base{exec: exec}}
}

func (repo userRepository) boil(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Email:        usr.Email,
		FullName:     usr.FullName,
		Role:         usr.Role,
		DepartmentID: null.StringFromPtr(usr.DepartmentID),
		IsActive:     usr.IsActive,
		PasswordHash: null.NewBytes(usr.PasswordHash, len(usr.PasswordHash) > 0),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) unboil(row userRow) user.User {
	return user.User{
		ID:           row.ID,
		Email:        row.Email,
		FullName:     row.FullName,
		Role:         row.Role,
		DepartmentID: row.DepartmentID.Ptr(),
		IsActive:     row.IsActive,
		PasswordHash: row.PasswordHash.Bytes,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

func (repo userRepository) trapErr(err error, msg string) error {
	err = trapErr(err, user.ErrNotFound, msg)
	if core.IsDuplicate(err) {
		return core.NewDuplicateError(user.ErrEmailExists, "email")
	}
	return err
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	q := builder().Select("1").From(tableProfiles).Where("LOWER(email) = LOWER(?)", email).Limit(1)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q = q.Where(squirrel.NotEq{"id": ids})
	}
	var exists int
	err := get(ctx, repo.getExec(exec), &exists, q)
	switch {
	case err == nil:
		return user.ErrEmailExists
	case errors.Is(err, sql.ErrNoRows):
		return nil
	default:
		return errors.Wrap(err, "checking email uniqueness")
	}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	row := repo.boil(usr)
	q := builder().Insert(tableProfiles).Columns(userColumns...).Values(
		row.ID, row.Email, row.FullName, row.Role, row.DepartmentID, row.IsActive,
		row.PasswordHash, row.CreatedAt, row.UpdatedAt, row.LastLogin,
	)
	if _, err := execute(ctx, repo.getExec(exec), q); err != nil {
		return user.User{}, repo.trapErr(err, "inserting user")
	}
	return repo.unboil(row), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	q := builder().Select(userColumns...).From(tableProfiles)
	if filter != nil {
		// users with FullName or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			q = q.Where(squirrel.Or{squirrel.ILike{"full_name": val}, squirrel.ILike{"email": val}})
		}
		if len(filter.Roles) > 0 {
			q = q.Where(squirrel.Eq{"role": filter.Roles})
		}
		if filter.DepartmentID != "" {
			q = q.Where(squirrel.Eq{"department_id": filter.DepartmentID})
		}
		if filter.IsActive != nil {
			q = q.Where(squirrel.Eq{"is_active": *filter.IsActive})
		}
	}
	q = orderBy(q, ordering, "created_at ASC")

	var rows []userRow
	if err := selectAll(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.unboil(row))
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	q := builder().Select(userColumns...).From(tableProfiles)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		q = q.Where(squirrel.Eq{"id": filter.ID})
	case filter.Email != "":
		q = q.Where("LOWER(email) = LOWER(?)", filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := get(ctx, repo.getExec(exec), &row, q); err != nil {
		return user.User{}, repo.trapErr(err, "finding user")
	}
	return repo.unboil(row), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row := repo.boil(usr)
	q := builder().Update(tableProfiles).SetMap(map[string]interface{}{
		"email":         row.Email,
		"full_name":     row.FullName,
		"role":          row.Role,
		"department_id": row.DepartmentID,
		"is_active":     row.IsActive,
		"password_hash": row.PasswordHash,
		"updated_at":    row.UpdatedAt,
		"last_login":    row.LastLogin,
	}).Where(squirrel.Eq{"id": row.ID})

	n, err := execute(ctx, repo.getExec(exec), q)
	if err != nil {
		return user.User{}, repo.trapErr(err, "updating user")
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.unboil(row), nil
}

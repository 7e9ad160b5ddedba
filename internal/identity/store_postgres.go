// Copyright (c) 2026 NextDash. All rights reserved.

// PostgreSQL implementations of the identity storage contracts.
package identity

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nextdash/nextdash/internal/platform/dberr"
	"github.com/nextdash/nextdash/pkg/pagination"
)

const userColumns = `
	u.id, u.email, u.password_hash, u.first_name, u.last_name, u.role_id,
	COALESCE(r.name, ''), COALESCE(u.avatar_url, ''), u.is_active, u.email_verified,
	u.is_approved, u.approved_by, u.approved_at, u.last_login_at, u.created_at, u.updated_at`

// PostgresUserRepository implements [UserRepository] using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates the PostgreSQL user repository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.RoleID,
		&user.RoleName,
		&user.AvatarURL,
		&user.IsActive,
		&user.EmailVerified,
		&user.IsApproved,
		&user.ApprovedBy,
		&user.ApprovedAt,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// buildUserFilter renders the filter into a WHERE clause and its arguments.
// Placeholders start at $1; callers append their own after these.
func buildUserFilter(filter UserFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RoleID != nil {
		args = append(args, *filter.RoleID)
		clauses = append(clauses, "u.role_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, "u.is_active = $"+strconv.Itoa(len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		placeholder := "$" + strconv.Itoa(len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(u.first_name ILIKE %s OR u.last_name ILIKE %s OR u.email ILIKE %s)",
			placeholder, placeholder, placeholder))
	}

	return strings.Join(clauses, " AND "), args
}

// List returns the filtered, newest-first page of users plus the total count.
func (repository *PostgresUserRepository) List(ctx context.Context, filter UserFilter, page pagination.Params) ([]User, int64, error) {
	where, args := buildUserFilter(filter)

	countQuery := `SELECT COUNT(*) FROM users u WHERE ` + where

	var total int64
	if err := repository.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("user_repo_count_failed: %w", err)
	}

	listQuery := `
		SELECT` + userColumns + `
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		WHERE ` + where + `
		ORDER BY u.created_at DESC
		LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, page.Limit, page.Offset())

	rows, err := repository.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("user_repo_list_failed: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("user_repo_list_scan_failed: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("user_repo_list_rows_failed: %w", err)
	}

	return users, total, nil
}

// FindByID retrieves a user with its role name by primary key.
func (repository *PostgresUserRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT` + userColumns + `
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1`

	user, err := scanUser(repository.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "User")
	}
	return user, nil
}

// FindByEmail retrieves a user with its role name by exact email match.
func (repository *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT` + userColumns + `
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		WHERE u.email = $1`

	user, err := scanUser(repository.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, dberr.Wrap(err, "User")
	}
	return user, nil
}

// Create persists a new user row.
func (repository *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	const query = `
		INSERT INTO users (email, password_hash, first_name, last_name, role_id, avatar_url,
			is_active, email_verified, is_approved)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := repository.pool.QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.RoleID,
		user.AvatarURL,
		user.IsActive,
		user.EmailVerified,
		user.IsApproved,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return dberr.Wrap(err, "User")
	}
	return nil
}

// Update persists the user's mutable fields. The password hash is owned by
// the auth domain and never written here.
func (repository *PostgresUserRepository) Update(ctx context.Context, user *User) error {
	const query = `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, role_id = $5,
			avatar_url = NULLIF($6, ''), is_active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := repository.pool.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.RoleID,
		user.AvatarURL,
		user.IsActive,
	).Scan(&user.UpdatedAt)

	if err != nil {
		return dberr.Wrap(err, "User")
	}
	return nil
}

// Approve flips the approval flag and records the approver.
func (repository *PostgresUserRepository) Approve(ctx context.Context, userID, approverID int64) error {
	const query = `
		UPDATE users
		SET is_approved = TRUE, approved_by = $2, approved_at = NOW(), updated_at = NOW()
		WHERE id = $1`

	_, err := repository.pool.Exec(ctx, query, userID, approverID)
	if err != nil {
		return fmt.Errorf("user_repo_approve_failed: %w", err)
	}
	return nil
}

// Delete removes the user row. Session rows cascade via foreign key.
func (repository *PostgresUserRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM users WHERE id = $1`

	_, err := repository.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("user_repo_delete_failed: %w", err)
	}
	return nil
}

// ── Role Repository ──────────────────────────────────────────────────────────

const roleColumns = `
	r.id, r.name, COALESCE(r.description, ''), COALESCE(r.permissions, '{}'::jsonb),
	r.is_active, r.created_at, r.updated_at`

// PostgresRoleRepository implements [RoleRepository].
type PostgresRoleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository creates the PostgreSQL role repository.
func NewRoleRepository(pool *pgxpool.Pool) *PostgresRoleRepository {
	return &PostgresRoleRepository{pool: pool}
}

// List returns every role, privileged first, with active-user counts.
func (repository *PostgresRoleRepository) List(ctx context.Context) ([]Role, error) {
	query := `
		SELECT` + roleColumns + `,
			(SELECT COUNT(*) FROM users u WHERE u.role_id = r.id AND u.is_active) AS user_count
		FROM roles r
		ORDER BY r.id ASC`

	rows, err := repository.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("role_repo_list_failed: %w", err)
	}
	defer rows.Close()

	roles := []Role{}
	for rows.Next() {
		role := Role{}
		err := rows.Scan(
			&role.ID,
			&role.Name,
			&role.Description,
			&role.Permissions,
			&role.IsActive,
			&role.CreatedAt,
			&role.UpdatedAt,
			&role.UserCount,
		)
		if err != nil {
			return nil, fmt.Errorf("role_repo_list_scan_failed: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("role_repo_list_rows_failed: %w", err)
	}

	return roles, nil
}

// FindByID retrieves a role by primary key.
func (repository *PostgresRoleRepository) FindByID(ctx context.Context, id int) (*Role, error) {
	query := `SELECT` + roleColumns + ` FROM roles r WHERE r.id = $1`

	role := &Role{}
	err := repository.pool.QueryRow(ctx, query, id).Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&role.Permissions,
		&role.IsActive,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "Role")
	}
	return role, nil
}

// Create persists a new role row.
func (repository *PostgresRoleRepository) Create(ctx context.Context, role *Role) error {
	const query = `
		INSERT INTO roles (name, description, permissions, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := repository.pool.QueryRow(ctx, query,
		role.Name,
		role.Description,
		role.Permissions,
		role.IsActive,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)

	if err != nil {
		return dberr.Wrap(err, "Role")
	}
	return nil
}

// Update persists the role's definition fields.
func (repository *PostgresRoleRepository) Update(ctx context.Context, role *Role) error {
	const query = `
		UPDATE roles
		SET name = $2, description = $3, permissions = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := repository.pool.QueryRow(ctx, query,
		role.ID,
		role.Name,
		role.Description,
		role.Permissions,
		role.IsActive,
	).Scan(&role.UpdatedAt)

	if err != nil {
		return dberr.Wrap(err, "Role")
	}
	return nil
}

// Deactivate soft-deletes the role.
func (repository *PostgresRoleRepository) Deactivate(ctx context.Context, id int) error {
	const query = `UPDATE roles SET is_active = FALSE, updated_at = NOW() WHERE id = $1`

	_, err := repository.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("role_repo_deactivate_failed: %w", err)
	}
	return nil
}

// CountActiveUsers reports how many active users hold the role.
func (repository *PostgresRoleRepository) CountActiveUsers(ctx context.Context, id int) (int64, error) {
	const query = `SELECT COUNT(*) FROM users WHERE role_id = $1 AND is_active = TRUE`

	var count int64
	if err := repository.pool.QueryRow(ctx, query, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("role_repo_count_users_failed: %w", err)
	}
	return count, nil
}

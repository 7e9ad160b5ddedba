// Copyright (c) 2026 NextDash. All rights reserved.

// PostgreSQL implementation of the settings storage contracts.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAdminRepository implements [AdminRepository] using pgx.
type PostgresAdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates the PostgreSQL admin-settings repository.
func NewAdminRepository(pool *pgxpool.Pool) *PostgresAdminRepository {
	return &PostgresAdminRepository{pool: pool}
}

// List returns every admin setting ordered by key.
func (repository *PostgresAdminRepository) List(ctx context.Context) ([]AdminSetting, error) {
	const query = `
		SELECT setting_key, setting_value, COALESCE(description, ''), updated_at
		FROM admin_settings
		ORDER BY setting_key`

	rows, err := repository.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("settings_repo_list_failed: %w", err)
	}
	defer rows.Close()

	entries := []AdminSetting{}
	for rows.Next() {
		var entry AdminSetting
		if err := rows.Scan(&entry.Key, &entry.Value, &entry.Description, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("settings_repo_list_scan_failed: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("settings_repo_list_rows_failed: %w", err)
	}

	return entries, nil
}

// GetMany returns the values for the requested keys.
func (repository *PostgresAdminRepository) GetMany(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	const query = `
		SELECT setting_key, setting_value
		FROM admin_settings
		WHERE setting_key = ANY($1)`

	rows, err := repository.pool.Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("settings_repo_get_many_failed: %w", err)
	}
	defer rows.Close()

	values := map[string]json.RawMessage{}
	for rows.Next() {
		var key string
		var value json.RawMessage
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("settings_repo_get_many_scan_failed: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("settings_repo_get_many_rows_failed: %w", err)
	}

	return values, nil
}

// Upsert inserts or replaces a single setting value.
func (repository *PostgresAdminRepository) Upsert(ctx context.Context, key string, value json.RawMessage) error {
	const query = `
		INSERT INTO admin_settings (setting_key, setting_value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (setting_key) DO UPDATE
		SET setting_value = EXCLUDED.setting_value, updated_at = NOW()`

	if _, err := repository.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("settings_repo_upsert_failed: %w", err)
	}
	return nil
}

// PostgresUserRepository implements [UserRepository] using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates the PostgreSQL user-settings repository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Get returns the user's settings document, or nil when absent.
func (repository *PostgresUserRepository) Get(ctx context.Context, userID int64) (json.RawMessage, error) {
	const query = `SELECT settings FROM user_settings WHERE user_id = $1`

	var document json.RawMessage
	err := repository.pool.QueryRow(ctx, query, userID).Scan(&document)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings_repo_user_get_failed: %w", err)
	}
	return document, nil
}

// Put inserts or replaces the user's settings document.
func (repository *PostgresUserRepository) Put(ctx context.Context, userID int64, document json.RawMessage) error {
	const query = `
		INSERT INTO user_settings (user_id, settings, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET settings = EXCLUDED.settings, updated_at = NOW()`

	if _, err := repository.pool.Exec(ctx, query, userID, document); err != nil {
		return fmt.Errorf("settings_repo_user_put_failed: %w", err)
	}
	return nil
}

// Reset deletes the user's settings row.
func (repository *PostgresUserRepository) Reset(ctx context.Context, userID int64) error {
	const query = `DELETE FROM user_settings WHERE user_id = $1`

	if _, err := repository.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("settings_repo_user_reset_failed: %w", err)
	}
	return nil
}

package rules

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fenghou-lab/hotpick/internal/contracts"
)

// Repository persists rule configurations. Configurations are editable
// independently of any report and consumed by stage 4 at run time.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a rule-config repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// List returns all rule configurations ordered by sort key.
func (r *Repository) List(ctx context.Context) ([]contracts.RuleConfig, error) {
	return r.list(ctx, false)
}

// ListEnabled returns enabled rule configurations ordered by sort key.
func (r *Repository) ListEnabled(ctx context.Context) ([]contracts.RuleConfig, error) {
	return r.list(ctx, true)
}

func (r *Repository) list(ctx context.Context, enabledOnly bool) ([]contracts.RuleConfig, error) {
	query := `
		SELECT rule_key, rule_name, params, enabled, sort_order
		FROM rule_configs
	`
	if enabledOnly {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY sort_order, rule_key`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rule configs: %w", err)
	}
	defer rows.Close()

	var configs []contracts.RuleConfig
	for rows.Next() {
		var cfg contracts.RuleConfig
		var paramsJSON []byte
		if err := rows.Scan(&cfg.RuleKey, &cfg.Name, &paramsJSON, &cfg.Enabled, &cfg.SortOrder); err != nil {
			return nil, fmt.Errorf("scan rule config: %w", err)
		}
		if len(paramsJSON) > 0 {
			if err := json.Unmarshal(paramsJSON, &cfg.Params); err != nil {
				return nil, fmt.Errorf("unmarshal rule params for %s: %w", cfg.RuleKey, err)
			}
		}
		configs = append(configs, cfg)
	}

	return configs, rows.Err()
}

// Upsert inserts or updates one rule configuration.
func (r *Repository) Upsert(ctx context.Context, cfg *contracts.RuleConfig) error {
	paramsJSON, err := json.Marshal(cfg.Params)
	if err != nil {
		return fmt.Errorf("marshal rule params: %w", err)
	}

	query := `
		INSERT INTO rule_configs (rule_key, rule_name, params, enabled, sort_order, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (rule_key) DO UPDATE SET
			rule_name = EXCLUDED.rule_name,
			params = EXCLUDED.params,
			enabled = EXCLUDED.enabled,
			sort_order = EXCLUDED.sort_order,
			updated_at = NOW()
	`

	_, err = r.db.Exec(ctx, query, cfg.RuleKey, cfg.Name, paramsJSON, cfg.Enabled, cfg.SortOrder)
	if err != nil {
		return fmt.Errorf("upsert rule config %s: %w", cfg.RuleKey, err)
	}

	return nil
}

// Seed inserts the default configurations for keys not yet present.
// Existing rows are left untouched so operator edits survive restarts.
func (r *Repository) Seed(ctx context.Context) error {
	query := `
		INSERT INTO rule_configs (rule_key, rule_name, params, enabled, sort_order, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (rule_key) DO NOTHING
	`

	for _, cfg := range DefaultConfigs() {
		paramsJSON, err := json.Marshal(cfg.Params)
		if err != nil {
			return fmt.Errorf("marshal default params for %s: %w", cfg.RuleKey, err)
		}
		if _, err := r.db.Exec(ctx, query, cfg.RuleKey, cfg.Name, paramsJSON, cfg.Enabled, cfg.SortOrder); err != nil {
			return fmt.Errorf("seed rule config %s: %w", cfg.RuleKey, err)
		}
	}

	return nil
}

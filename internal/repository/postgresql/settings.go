package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/settings"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/database"
)

type settingsRepositoryImpl struct {
	db *database.DB
}

func NewSettingsRepository(db *database.DB) settings.SettingsRepository {
	return &settingsRepositoryImpl{db: db}
}

// GetAll implements settings.SettingsRepository.
func (r *settingsRepositoryImpl) GetAll(ctx context.Context, companyID string, keys []string) (map[string]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT key, value
		FROM company_settings
		WHERE company_id = $1 AND key = ANY($2)
	`, companyID, keys)
	if err != nil {
		return nil, fmt.Errorf("get company settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, len(keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan company setting: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return values, nil
}

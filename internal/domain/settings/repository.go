package settings

import "context"

// SettingsRepository reads company configuration. Writes belong to the settings administration
// surface and are not part of this service.
type SettingsRepository interface {
	// GetAll returns the company's values for keys. Missing keys are absent from the map.
	GetAll(ctx context.Context, companyID string, keys []string) (map[string]string, error)
}

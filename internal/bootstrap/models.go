package bootstrap

import (
	"fmt"
	"strings"

	"densiview/internal/domain"
)

var modelCatalog = []domain.ModelOption{
	{
		ID:          "breast_density",
		Name:        "Breast Density",
		Endpoint:    "breast_density",
		Description: "BI-RADS density category with benign/malignant probability scores.",
	},
	{
		ID:          "birads_classifier",
		Name:        "BI-RADS Classifier",
		Endpoint:    "birads_classifier",
		Description: "Lesion-level BI-RADS assessment category.",
	},
	{
		ID:          "lesion_detection",
		Name:        "Lesion Detection",
		Endpoint:    "lesion_detection",
		Description: "Bounding boxes for suspicious regions with confidence scores.",
	},
}

// ModelCatalog returns the built-in analysis model presets for the settings page.
func (a *App) ModelCatalog() []domain.ModelOption {
	models := make([]domain.ModelOption, len(modelCatalog))
	copy(models, modelCatalog)
	return models
}

// SelectModel updates settings to target one catalog model.
func (a *App) SelectModel(modelID string) (domain.Settings, error) {
	id := strings.TrimSpace(modelID)
	if id == "" {
		return domain.Settings{}, fmt.Errorf("model id is required")
	}

	model, found := modelByID(id)
	if !found {
		return domain.Settings{}, fmt.Errorf("unknown model id: %s", id)
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)
	settings.ModelEndpoint = model.Endpoint

	return a.SaveSettings(settings)
}

func modelByID(id string) (domain.ModelOption, bool) {
	for _, model := range modelCatalog {
		if model.ID == id {
			return model, true
		}
	}
	return domain.ModelOption{}, false
}

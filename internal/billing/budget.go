package billing

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/peterpeterparker/leancow/internal/export"
	"github.com/peterpeterparker/leancow/internal/models"
	"github.com/peterpeterparker/leancow/internal/store"
)

// UpdateBudget accumulates the exported amounts onto the billed budget of
// each project that contributed a line item. Like the status transition it
// only runs when bill is true; projects without a budget get one on first
// billing. Line items referencing a project that disappeared from the
// collection are skipped.
func UpdateBudget(st store.Store, items []export.LineItem, bill bool) error {
	if !bill || len(items) == 0 {
		return nil
	}

	billed := make(map[string]decimal.Decimal)
	for _, item := range items {
		billed[item.ProjectID] = billed[item.ProjectID].Add(item.Amount)
	}

	return st.Update(store.KeyProjects, func(value []byte) ([]byte, error) {
		if value == nil {
			return nil, nil
		}

		var projects []models.Project
		if err := json.Unmarshal(value, &projects); err != nil {
			return nil, fmt.Errorf("decode projects: %w", err)
		}

		changed := false
		for i, project := range projects {
			amount, ok := billed[project.ID]
			if !ok {
				continue
			}
			if projects[i].Budget == nil {
				projects[i].Budget = &models.Budget{}
			}
			billedAmount, _ := amount.Float64()
			projects[i].Budget.Billed += billedAmount
			changed = true
		}

		if !changed {
			return nil, nil
		}

		next, err := json.MarshalIndent(projects, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode projects: %w", err)
		}
		return next, nil
	})
}

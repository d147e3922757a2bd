package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
)

// sortModules orders modules reading/writing first, then by order_index.
func sortModules(modules []*models.TestModule) {
	sort.SliceStable(modules, func(i, j int) bool {
		si, sj := modules[i].Section.Order(), modules[j].Section.Order()
		if si != sj {
			return si < sj
		}
		return modules[i].OrderIndex < modules[j].OrderIndex
	})
}

// planModules narrows a test's modules to the attempt's scope and returns
// them in delivery order. The first module_1 of the plan opens the attempt.
func planModules(modules []*models.TestModule, cfg models.AttemptConfig) ([]*models.TestModule, *models.TestModule, error) {
	var plan []*models.TestModule
	for _, m := range modules {
		switch cfg.Scope {
		case models.ScopeRWOnly:
			if m.Section != models.SectionReadingWriting {
				continue
			}
		case models.ScopeMathOnly:
			if m.Section != models.SectionMath {
				continue
			}
		case models.ScopeSingleModule:
			if cfg.SelectedModuleID == nil || m.ID != *cfg.SelectedModuleID {
				continue
			}
		}
		plan = append(plan, m)
	}

	if len(plan) == 0 {
		if cfg.Scope == models.ScopeSingleModule {
			return nil, nil, ErrSelectedModuleMissing
		}
		return nil, nil, ErrNoModules
	}

	sortModules(plan)
	first := plan[0]
	for _, m := range plan {
		if m.Module == models.Module1 {
			first = m
			break
		}
	}
	return plan, first, nil
}

// scopeEndsAfter reports whether finishing module completes the attempt
// before any further routing.
func scopeEndsAfter(scope models.TestScope, module *models.TestModule) bool {
	switch scope {
	case models.ScopeSingleModule:
		return true
	case models.ScopeRWOnly:
		return module.Section == models.SectionReadingWriting && module.Module == models.Module2
	case models.ScopeMathOnly:
		return module.Section == models.SectionMath && module.Module == models.Module2
	}
	return false
}

// pickByDifficulty prefers the target difficulty, then standard, then the
// first candidate.
func pickByDifficulty(candidates []*models.TestModule, target models.ModuleDifficulty) *models.TestModule {
	if len(candidates) == 0 {
		return nil
	}
	for _, m := range candidates {
		if m.Difficulty == target {
			return m
		}
	}
	for _, m := range candidates {
		if m.Difficulty == models.DifficultyStandard {
			return m
		}
	}
	return candidates[0]
}

// resolveNextModule returns the module that follows the submitted one, or
// nil when the attempt is complete. After a module_1 the same section's
// module_2 is chosen by difficulty; after reading/writing the math section
// follows in a full-scope attempt.
func (s *attemptService) resolveNextModule(ctx context.Context, attempt *models.TestAttempt, module *models.TestModule, difficulty *models.ModuleDifficulty) (*models.TestModule, error) {
	cfg := attempt.Settings()
	if scopeEndsAfter(cfg.Scope, module) {
		return nil, nil
	}

	if module.Module == models.Module1 {
		candidates, err := s.repo.Module().FindBySlot(ctx, attempt.TestID, module.Section, models.Module2)
		if err != nil {
			return nil, fmt.Errorf("failed to find module_2: %w", err)
		}
		target := models.DifficultyStandard
		if difficulty != nil {
			target = *difficulty
		}
		if next := pickByDifficulty(candidates, target); next != nil {
			return next, nil
		}
	}

	if module.Section == models.SectionReadingWriting && cfg.Scope == models.ScopeFull {
		candidates, err := s.repo.Module().FindBySlot(ctx, attempt.TestID, models.SectionMath, models.Module1)
		if err != nil {
			return nil, fmt.Errorf("failed to find math module_1: %w", err)
		}
		if len(candidates) > 0 {
			return candidates[0], nil
		}
	}

	return nil, nil
}

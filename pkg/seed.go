package pkg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DemoTestTitle = "Practice Test 1"

// DemoTest builds a small published adaptive test: each section has a
// module_1 of six questions and easier, standard and harder module_2
// variants of four questions.
func DemoTest() *models.Test {
	test := &models.Test{
		Title:       DemoTestTitle,
		Description: strPtr("Short adaptive practice test"),
		IsPublished: true,
	}

	passage := &models.Passage{
		Title:   strPtr("The Lighthouse Keeper"),
		Content: "For forty years the keeper climbed the spiral stairs each evening to light the lamp.",
	}

	order := 0
	add := func(section models.SATSection, module models.SATModule, difficulty models.ModuleDifficulty, minutes, n int) {
		order++
		m := models.TestModule{
			Section:          section,
			Module:           module,
			Difficulty:       difficulty,
			TimeLimitMinutes: minutes,
			OrderIndex:       order,
		}
		for i := 1; i <= n; i++ {
			m.Questions = append(m.Questions, demoQuestion(section, module, difficulty, i, passage))
		}
		test.Modules = append(test.Modules, m)
	}

	add(models.SectionReadingWriting, models.Module1, models.DifficultyStandard, 32, 6)
	add(models.SectionReadingWriting, models.Module2, models.DifficultyEasier, 32, 4)
	add(models.SectionReadingWriting, models.Module2, models.DifficultyStandard, 32, 4)
	add(models.SectionReadingWriting, models.Module2, models.DifficultyHarder, 32, 4)
	add(models.SectionMath, models.Module1, models.DifficultyStandard, 35, 6)
	add(models.SectionMath, models.Module2, models.DifficultyEasier, 35, 4)
	add(models.SectionMath, models.Module2, models.DifficultyStandard, 35, 4)
	add(models.SectionMath, models.Module2, models.DifficultyHarder, 35, 4)

	return test
}

var optionIDs = []string{"A", "B", "C", "D"}

func demoQuestion(section models.SATSection, module models.SATModule, difficulty models.ModuleDifficulty, n int, passage *models.Passage) models.Question {
	q := models.Question{
		QuestionNumber: n,
		QuestionType:   models.QuestionMultipleChoice,
		Difficulty:     strPtr(string(difficulty)),
	}

	if section == models.SectionReadingWriting {
		q.QuestionText = fmt.Sprintf("Which choice best completes the text? (%s %d)", module, n)
		q.Domain = strPtr([]string{"craft_structure", "information_ideas"}[n%2])
		if n <= 2 {
			q.Passage = passage
		}
	} else {
		q.QuestionText = fmt.Sprintf("Solve for x. (%s %d)", module, n)
		q.Domain = strPtr([]string{"algebra", "advanced_math"}[n%2])
	}

	// The last math module_1 question is a student-produced response
	if section == models.SectionMath && module == models.Module1 && n == 6 {
		q.QuestionType = models.QuestionGridIn
		q.QuestionText = "If 2x = 7, what is the value of x?"
		q.CorrectAnswer = mustJSON([]string{"3.5", "7/2"})
		q.Explanation = strPtr("Divide both sides by 2.")
		return q
	}

	options := make([]models.Option, len(optionIDs))
	for i, id := range optionIDs {
		options[i] = models.Option{ID: id, Text: fmt.Sprintf("Choice %s", id)}
	}
	q.Options = mustJSON(options)
	q.CorrectAnswer = mustJSON([]string{optionIDs[n%len(optionIDs)]})
	q.Explanation = strPtr(fmt.Sprintf("Choice %s is supported by the text.", optionIDs[n%len(optionIDs)]))
	return q
}

// SeedDemo stores DemoTest unless a test with its title already exists.
func SeedDemo(ctx context.Context, db *gorm.DB) (*models.Test, error) {
	var existing models.Test
	err := db.WithContext(ctx).Where("title = ?", DemoTestTitle).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	test := DemoTest()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Shared passages are stored once before the questions that cite them
		for mi := range test.Modules {
			for qi := range test.Modules[mi].Questions {
				p := test.Modules[mi].Questions[qi].Passage
				if p == nil || p.ID != 0 {
					continue
				}
				if err := tx.Create(p).Error; err != nil {
					return err
				}
			}
		}
		return tx.Create(test).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to seed demo test: %w", err)
	}
	return test, nil
}

func mustJSON(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return datatypes.JSON(b)
}

func strPtr(s string) *string {
	return &s
}

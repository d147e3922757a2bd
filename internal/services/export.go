package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet   = "Summary"
	questionsSheet = "Questions"
	timeLayout     = "2006-01-02 15:04:05"
)

// ExportReview renders the attempt review as an xlsx workbook with a
// summary sheet and one row per reviewed question.
func (s *attemptService) ExportReview(ctx context.Context, attemptID uint, userID string) ([]byte, error) {
	review, err := s.Review(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	return buildReviewWorkbook(review)
}

func buildReviewWorkbook(review *ReviewResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// The default sheet becomes the summary
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(questionsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	a := review.Attempt
	completedAt := ""
	if a.CompletedAt != nil {
		completedAt = a.CompletedAt.Format(timeLayout)
	}
	summary := [][]interface{}{
		{"Attempt", a.ID},
		{"Test", a.TestTitle},
		{"Status", string(a.Status)},
		{"Scope", string(a.Scope)},
		{"Started At", a.StartedAt.Format(timeLayout)},
		{"Completed At", completedAt},
		{"Reading & Writing", optionalInt(a.RWScaledScore)},
		{"Math", optionalInt(a.MathScaledScore)},
		{"Total Score", optionalInt(a.TotalScore)},
		{"Correct", review.Summary.TotalCorrect},
		{"Questions", review.Summary.TotalQuestions},
		{"Accuracy (%)", review.Summary.Accuracy},
		{},
		{"Domain", "Correct", "Total", "Accuracy (%)"},
	}
	for _, d := range review.Summary.ByDomain {
		summary = append(summary, []interface{}{d.Domain, d.Correct, d.Total, d.Accuracy})
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return nil, err
	}

	rows := [][]interface{}{{
		"Section", "Module", "Difficulty", "Question", "Domain",
		"Your Answer", "Correct Answer", "Result", "Flagged", "Time (s)",
	}}
	for _, m := range review.Modules {
		for _, q := range m.Questions {
			userAnswer, result, spent := "", "Unanswered", ""
			if q.UserAnswer != nil {
				userAnswer = *q.UserAnswer
			}
			if q.IsCorrect != nil {
				result = "Incorrect"
				if *q.IsCorrect {
					result = "Correct"
				}
			}
			if q.TimeSpentSeconds != nil {
				spent = fmt.Sprint(*q.TimeSpentSeconds)
			}
			flagged := ""
			if q.IsFlagged {
				flagged = "Yes"
			}
			rows = append(rows, []interface{}{
				string(m.Section), string(m.Module), string(m.Difficulty), q.QuestionNumber, q.Domain,
				userAnswer, strings.Join(q.CorrectAnswer, " / "), result, flagged, spent,
			})
		}
	}
	if err := writeRows(f, questionsSheet, rows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

func optionalInt(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

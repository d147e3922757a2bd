package services

import (
	"math"
	"sort"

	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
)

// conversionPoint maps a raw score, rescaled to the section's full length,
// to a scaled score. Tables are ordered from the highest raw score down.
type conversionPoint struct {
	raw    int
	scaled int
}

var rwConversion = []conversionPoint{
	{54, 800}, {52, 780}, {50, 760}, {48, 740}, {46, 720}, {44, 700}, {42, 680},
	{40, 660}, {38, 640}, {36, 620}, {34, 600}, {32, 580}, {30, 560}, {28, 540},
	{26, 520}, {24, 500}, {22, 480}, {20, 460}, {18, 440}, {16, 420}, {14, 400},
	{12, 380}, {10, 360}, {8, 340}, {6, 320}, {4, 300}, {2, 260}, {0, 200},
}

var mathConversion = []conversionPoint{
	{44, 800}, {42, 780}, {40, 750}, {38, 720}, {36, 690}, {34, 660}, {32, 630},
	{30, 600}, {28, 570}, {26, 540}, {24, 510}, {22, 480}, {20, 450}, {18, 420},
	{16, 390}, {14, 360}, {12, 330}, {10, 300}, {8, 280}, {6, 260}, {4, 240},
	{2, 220}, {0, 200},
}

const (
	minSectionScore = 200
	minTotalScore   = 400

	harderThreshold = 0.7
	easierThreshold = 0.4
)

// sectionCeiling caps the scaled score by the module_2 path taken.
var sectionCeiling = map[models.ModuleDifficulty]int{
	models.DifficultyEasier:   660,
	models.DifficultyStandard: 720,
}

// NextDifficulty picks the module_2 difficulty from module_1 performance.
func NextDifficulty(correct, total int) models.ModuleDifficulty {
	if total == 0 {
		return models.DifficultyStandard
	}
	perf := float64(correct) / float64(total)
	switch {
	case perf >= harderThreshold:
		return models.DifficultyHarder
	case perf <= easierThreshold:
		return models.DifficultyEasier
	}
	return models.DifficultyStandard
}

// ScaledScore converts a raw section score. secondModule is the difficulty
// of the module_2 taken, empty when unknown.
func ScaledScore(section models.SATSection, raw, total int, secondModule models.ModuleDifficulty) int {
	if total <= 0 {
		return minSectionScore
	}

	table, full := rwConversion, 54
	if section == models.SectionMath {
		table, full = mathConversion, 44
	}

	scaledRaw := int(float64(raw) / float64(total) * float64(full))
	score := minSectionScore
	for _, p := range table {
		if scaledRaw >= p.raw {
			score = p.scaled
			break
		}
	}

	if ceiling, ok := sectionCeiling[secondModule]; ok && score > ceiling {
		score = ceiling
	}
	return score
}

// SectionTally is the raw score of one section across its modules.
type SectionTally struct {
	Correct      int
	Total        int
	SecondModule models.ModuleDifficulty
}

// ScoreCard holds every score written to an attempt on completion. Nil
// entries belong to sections the attempt did not cover.
type ScoreCard struct {
	ReadingWritingRaw    *int
	MathRaw              *int
	ReadingWritingScaled *int
	MathScaled           *int
	Total                *int
}

// TallySections sums module results per section. The module_2 difficulty is
// taken from the routing decision recorded on the section's module_1.
func TallySections(results []*models.ModuleResult) map[models.SATSection]*SectionTally {
	tallies := make(map[models.SATSection]*SectionTally)
	for _, r := range results {
		t, ok := tallies[r.Section]
		if !ok {
			t = &SectionTally{}
			tallies[r.Section] = t
		}
		t.Correct += r.CorrectCount
		t.Total += r.TotalCount
		if r.NextModuleDifficulty != nil && t.SecondModule == "" {
			t.SecondModule = *r.NextModuleDifficulty
		}
	}
	return tallies
}

// ComputeScoreCard turns module results into section and total scores.
func ComputeScoreCard(results []*models.ModuleResult) ScoreCard {
	var card ScoreCard
	tallies := TallySections(results)

	if t, ok := tallies[models.SectionReadingWriting]; ok {
		raw := t.Correct
		scaled := ScaledScore(models.SectionReadingWriting, t.Correct, t.Total, t.SecondModule)
		card.ReadingWritingRaw = &raw
		card.ReadingWritingScaled = &scaled
	}
	if t, ok := tallies[models.SectionMath]; ok {
		raw := t.Correct
		scaled := ScaledScore(models.SectionMath, t.Correct, t.Total, t.SecondModule)
		card.MathRaw = &raw
		card.MathScaled = &scaled
	}

	total := 0
	if card.ReadingWritingScaled != nil {
		total += *card.ReadingWritingScaled
	}
	if card.MathScaled != nil {
		total += *card.MathScaled
	}
	if total > 0 {
		if total < minTotalScore {
			total = minTotalScore
		}
		card.Total = &total
	}
	return card
}

// Apply copies the card onto the attempt.
func (c ScoreCard) Apply(attempt *models.TestAttempt) {
	attempt.ReadingWritingRawScore = c.ReadingWritingRaw
	attempt.MathRawScore = c.MathRaw
	attempt.ReadingWritingScaledScore = c.ReadingWritingScaled
	attempt.MathScaledScore = c.MathScaled
	attempt.TotalScore = c.Total
}

// ===== DOMAIN BREAKDOWN =====

type domainCounter struct {
	order   []string
	correct map[string]int
	total   map[string]int
}

func newDomainCounter() *domainCounter {
	return &domainCounter{correct: map[string]int{}, total: map[string]int{}}
}

func (d *domainCounter) add(domain string, correct bool) {
	if domain == "" {
		domain = "unknown"
	}
	if _, ok := d.total[domain]; !ok {
		d.order = append(d.order, domain)
	}
	d.total[domain]++
	if correct {
		d.correct[domain]++
	}
}

// stats returns the tally sorted by domain name.
func (d *domainCounter) stats() []models.DomainStat {
	names := append([]string(nil), d.order...)
	sort.Strings(names)

	out := make([]models.DomainStat, 0, len(names))
	for _, name := range names {
		out = append(out, models.DomainStat{
			Domain:   name,
			Correct:  d.correct[name],
			Total:    d.total[name],
			Accuracy: accuracy(d.correct[name], d.total[name]),
		})
	}
	return out
}

// accuracy is a percentage rounded to one decimal place.
func accuracy(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*1000) / 10
}

package services

import (
	"context"
	"sort"
	"strings"

	"github.com/mandadito/backend/internal/models"
)

// MatchTaskerRepo is the minimal tasker repository interface required for matching.
type MatchTaskerRepo interface {
	List(ctx context.Context, approved *bool) ([]*models.Tasker, error)
}

// MatchRatingSource returns the aggregate of ratings a tasker received as tasker.
type MatchRatingSource interface {
	TaskerSummary(ctx context.Context, taskerID int64) (models.RatingSummary, error)
}

// Matcher suggests taskers a client could invite to a pending task.
type Matcher struct {
	Taskers MatchTaskerRepo
	Ratings MatchRatingSource
}

func NewMatcher(taskers MatchTaskerRepo, ratings MatchRatingSource) *Matcher {
	return &Matcher{Taskers: taskers, Ratings: ratings}
}

// Candidate is a suggested tasker with the score it was ranked by.
type Candidate struct {
	Tasker   models.UserSummary   `json:"tasker"`
	Rating   models.RatingSummary `json:"rating"`
	SameCity bool                 `json:"same_city"`
	Score    float64              `json:"score"`
}

// ratingConfidenceAt is the rating count at which a tasker's average is fully trusted.
const ratingConfidenceAt = 10

// unratedAverage is assumed for taskers with no ratings yet.
const unratedAverage = 3.0

// buildCandidates keeps approved taskers that can legally take the task.
func buildCandidates(ctx context.Context, taskers []*models.Tasker, task *models.Task, exclude map[int64]bool, ratings MatchRatingSource) ([]Candidate, error) {
	var out []Candidate
	for _, tk := range taskers {
		if !tk.Approved || exclude[tk.ID] {
			continue
		}
		if task.RequiresLicense && !tk.HasLicense {
			continue
		}
		summary, err := ratings.TaskerSummary(ctx, tk.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Candidate{
			Tasker:   models.UserSummary{ID: tk.ID, Name: tk.Name, City: tk.City},
			Rating:   summary,
			SameCity: sameCity(tk.City, task.Location.City),
		})
	}
	return out, nil
}

func sameCity(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

// scoreAndSort ranks candidates best first: rating 0.5, rating confidence 0.2, same city 0.3.
func scoreAndSort(candidates []Candidate) {
	for i := range candidates {
		c := &candidates[i]
		avg := c.Rating.AverageStars
		if c.Rating.Count == 0 {
			avg = unratedAverage
		}
		confidence := float64(c.Rating.Count) / ratingConfidenceAt
		if confidence > 1 {
			confidence = 1
		}
		city := 0.0
		if c.SameCity {
			city = 1
		}
		c.Score = (avg/5)*0.5 + confidence*0.2 + city*0.3
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Tasker.ID < candidates[j].Tasker.ID
	})
}

// SuggestTaskers returns up to limit ranked candidates for task, skipping ids in exclude.
func (m *Matcher) SuggestTaskers(ctx context.Context, task *models.Task, exclude map[int64]bool, limit int) ([]Candidate, error) {
	approved := true
	taskers, err := m.Taskers.List(ctx, &approved)
	if err != nil {
		return nil, err
	}
	candidates, err := buildCandidates(ctx, taskers, task, exclude, m.Ratings)
	if err != nil {
		return nil, err
	}
	scoreAndSort(candidates)
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	if candidates == nil {
		candidates = []Candidate{}
	}
	return candidates, nil
}

// Package ratings lets the two participants of a completed task rate each
// other, and aggregates what each user received.
package ratings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/mandadito/backend/internal/apperr"
	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

// DefaultWindow bounds both rating a completed task and editing a rating.
const DefaultWindow = 7 * 24 * time.Hour

const maxCommentLength = 1000

var (
	ErrRatingWindowExpired = errors.New("rating window expired")
	ErrEditWindowExpired   = errors.New("rating edit window expired")
	ErrTaskNeverStarted    = errors.New("task was never started")
)

type Input struct {
	Stars           int     `json:"stars"`
	Punctuality     *int    `json:"punctuality"`
	Quality         *int    `json:"quality"`
	Communication   *int    `json:"communication"`
	Professionalism *int    `json:"professionalism"`
	Comment         *string `json:"comment"`
}

// Observer receives one event per saved rating. metrics.Recorder implements it.
type Observer interface {
	RatingSaved(created bool, raterRole string)
}

type Service interface {
	// Rate creates the caller's rating of the other participant, or edits it
	// when it already exists. created reports which one happened.
	Rate(ctx context.Context, actor models.Identity, taskID int64, in Input) (r *models.Rating, created bool, err error)
	ListForTask(ctx context.Context, actor models.Identity, taskID int64) ([]*models.Rating, error)
	Received(ctx context.Context, ratedID int64, role models.Role) ([]*models.Rating, models.RatingSummary, error)
	Summary(ctx context.Context, ratedID int64, role models.Role) (models.RatingSummary, error)
	TaskerSummary(ctx context.Context, taskerID int64) (models.RatingSummary, error)
}

type service struct {
	backend store.Backend
	window  time.Duration
	obs     Observer
	log     *slog.Logger
	now     func() time.Time
}

func NewService(backend store.Backend, window time.Duration, obs Observer, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &service{backend: backend, window: window, obs: obs, log: log, now: func() time.Time { return time.Now().UTC() }}
}

var _ Service = (*service)(nil)

func validate(in *Input) error {
	if in.Stars < 1 || in.Stars > 5 {
		return apperr.Validation("stars must be between 1 and 5")
	}
	subs := map[string]*int{
		"punctuality":     in.Punctuality,
		"quality":         in.Quality,
		"communication":   in.Communication,
		"professionalism": in.Professionalism,
	}
	for name, v := range subs {
		if v != nil && (*v < 1 || *v > 5) {
			return apperr.Validation("%s must be between 1 and 5", name)
		}
	}
	if in.Comment != nil {
		c := strings.TrimSpace(*in.Comment)
		if len([]rune(c)) > maxCommentLength {
			return apperr.Validation("comment must be at most %d characters", maxCommentLength)
		}
		in.Comment = &c
	}
	return nil
}

// counterpart returns who the actor rates on t.
func counterpart(actor models.Identity, t *models.Task) (raterID, ratedID int64, ratedRole models.Role, err error) {
	switch actor.ActiveRole {
	case models.RoleClient:
		if actor.ClientID == nil || *actor.ClientID != t.ClientID {
			break
		}
		if t.TaskerID == nil {
			return 0, 0, "", apperr.InvalidState("rate", models.TaskStateCompleted, t.State)
		}
		return t.ClientID, *t.TaskerID, models.RoleTasker, nil
	case models.RoleTasker:
		if actor.TaskerID == nil || !t.IsAssignedTo(*actor.TaskerID) {
			break
		}
		return *t.TaskerID, t.ClientID, models.RoleClient, nil
	}
	return 0, 0, "", apperr.Permission("only the participants of task %d can rate it", t.ID)
}

// checkCreate is the eligibility gate for a first rating.
func (s *service) checkCreate(t *models.Task, now time.Time) error {
	if t.State != models.TaskStateCompleted {
		return apperr.InvalidState("rate", models.TaskStateCompleted, t.State)
	}
	if t.WorkStartedAt == nil || t.WorkCompletedAt == nil {
		return apperr.Wrap(apperr.KindInvalidState, ErrTaskNeverStarted, fmt.Sprintf("task %d was never started", t.ID))
	}
	if now.After(t.WorkCompletedAt.Add(s.window)) {
		return apperr.Wrap(apperr.KindInvalidState, ErrRatingWindowExpired,
			fmt.Sprintf("ratings close %s after the work is completed", humanize(s.window)))
	}
	return nil
}

func humanize(d time.Duration) string {
	if d%(24*time.Hour) == 0 {
		return fmt.Sprintf("%d days", d/(24*time.Hour))
	}
	return d.String()
}

func (s *service) Rate(ctx context.Context, actor models.Identity, taskID int64, in Input) (*models.Rating, bool, error) {
	if err := validate(&in); err != nil {
		return nil, false, err
	}
	var out *models.Rating
	var created bool
	err := s.backend.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		t, err := st.Tasks.GetByID(ctx, taskID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("task %d not found", taskID)
		}
		if err != nil {
			return err
		}
		raterID, ratedID, ratedRole, err := counterpart(actor, t)
		if err != nil {
			return err
		}
		now := s.now()

		existing, err := st.Ratings.Find(ctx, store.RatingFilter{TaskID: &t.ID, RaterID: &raterID, RaterRole: actor.ActiveRole})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			r := existing[0]
			if now.After(r.CreatedAt.Add(s.window)) {
				return apperr.Wrap(apperr.KindInvalidState, ErrEditWindowExpired,
					fmt.Sprintf("ratings can be edited for %s after they are created", humanize(s.window)))
			}
			apply(r, in)
			out = r
			return st.Ratings.Update(ctx, r)
		}

		if err := s.checkCreate(t, now); err != nil {
			return err
		}
		r := &models.Rating{
			TaskID:    t.ID,
			RaterID:   raterID,
			RaterRole: actor.ActiveRole,
			RatedID:   ratedID,
			RatedRole: ratedRole,
		}
		apply(r, in)
		if err := st.Ratings.Create(ctx, r); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.Wrap(apperr.KindConflict, err, "rating was saved concurrently, retry to edit it")
			}
			return err
		}
		out, created = r, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if s.obs != nil {
		s.obs.RatingSaved(created, string(out.RaterRole))
	}
	s.log.Info("rating saved", "task_id", out.TaskID, "rating_id", out.ID, "rater_role", out.RaterRole, "created", created)
	return out, created, nil
}

func apply(r *models.Rating, in Input) {
	r.Stars = in.Stars
	r.Punctuality = in.Punctuality
	r.Quality = in.Quality
	r.Communication = in.Communication
	r.Professionalism = in.Professionalism
	r.Comment = in.Comment
}

func (s *service) ListForTask(ctx context.Context, actor models.Identity, taskID int64) ([]*models.Rating, error) {
	st := s.backend.Stores()
	t, err := st.Tasks.GetByID(ctx, taskID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("task %d not found", taskID)
	}
	if err != nil {
		return nil, err
	}
	if actor.ActiveRole != models.RoleAdmin {
		if _, _, _, err := counterpart(actor, t); err != nil && apperr.Is(err, apperr.KindPermission) {
			return nil, err
		}
	}
	return st.Ratings.Find(ctx, store.RatingFilter{TaskID: &t.ID})
}

func (s *service) Received(ctx context.Context, ratedID int64, role models.Role) ([]*models.Rating, models.RatingSummary, error) {
	list, err := s.backend.Stores().Ratings.Find(ctx, store.RatingFilter{RatedID: &ratedID, RatedRole: role})
	if err != nil {
		return nil, models.RatingSummary{}, err
	}
	return list, summarize(ratedID, role, list), nil
}

func (s *service) Summary(ctx context.Context, ratedID int64, role models.Role) (models.RatingSummary, error) {
	_, sum, err := s.Received(ctx, ratedID, role)
	return sum, err
}

// TaskerSummary feeds tasker matching.
func (s *service) TaskerSummary(ctx context.Context, taskerID int64) (models.RatingSummary, error) {
	return s.Summary(ctx, taskerID, models.RoleTasker)
}

func summarize(ratedID int64, role models.Role, list []*models.Rating) models.RatingSummary {
	sum := models.RatingSummary{RatedID: ratedID, RatedRole: role, Count: len(list)}
	if len(list) == 0 {
		return sum
	}
	total := 0
	for _, r := range list {
		total += r.Stars
	}
	sum.AverageStars = math.Round(float64(total)/float64(len(list))*100) / 100
	return sum
}

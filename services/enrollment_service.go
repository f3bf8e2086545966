package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/challenge"
	"growthTrackerAPI/internal/metrics"
	"growthTrackerAPI/internal/user"
	"growthTrackerAPI/utils"
)

var errNoActiveChallenge = apperror.NotFound("no active challenge")

type EnrollmentService struct {
	db      *gorm.DB
	catalog *CatalogService
	loc     *time.Location
	now     func() time.Time
}

func NewEnrollmentService(db *gorm.DB, catalog *CatalogService, loc *time.Location) *EnrollmentService {
	return &EnrollmentService{db: db, catalog: catalog, loc: loc, now: time.Now}
}

func (s *EnrollmentService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *EnrollmentService) today() string {
	return utils.DayKey(s.now(), s.loc)
}

// Enroll starts challengeID for the user today, ending any active enrollment.
// taskIDs optionally narrows the challenge to a subset of its tasks.
func (s *EnrollmentService) Enroll(ctx context.Context, userID, challengeID uuid.UUID, taskIDs []uuid.UUID) (*challenge.SessionResponse, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := loadChallenge(tx, challengeID)
		if err != nil {
			return err
		}
		_, err = s.enrollTx(tx, userID, c, taskIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.Enrollments.WithLabelValues("predefined").Inc()
	return s.GetSession(ctx, userID)
}

// CreateCustomAndEnroll authors a custom challenge and enrolls the user in it atomically.
func (s *EnrollmentService) CreateCustomAndEnroll(ctx context.Context, userID uuid.UUID, req *challenge.CreateCustomChallengeRequest) (*challenge.SessionResponse, error) {
	if err := apperror.ValidateStruct(req); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := createCustomChallengeTx(tx, userID, req)
		if err != nil {
			return err
		}
		c, err := loadChallenge(tx, created.ID)
		if err != nil {
			return err
		}
		_, err = s.enrollTx(tx, userID, c, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.Enrollments.WithLabelValues("custom").Inc()
	return s.GetSession(ctx, userID)
}

func (s *EnrollmentService) enrollTx(tx *gorm.DB, userID uuid.UUID, c *challenge.Challenge, taskIDs []uuid.UUID) (*challenge.UserChallenge, error) {
	var u user.User
	if err := tx.Select("id").First(&u, "id = ?", userID).Error; err != nil {
		return nil, dbError(err, "user not found")
	}

	selected, err := selectTasks(c, taskIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = tx.Model(&challenge.UserChallenge{}).
		Where("user_id = ? AND active = ?", userID, true).
		Updates(map[string]any{"active": false, "ended_at": now}).Error
	if err != nil {
		return nil, dbError(err, "enrollment not found")
	}

	uc := &challenge.UserChallenge{
		UserID:      userID,
		ChallengeID: c.ID,
		StartDate:   s.today(),
		Active:      true,
	}
	if err := uc.SetSelectedTasks(selected); err != nil {
		return nil, apperror.Internal("failed to encode selected tasks", err)
	}
	if err := tx.Create(uc).Error; err != nil {
		return nil, dbError(err, "enrollment not found")
	}

	err = tx.Model(&user.User{}).Where("id = ?", userID).Update("current_challenge_id", c.ID).Error
	if err != nil {
		return nil, dbError(err, "user not found")
	}
	return uc, nil
}

// selectTasks checks taskIDs against the challenge. It returns nil when the
// selection is empty or covers every task.
func selectTasks(c *challenge.Challenge, taskIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}

	members := make(map[uuid.UUID]bool, len(c.Tasks))
	for _, ct := range c.Tasks {
		members[ct.TaskID] = true
	}

	seen := make(map[uuid.UUID]bool, len(taskIDs))
	out := make([]uuid.UUID, 0, len(taskIDs))
	for _, id := range taskIDs {
		if !members[id] {
			return nil, apperror.Field("taskIds", "task does not belong to the challenge")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}

	if len(out) == len(members) {
		return nil, nil
	}
	return out, nil
}

func activeEnrollment(db *gorm.DB, userID uuid.UUID) (*challenge.UserChallenge, error) {
	var uc challenge.UserChallenge
	err := db.Where("user_id = ? AND active = ?", userID, true).
		Order("created_at DESC").
		First(&uc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNoActiveChallenge
	}
	if err != nil {
		return nil, dbError(err, "no active challenge")
	}
	return &uc, nil
}

// currentEnrollment returns the active enrollment with its challenge. An
// enrollment whose window closed before today is ended first and reported as
// no active challenge.
func currentEnrollment(tx *gorm.DB, userID uuid.UUID, today string, now time.Time) (*challenge.UserChallenge, *challenge.Challenge, error) {
	uc, err := activeEnrollment(tx, userID)
	if err != nil {
		return nil, nil, err
	}
	c, err := loadChallenge(tx, uc.ChallengeID)
	if err != nil {
		return nil, nil, err
	}

	dayIndex, err := dayIndexOf(uc.StartDate, today)
	if err != nil {
		return nil, nil, apperror.Internal("corrupt enrollment start date", err)
	}
	if dayIndex <= c.DurationDays {
		return uc, c, nil
	}

	if err := endEnrollment(tx, uc, now); err != nil {
		return nil, nil, err
	}
	return nil, nil, errNoActiveChallenge
}

// endEnrollment deactivates uc and detaches it from the user.
func endEnrollment(tx *gorm.DB, uc *challenge.UserChallenge, now time.Time) error {
	err := tx.Model(&challenge.UserChallenge{}).
		Where("id = ? AND active = ?", uc.ID, true).
		Updates(map[string]any{"active": false, "ended_at": now}).Error
	if err != nil {
		return dbError(err, "enrollment not found")
	}
	err = tx.Model(&user.User{}).
		Where("id = ? AND current_challenge_id = ?", uc.UserID, uc.ChallengeID).
		Update("current_challenge_id", nil).Error
	if err != nil {
		return dbError(err, "user not found")
	}
	uc.Active = false
	uc.EndedAt = &now
	return nil
}

// scheduledDays counts the challenge days with at least one task due.
func scheduledDays(c *challenge.Challenge, uc *challenge.UserChallenge) (int, error) {
	n := 0
	for day := 1; day <= c.DurationDays; day++ {
		due, err := scheduledTasks(c, uc, day)
		if err != nil {
			return 0, err
		}
		if len(due) > 0 {
			n++
		}
	}
	return n, nil
}

// scheduledTasks lists the joins due on dayIndex, in display order, honoring
// the enrollment's task subset.
func scheduledTasks(c *challenge.Challenge, uc *challenge.UserChallenge, dayIndex int) ([]challenge.ChallengeTask, error) {
	selected, err := uc.SelectedTasks()
	if err != nil {
		return nil, apperror.Internal("failed to decode selected tasks", err)
	}
	keep := make(map[uuid.UUID]bool, len(selected))
	for _, id := range selected {
		keep[id] = true
	}

	tasks := append([]challenge.ChallengeTask(nil), c.Tasks...)
	challenge.SortTasks(tasks)

	out := make([]challenge.ChallengeTask, 0, len(tasks))
	for _, ct := range tasks {
		if !ct.AppliesOn(dayIndex) {
			continue
		}
		if len(keep) > 0 && !keep[ct.TaskID] {
			continue
		}
		out = append(out, ct)
	}
	return out, nil
}

// dayIndexOf is the 1-based challenge day of date for an enrollment started on start.
func dayIndexOf(start, date string) (int, error) {
	gap, err := utils.DaysBetween(start, date)
	if err != nil {
		return 0, err
	}
	return gap + 1, nil
}

// GetSession describes the user's active enrollment.
func (s *EnrollmentService) GetSession(ctx context.Context, userID uuid.UUID) (*challenge.SessionResponse, error) {
	var (
		uc *challenge.UserChallenge
		c  *challenge.Challenge
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		uc, c, err = currentEnrollment(tx, userID, s.today(), s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	selected, err := uc.SelectedTasks()
	if err != nil {
		return nil, apperror.Internal("failed to decode selected tasks", err)
	}
	if len(selected) > 0 {
		keep := make(map[uuid.UUID]bool, len(selected))
		for _, id := range selected {
			keep[id] = true
		}
		filtered := c.Tasks[:0]
		for _, ct := range c.Tasks {
			if keep[ct.TaskID] {
				filtered = append(filtered, ct)
			}
		}
		c.Tasks = filtered
	}

	dayIndex, err := dayIndexOf(uc.StartDate, s.today())
	if err != nil {
		return nil, apperror.Internal("corrupt enrollment start date", err)
	}
	daysLeft := c.DurationDays - dayIndex + 1
	if daysLeft < 0 {
		daysLeft = 0
	}

	return &challenge.SessionResponse{
		UserChallenge: uc,
		Challenge:     challenge.NewDetail(c),
		DayIndex:      dayIndex,
		DaysLeft:      daysLeft,
	}, nil
}

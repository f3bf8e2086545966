package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/calendar"
	"growthTrackerAPI/internal/challenge"
	"growthTrackerAPI/internal/feed"
	"growthTrackerAPI/internal/metrics"
	"growthTrackerAPI/internal/streak"
	"growthTrackerAPI/internal/tracking"
	"growthTrackerAPI/internal/user"
	"growthTrackerAPI/utils"
)

// ChallengeBonusDays is shown when a challenge is finished. It is not stored.
const ChallengeBonusDays = 3

type TrackingService struct {
	db       *gorm.DB
	progress *ProgressService
	notifier utils.NotificationCreator
	hub      *feed.Hub
	guard    *streak.Guard
	loc      *time.Location
	now      func() time.Time
}

func NewTrackingService(db *gorm.DB, progress *ProgressService, loc *time.Location) *TrackingService {
	return &TrackingService{
		db:       db,
		progress: progress,
		guard:    streak.NewGuard(),
		loc:      loc,
		now:      time.Now,
	}
}

func (s *TrackingService) SetNotifier(n utils.NotificationCreator) {
	s.notifier = n
}

func (s *TrackingService) SetFeed(hub *feed.Hub) {
	s.hub = hub
}

func (s *TrackingService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *TrackingService) today() string {
	return utils.DayKey(s.now(), s.loc)
}

// materialize makes sure every task due on date exists as a DailyTask and
// returns them in display order with their Task and Dimension loaded.
func materialize(tx *gorm.DB, uc *challenge.UserChallenge, c *challenge.Challenge, date string, dayIndex int) ([]tracking.DailyTask, error) {
	due, err := scheduledTasks(c, uc, dayIndex)
	if err != nil {
		return nil, err
	}

	out := make([]tracking.DailyTask, 0, len(due))
	for _, ct := range due {
		var dt tracking.DailyTask
		err := tx.Where(tracking.DailyTask{UserChallengeID: uc.ID, TaskID: ct.TaskID, Date: date}).
			Attrs(tracking.DailyTask{UserID: uc.UserID, DayIndex: dayIndex}).
			FirstOrCreate(&dt).Error
		if err != nil {
			return nil, dbError(err, "daily task not found")
		}
		dt.Task = ct.Task
		out = append(out, dt)
	}
	return out, nil
}

// completedOn maps each DailyTask id to the dates it was completed on.
func completedOn(db *gorm.DB, dailyTaskIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	out := make(map[uuid.UUID][]string, len(dailyTaskIDs))
	if len(dailyTaskIDs) == 0 {
		return out, nil
	}
	var rows []tracking.CompletedTask
	if err := db.Where("daily_task_id IN ?", dailyTaskIDs).Find(&rows).Error; err != nil {
		return nil, dbError(err, "completions not found")
	}
	for _, r := range rows {
		out[r.DailyTaskID] = append(out[r.DailyTaskID], r.CompletedOn)
	}
	return out, nil
}

func idsOf(tasks []tracking.DailyTask) []uuid.UUID {
	ids := make([]uuid.UUID, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

// GetDailyTasks lists the active enrollment's tasks for date, today when empty.
func (s *TrackingService) GetDailyTasks(ctx context.Context, userID uuid.UUID, date string) (*tracking.DailyTasksResponse, error) {
	if date == "" {
		date = s.today()
	}
	if _, err := utils.ParseDay(date); err != nil {
		return nil, apperror.Field("date", err.Error())
	}

	var resp *tracking.DailyTasksResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		uc, c, err := currentEnrollment(tx, userID, s.today(), s.now())
		if err != nil {
			return err
		}

		dayIndex, err := dayIndexOf(uc.StartDate, date)
		if err != nil {
			return apperror.Internal("corrupt enrollment start date", err)
		}
		if dayIndex < 1 || dayIndex > c.DurationDays {
			return apperror.Field("date", "date is outside the active challenge")
		}

		tasks, err := materialize(tx, uc, c, date, dayIndex)
		if err != nil {
			return err
		}
		done, err := completedOn(tx, idsOf(tasks))
		if err != nil {
			return err
		}

		resp = &tracking.DailyTasksResponse{Date: date, DayIndex: dayIndex, Tasks: make([]tracking.DailyTaskView, 0, len(tasks))}
		for _, dt := range tasks {
			view := tracking.DailyTaskView{
				ID:       dt.ID,
				TaskID:   dt.TaskID,
				Date:     dt.Date,
				DayIndex: dt.DayIndex,
			}
			if dt.Task != nil {
				view.Name = dt.Task.Name
				view.Points = dt.Task.Points
				view.DimensionID = dt.Task.DimensionID
				if dt.Task.Dimension != nil {
					view.Dimension = dt.Task.Dimension.Name
					view.Color = dt.Task.Dimension.Color
				}
			}
			view.Completed = len(done[dt.ID]) > 0
			if view.Completed {
				resp.Completed++
			}
			resp.Tasks = append(resp.Tasks, view)
		}
		resp.Total = len(resp.Tasks)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

type completionOutcome struct {
	resp          *tracking.CompleteTaskResponse
	enrollmentID  uuid.UUID
	challengeName string
	dayIndex      int
	durationDays  int
}

// CompleteTask records a completion of the user's DailyTask for today. Repeating
// it the same day changes nothing. The first completion that finishes the day
// advances the streak once.
func (s *TrackingService) CompleteTask(ctx context.Context, userID, dailyTaskID uuid.UUID) (*tracking.CompleteTaskResponse, error) {
	now := s.now()
	today := utils.DayKey(now, s.loc)
	s.guard.Forget(today)

	var out completionOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.completeTx(tx, userID, dailyTaskID, now, today)
		return err
	})
	if err != nil {
		if out.resp != nil && out.resp.DayCompleted {
			s.guard.Release(out.enrollmentID.String(), today)
		}
		return nil, err
	}

	resp := out.resp
	if resp.AlreadyCompleted {
		return resp, nil
	}

	metrics.TasksCompleted.Inc()
	s.hub.Publish(userID, feed.EventTaskCompleted, resp)

	if s.progress != nil {
		changed, err := s.progress.Refresh(ctx, userID)
		if err != nil {
			log.Printf("CompleteTask: progress refresh failed for %s: %v", userID, err)
		} else if changed {
			s.hub.Publish(userID, feed.EventProgressUpdated, nil)
		}
	}

	if resp.DayCompleted {
		metrics.DaysCompleted.Inc()
		s.hub.Publish(userID, feed.EventDayCompleted, resp)
		if s.notifier != nil {
			go utils.DayCompleted(s.notifier, userID, out.dayIndex, out.durationDays, resp.CurrentStreak)
		}
	}
	if resp.ChallengeCompleted {
		metrics.ChallengesCompleted.Inc()
		s.hub.Publish(userID, feed.EventChallengeCompleted, resp)
		if s.notifier != nil {
			go utils.ChallengeCompleted(s.notifier, userID, out.challengeName, ChallengeBonusDays)
		}
	}
	return resp, nil
}

func (s *TrackingService) completeTx(tx *gorm.DB, userID, dailyTaskID uuid.UUID, now time.Time, today string) (completionOutcome, error) {
	var out completionOutcome

	u, err := lockUser(tx, userID)
	if err != nil {
		return out, err
	}

	var dt tracking.DailyTask
	if err := tx.First(&dt, "id = ? AND user_id = ?", dailyTaskID, userID).Error; err != nil {
		return out, dbError(err, "daily task not found")
	}

	var uc challenge.UserChallenge
	if err := tx.First(&uc, "id = ?", dt.UserChallengeID).Error; err != nil {
		return out, dbError(err, "enrollment not found")
	}
	if !uc.Active {
		return out, apperror.Field("dailyTaskId", "challenge is no longer active")
	}
	if dt.Date != today {
		return out, apperror.Field("dailyTaskId", "tasks can only be completed on their own day")
	}

	c, err := loadChallenge(tx, uc.ChallengeID)
	if err != nil {
		return out, err
	}
	dayIndex, err := dayIndexOf(uc.StartDate, today)
	if err != nil {
		return out, apperror.Internal("corrupt enrollment start date", err)
	}
	if dayIndex < 1 || dayIndex > c.DurationDays {
		return out, apperror.Field("dailyTaskId", "today is outside the challenge")
	}
	out.enrollmentID = uc.ID
	out.challengeName = c.Name
	out.dayIndex = dayIndex
	out.durationDays = c.DurationDays

	resp := &tracking.CompleteTaskResponse{DailyTaskID: dt.ID}
	out.resp = resp

	var existing int64
	err = tx.Model(&tracking.CompletedTask{}).
		Where("daily_task_id = ? AND completed_on = ?", dt.ID, today).
		Count(&existing).Error
	if err != nil {
		return out, dbError(err, "completion not found")
	}
	if existing > 0 {
		resp.AlreadyCompleted = true
		resp.CurrentStreak = u.CurrentStreak
		resp.LongestStreak = u.LongestStreak
		resp.Level = u.Level
		return out, nil
	}

	completion := &tracking.CompletedTask{
		DailyTaskID: dt.ID,
		UserID:      userID,
		CompletedAt: now,
		CompletedOn: today,
	}
	if err := tx.Create(completion).Error; err != nil {
		return out, dbError(err, "completion not found")
	}

	scheduled, err := materialize(tx, &uc, c, today, dayIndex)
	if err != nil {
		return out, err
	}
	done, err := completedOn(tx, idsOf(scheduled))
	if err != nil {
		return out, err
	}

	state := streak.State{Current: u.CurrentStreak, Longest: u.LongestStreak, LastDay: u.LastCompletedDay}
	if streak.IsDayComplete(idsOf(scheduled), done, today) {
		advanced, err := s.recordDay(tx, u, &uc, c, state, dayIndex, now, today, resp)
		if err != nil {
			return out, err
		}
		if advanced {
			state = streak.State{Current: u.CurrentStreak, Longest: u.LongestStreak, LastDay: u.LastCompletedDay}
		}
	}

	resp.CurrentStreak = state.Current
	resp.LongestStreak = state.Longest
	resp.Level = u.Level
	return out, nil
}

// recordDay marks the day complete exactly once and applies its effects to the
// user and the enrollment. It reports false when the day was already recorded.
func (s *TrackingService) recordDay(tx *gorm.DB, u *user.User, uc *challenge.UserChallenge, c *challenge.Challenge, state streak.State, dayIndex int, now time.Time, today string, resp *tracking.CompleteTaskResponse) (bool, error) {
	key := uc.ID.String()
	if !s.guard.Enter(key, today) {
		return false, nil
	}
	entered := true
	defer func() {
		if entered {
			s.guard.Release(key, today)
		}
	}()

	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tracking.DayCompletion{
		UserID:          u.ID,
		UserChallengeID: uc.ID,
		Date:            today,
		DayIndex:        dayIndex,
	})
	if result.Error != nil {
		return false, dbError(result.Error, "day completion not found")
	}
	if result.RowsAffected == 0 {
		entered = false
		return false, nil
	}

	next, advanced := streak.Advance(state, today)
	if !advanced {
		entered = false
		return false, nil
	}

	var totalDays int64
	if err := tx.Model(&tracking.DayCompletion{}).Where("user_id = ?", u.ID).Count(&totalDays).Error; err != nil {
		return false, dbError(err, "day completions not found")
	}

	required, err := scheduledDays(c, uc)
	if err != nil {
		return false, err
	}

	uc.DaysCompleted++
	ucUpdates := map[string]any{"days_completed": uc.DaysCompleted}
	u.CurrentStreak = next.Current
	u.LongestStreak = next.Longest
	u.LastCompletedDay = next.LastDay
	resp.DayCompleted = true

	// days without any task due cannot be completed and do not count
	if uc.DaysCompleted >= required {
		uc.Active = false
		uc.CompletedAt = &now
		ucUpdates["active"] = false
		ucUpdates["completed_at"] = now
		u.ChallengesCompleted++
		u.CurrentChallengeID = nil
		resp.ChallengeCompleted = true
		resp.BonusStreakDays = ChallengeBonusDays
	}
	u.Level = utils.LevelForScore(utils.CalculateGrowthScore(u.CurrentStreak, int(totalDays), u.ChallengesCompleted))

	if err := tx.Model(uc).Updates(ucUpdates).Error; err != nil {
		return false, dbError(err, "enrollment not found")
	}
	err = tx.Model(u).Updates(map[string]any{
		"current_streak":       u.CurrentStreak,
		"longest_streak":       u.LongestStreak,
		"last_completed_day":   u.LastCompletedDay,
		"level":                u.Level,
		"challenges_completed": u.ChallengesCompleted,
		"current_challenge_id": u.CurrentChallengeID,
	}).Error
	if err != nil {
		return false, dbError(err, "user not found")
	}

	entered = false
	return true, nil
}

// latestEnrollment prefers the active enrollment and falls back to the most recent one.
func latestEnrollment(db *gorm.DB, userID uuid.UUID) (*challenge.UserChallenge, error) {
	uc, err := activeEnrollment(db, userID)
	if err == nil {
		return uc, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	var last challenge.UserChallenge
	err = db.Where("user_id = ?", userID).Order("created_at DESC").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "enrollment not found")
	}
	return &last, nil
}

type dayCount struct {
	Date      string
	Completed int
}

// completedPerDay counts same-day completions per date of an enrollment.
func completedPerDay(db *gorm.DB, userChallengeID uuid.UUID, from, to string) (map[string]int, error) {
	var rows []dayCount
	err := db.Table("completed_tasks").
		Select("daily_tasks.date AS date, COUNT(DISTINCT completed_tasks.daily_task_id) AS completed").
		Joins("JOIN daily_tasks ON daily_tasks.id = completed_tasks.daily_task_id").
		Where("daily_tasks.user_challenge_id = ? AND daily_tasks.date >= ? AND daily_tasks.date <= ?", userChallengeID, from, to).
		Where("completed_tasks.completed_on = daily_tasks.date").
		Group("daily_tasks.date").
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "completions not found")
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Date] = r.Completed
	}
	return out, nil
}

func (s *TrackingService) GetCalendar(ctx context.Context, userID uuid.UUID, year, month int) (*calendar.CalendarResponse, error) {
	if month < 1 || month > 12 {
		return nil, apperror.Field("month", "must be between 1 and 12")
	}
	if year < 1970 || year > 9999 {
		return nil, apperror.Field("year", "is invalid")
	}

	db := s.db.WithContext(ctx)
	today := s.today()
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	from, to := first.Format(utils.DayLayout), last.Format(utils.DayLayout)

	resp := &calendar.CalendarResponse{Year: year, Month: month, Days: make([]*calendar.CalendarDay, 0, last.Day())}

	uc, err := latestEnrollment(db, userID)
	if err != nil {
		return nil, err
	}

	var c *challenge.Challenge
	completed := map[string]int{}
	dayDone := map[string]bool{}
	if uc != nil {
		if c, err = loadChallenge(db, uc.ChallengeID); err != nil {
			return nil, err
		}
		if completed, err = completedPerDay(db, uc.ID, from, to); err != nil {
			return nil, err
		}
		var days []string
		err = db.Model(&tracking.DayCompletion{}).
			Where("user_challenge_id = ? AND date >= ? AND date <= ?", uc.ID, from, to).
			Pluck("date", &days).Error
		if err != nil {
			return nil, dbError(err, "day completions not found")
		}
		for _, d := range days {
			dayDone[d] = true
		}
	}

	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		date := d.Format(utils.DayLayout)
		cell := &calendar.CalendarDay{Date: date, IsToday: date == today}

		inWindow := false
		if uc != nil {
			if idx, err := dayIndexOf(uc.StartDate, date); err == nil && idx >= 1 && idx <= c.DurationDays {
				inWindow = true
				cell.DayIndex = idx
				due, err := scheduledTasks(c, uc, idx)
				if err != nil {
					return nil, err
				}
				cell.Scheduled = len(due)
				cell.Completed = completed[date]
			}
		}
		cell.Status = calendar.DayStatus(date, today, inWindow, dayDone[date], cell.Completed)
		resp.Days = append(resp.Days, cell)
	}
	return resp, nil
}

func (s *TrackingService) GetStats(ctx context.Context, userID uuid.UUID) (*tracking.Stats, error) {
	db := s.db.WithContext(ctx)
	today := s.today()

	var u user.User
	if err := db.First(&u, "id = ?", userID).Error; err != nil {
		return nil, dbError(err, "user not found")
	}

	state := streak.State{Current: u.CurrentStreak, Longest: u.LongestStreak, LastDay: u.LastCompletedDay}
	stats := &tracking.Stats{
		CurrentStreak:       streak.Effective(state, today),
		LongestStreak:       u.LongestStreak,
		Level:               u.Level,
		ChallengesCompleted: u.ChallengesCompleted,
	}

	var (
		uc *challenge.UserChallenge
		c  *challenge.Challenge
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		uc, c, err = currentEnrollment(tx, userID, today, s.now())
		return err
	})
	if errors.Is(err, apperror.ErrNotFound) {
		return stats, nil
	}
	if err != nil {
		return nil, err
	}

	required, err := scheduledDays(c, uc)
	if err != nil {
		return nil, err
	}
	stats.DaysCompleted = uc.DaysCompleted
	stats.DurationDays = c.DurationDays
	if required > 0 {
		stats.ProgressPercent = float64(uc.DaysCompleted) / float64(required) * 100
	}

	dayIndex, err := dayIndexOf(uc.StartDate, today)
	if err != nil {
		return nil, apperror.Internal("corrupt enrollment start date", err)
	}
	stats.DayIndex = dayIndex
	if dayIndex < 1 || dayIndex > c.DurationDays {
		return stats, nil
	}

	due, err := scheduledTasks(c, uc, dayIndex)
	if err != nil {
		return nil, err
	}
	counts, err := completedPerDay(db, uc.ID, today, today)
	if err != nil {
		return nil, err
	}
	stats.TodayTotal = len(due)
	stats.TodayCompleted = counts[today]
	stats.TodayComplete = stats.TodayTotal > 0 && stats.TodayCompleted >= stats.TodayTotal
	return stats, nil
}

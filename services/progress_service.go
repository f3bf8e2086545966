package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/dimension"
	"growthTrackerAPI/internal/metrics"
	"growthTrackerAPI/internal/progress"
)

const (
	mostImprovedCount = 3
	defaultRadarSize  = 300
)

type ProgressService struct {
	db *gorm.DB
}

func NewProgressService(db *gorm.DB) *ProgressService {
	return &ProgressService{db: db}
}

type completionRow struct {
	ID          uint
	DailyTaskID uuid.UUID
	TaskName    string
	DimensionID uuid.UUID
	Points      int
}

// Refresh folds completions recorded since the last snapshot into the user's
// dimension values. It reports false when there was nothing new to fold.
func (s *ProgressService) Refresh(ctx context.Context, userID uuid.UUID) (bool, error) {
	start := time.Now()
	changed := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the watermark, baseline and upsert must not interleave with another refresh
		if _, err := lockUser(tx, userID); err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil
			}
			return err
		}

		watermark, err := lastWatermark(tx, userID)
		if err != nil {
			return err
		}

		var rows []completionRow
		err = tx.Table("completed_tasks").
			Select("completed_tasks.id, completed_tasks.daily_task_id, tasks.name AS task_name, tasks.dimension_id, tasks.points").
			Joins("JOIN daily_tasks ON daily_tasks.id = completed_tasks.daily_task_id").
			Joins("JOIN tasks ON tasks.id = daily_tasks.task_id").
			Where("completed_tasks.user_id = ? AND completed_tasks.id > ?", userID, watermark).
			Order("completed_tasks.id ASC").
			Scan(&rows).Error
		if err != nil {
			return dbError(err, "completions not found")
		}
		if len(rows) == 0 {
			return nil
		}

		var dims []*dimension.Dimension
		if err := tx.Order("position ASC, name ASC").Find(&dims).Error; err != nil {
			return dbError(err, "dimensions not found")
		}

		baseline, err := dimensionValues(tx, userID)
		if err != nil {
			return err
		}

		completions := make([]progress.Completion, 0, len(rows))
		for _, r := range rows {
			completions = append(completions, progress.Completion{
				DailyTaskID: r.DailyTaskID,
				TaskName:    r.TaskName,
				DimensionID: r.DimensionID,
				Points:      r.Points,
			})
		}
		result := progress.Aggregate(dims, baseline, completions)

		for _, d := range result.Dimensions {
			value := &progress.DimensionValue{UserID: userID, DimensionID: d.DimensionID, Value: d.Current}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "dimension_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(value).Error
			if err != nil {
				return dbError(err, "dimension value not found")
			}
		}

		raw, err := json.Marshal(result)
		if err != nil {
			return apperror.Internal("failed to encode snapshot", err)
		}
		snapshot := &progress.ProgressSnapshot{
			UserID:     userID,
			Watermark:  rows[len(rows)-1].ID,
			Dimensions: datatypes.JSON(raw),
		}
		if err := tx.Create(snapshot).Error; err != nil {
			return dbError(err, "snapshot not found")
		}

		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	metrics.AggregationDuration.Observe(time.Since(start).Seconds())
	return changed, nil
}

func lastWatermark(db *gorm.DB, userID uuid.UUID) (uint, error) {
	snap, err := latestSnapshot(db, userID)
	if err != nil || snap == nil {
		return 0, err
	}
	return snap.Watermark, nil
}

func latestSnapshot(db *gorm.DB, userID uuid.UUID) (*progress.ProgressSnapshot, error) {
	var snap progress.ProgressSnapshot
	err := db.Where("user_id = ?", userID).Order("watermark DESC").First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "snapshot not found")
	}
	return &snap, nil
}

func dimensionValues(db *gorm.DB, userID uuid.UUID) (map[uuid.UUID]float64, error) {
	var values []progress.DimensionValue
	if err := db.Where("user_id = ?", userID).Find(&values).Error; err != nil {
		return nil, dbError(err, "dimension values not found")
	}
	out := make(map[uuid.UUID]float64, len(values))
	for _, v := range values {
		out[v.DimensionID] = v.Value
	}
	return out, nil
}

// current is the latest aggregation result, or every dimension at its stored
// value when no snapshot exists yet.
func (s *ProgressService) current(ctx context.Context, userID uuid.UUID) (progress.Result, *time.Time, error) {
	if _, err := s.Refresh(ctx, userID); err != nil {
		return progress.Result{}, nil, err
	}

	db := s.db.WithContext(ctx)
	snap, err := latestSnapshot(db, userID)
	if err != nil {
		return progress.Result{}, nil, err
	}
	if snap != nil {
		var res progress.Result
		if err := json.Unmarshal(snap.Dimensions, &res); err != nil {
			return progress.Result{}, nil, apperror.Internal("failed to decode snapshot", err)
		}
		at := snap.CreatedAt
		return res, &at, nil
	}

	var dims []*dimension.Dimension
	if err := db.Order("position ASC, name ASC").Find(&dims).Error; err != nil {
		return progress.Result{}, nil, dbError(err, "dimensions not found")
	}
	baseline, err := dimensionValues(db, userID)
	if err != nil {
		return progress.Result{}, nil, err
	}
	return progress.Aggregate(dims, baseline, nil), nil, nil
}

func (s *ProgressService) GetProgress(ctx context.Context, userID uuid.UUID) (*progress.ProgressResponse, error) {
	res, at, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &progress.ProgressResponse{
		Dimensions:   res.Dimensions,
		MostImproved: progress.MostImproved(res.Dimensions, mostImprovedCount),
		UpdatedAt:    at,
	}, nil
}

func (s *ProgressService) GetRadar(ctx context.Context, userID uuid.UUID, size float64) (*progress.RadarChart, error) {
	if size <= 0 {
		size = defaultRadarSize
	}
	res, _, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	chart := progress.NewRadarChart(res.Dimensions, size)
	return &chart, nil
}

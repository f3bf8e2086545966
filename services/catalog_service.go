package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/cache"
	"growthTrackerAPI/internal/challenge"
	"growthTrackerAPI/internal/dimension"
	"growthTrackerAPI/internal/task"
	"growthTrackerAPI/internal/wizard"
)

type CatalogService struct {
	db    *gorm.DB
	cache *cache.CatalogCache
}

func NewCatalogService(db *gorm.DB, catalogCache *cache.CatalogCache) *CatalogService {
	return &CatalogService{db: db, cache: catalogCache}
}

func (s *CatalogService) ListDimensions(ctx context.Context) ([]*dimension.Dimension, error) {
	var dims []*dimension.Dimension
	if s.cache.Get(ctx, cache.KeyDimensions, &dims) {
		return dims, nil
	}

	if err := s.db.WithContext(ctx).Order("position ASC, name ASC").Find(&dims).Error; err != nil {
		return nil, dbError(err, "dimensions not found")
	}

	s.cache.Set(ctx, cache.KeyDimensions, dims)
	return dims, nil
}

func (s *CatalogService) GetDimension(ctx context.Context, id uuid.UUID) (*dimension.Dimension, error) {
	var dim dimension.Dimension
	if err := s.db.WithContext(ctx).First(&dim, "id = ?", id).Error; err != nil {
		return nil, dbError(err, "dimension not found")
	}
	return &dim, nil
}

// DimensionSet is the lookup custom-task authoring validates against.
func (s *CatalogService) DimensionSet(ctx context.Context) (wizard.DimensionSet, error) {
	dims, err := s.ListDimensions(ctx)
	if err != nil {
		return nil, err
	}
	set := make(wizard.DimensionSet, len(dims))
	for _, d := range dims {
		set[d.ID] = struct{}{}
	}
	return set, nil
}

func preloadTasks(db *gorm.DB) *gorm.DB {
	return db.Preload("Tasks").Preload("Tasks.Task").Preload("Tasks.Task.Dimension")
}

// ListChallenges returns the predefined challenges with their ordered tasks.
func (s *CatalogService) ListChallenges(ctx context.Context) ([]*challenge.ChallengeDetail, error) {
	var details []*challenge.ChallengeDetail
	if s.cache.Get(ctx, cache.KeyChallenges, &details) {
		return details, nil
	}

	var rows []*challenge.Challenge
	err := preloadTasks(s.db.WithContext(ctx)).
		Where("is_custom = ?", false).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, dbError(err, "challenges not found")
	}

	details = make([]*challenge.ChallengeDetail, 0, len(rows))
	for _, c := range rows {
		details = append(details, challenge.NewDetail(c))
	}

	s.cache.Set(ctx, cache.KeyChallenges, details)
	return details, nil
}

func (s *CatalogService) GetChallengeDetail(ctx context.Context, id uuid.UUID) (*challenge.ChallengeDetail, error) {
	c, err := loadChallenge(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return challenge.NewDetail(c), nil
}

func loadChallenge(db *gorm.DB, id uuid.UUID) (*challenge.Challenge, error) {
	var c challenge.Challenge
	if err := preloadTasks(db).First(&c, "id = ?", id).Error; err != nil {
		return nil, dbError(err, "challenge not found")
	}
	return &c, nil
}

// CreateCustomChallenge stores the challenge, its tasks and their joins as one unit.
func (s *CatalogService) CreateCustomChallenge(ctx context.Context, authorID uuid.UUID, req *challenge.CreateCustomChallengeRequest) (*challenge.ChallengeDetail, error) {
	if err := apperror.ValidateStruct(req); err != nil {
		return nil, err
	}

	var created *challenge.Challenge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = createCustomChallengeTx(tx, authorID, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.GetChallengeDetail(ctx, created.ID)
}

func createCustomChallengeTx(tx *gorm.DB, authorID uuid.UUID, req *challenge.CreateCustomChallengeRequest) (*challenge.Challenge, error) {
	dimIDs := make([]uuid.UUID, 0, len(req.Tasks))
	for _, t := range req.Tasks {
		dimIDs = append(dimIDs, t.DimensionID)
	}
	var known []uuid.UUID
	if err := tx.Model(&dimension.Dimension{}).Where("id IN ?", dimIDs).Pluck("id", &known).Error; err != nil {
		return nil, dbError(err, "dimension not found")
	}
	knownSet := make(map[uuid.UUID]bool, len(known))
	for _, id := range known {
		knownSet[id] = true
	}

	author := authorID
	c := &challenge.Challenge{
		Name:         req.Name,
		Description:  req.Description,
		DurationDays: req.DurationDays,
		IsCustom:     true,
		AuthorID:     &author,
	}
	if err := tx.Create(c).Error; err != nil {
		return nil, dbError(err, "challenge not found")
	}

	for i, in := range req.Tasks {
		if !knownSet[in.DimensionID] {
			return nil, apperror.Field(fmt.Sprintf("tasks[%d].dimensionId", i), "unknown dimension")
		}
		if in.Day != nil && *in.Day > req.DurationDays {
			return nil, apperror.Field(fmt.Sprintf("tasks[%d].day", i), "day is outside the challenge duration")
		}

		points := in.Points
		if points == 0 {
			points = wizard.DefaultTaskPoints
		}
		t := &task.Task{
			Name:        in.Name,
			DimensionID: in.DimensionID,
			Points:      points,
			IsCustom:    true,
			AuthorID:    &author,
		}
		if err := tx.Create(t).Error; err != nil {
			return nil, dbError(err, "task not found")
		}

		join := &challenge.ChallengeTask{
			ChallengeID: c.ID,
			TaskID:      t.ID,
			Day:         in.Day,
			Position:    i,
		}
		if err := tx.Create(join).Error; err != nil {
			return nil, dbError(err, "challenge task not found")
		}
	}

	return c, nil
}

func (s *CatalogService) InvalidateCache(ctx context.Context) {
	s.cache.Invalidate(ctx)
}

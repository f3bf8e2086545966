package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"growthTrackerAPI/internal/challenge"
	"growthTrackerAPI/internal/dimension"
	"growthTrackerAPI/internal/task"
)

type seedTask struct {
	name      string
	dimension string
	points    int
}

type seedChallenge struct {
	name         string
	description  string
	durationDays int
	tasks        []seedTask
}

var seedDimensions = []dimension.Dimension{
	{Name: "Knowledge", Description: "Learning, study and reflection", Color: "#3B82F6", Icon: "book", Position: 0},
	{Name: "Character", Description: "Patience, honesty and good conduct", Color: "#F59E0B", Icon: "heart", Position: 1},
	{Name: "Worship", Description: "Prayer, remembrance and devotion", Color: "#10B981", Icon: "moon", Position: 2},
	{Name: "Community", Description: "Family, neighbours and service to others", Color: "#8B5CF6", Icon: "users", Position: 3},
	{Name: "Health", Description: "Rest, movement and nourishment", Color: "#EF4444", Icon: "activity", Position: 4},
}

var seedChallenges = []seedChallenge{
	{
		name:         "Foundations of Faith",
		description:  "Thirty days of steady daily practice across every dimension.",
		durationDays: 30,
		tasks: []seedTask{
			{"Pray on time", "Worship", 10},
			{"Read ten pages", "Knowledge", 8},
			{"Call a relative", "Community", 6},
			{"Walk for twenty minutes", "Health", 5},
			{"Hold back a harsh word", "Character", 7},
		},
	},
	{
		name:         "Refine Your Character",
		description:  "Three weeks focused on conduct and the people around you.",
		durationDays: 21,
		tasks: []seedTask{
			{"Write a gratitude note", "Character", 6},
			{"Forgive someone", "Character", 9},
			{"Help a neighbour", "Community", 8},
			{"Morning remembrance", "Worship", 5},
			{"Learn one new concept", "Knowledge", 5},
		},
	},
	{
		name:         "Body and Soul",
		description:  "Two weeks balancing physical health with devotion.",
		durationDays: 14,
		tasks: []seedTask{
			{"Sleep before midnight", "Health", 6},
			{"Drink eight glasses of water", "Health", 4},
			{"Night prayer", "Worship", 10},
			{"Share a meal", "Community", 5},
			{"Reflect in a journal", "Knowledge", 6},
		},
	},
}

type SeedResult struct {
	Dimensions int `json:"dimensions"`
	Challenges int `json:"challenges"`
	Created    int `json:"created"`
}

type SeedService struct {
	db      *gorm.DB
	catalog *CatalogService
}

func NewSeedService(db *gorm.DB, catalog *CatalogService) *SeedService {
	return &SeedService{db: db, catalog: catalog}
}

func (s *SeedService) SeedDimensions(ctx context.Context) (*SeedResult, error) {
	if err := upsertDimensions(s.db.WithContext(ctx)); err != nil {
		return nil, err
	}
	s.catalog.InvalidateCache(ctx)
	return &SeedResult{Dimensions: len(seedDimensions)}, nil
}

func upsertDimensions(db *gorm.DB) error {
	rows := make([]dimension.Dimension, len(seedDimensions))
	copy(rows, seedDimensions)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "color", "icon", "position", "updated_at"}),
	}).Create(&rows).Error
	return dbError(err, "dimension not found")
}

// SeedChallenges creates the predefined challenges that do not exist yet.
// Each challenge is written with its tasks and joins in one transaction.
func (s *SeedService) SeedChallenges(ctx context.Context) (*SeedResult, error) {
	db := s.db.WithContext(ctx)
	if err := upsertDimensions(db); err != nil {
		return nil, err
	}

	res := &SeedResult{Dimensions: len(seedDimensions), Challenges: len(seedChallenges)}
	for _, sc := range seedChallenges {
		created := false
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			created, err = seedChallengeTx(tx, sc)
			return err
		})
		if err != nil {
			log.Printf("SeedChallenges: %q failed: %v", sc.name, err)
			return nil, err
		}
		if created {
			res.Created++
		}
	}

	s.catalog.InvalidateCache(ctx)
	return res, nil
}

func seedChallengeTx(tx *gorm.DB, sc seedChallenge) (bool, error) {
	var existing challenge.Challenge
	err := tx.Where("name = ? AND is_custom = ?", sc.name, false).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, dbError(err, "challenge not found")
	}

	c := &challenge.Challenge{Name: sc.name, Description: sc.description, DurationDays: sc.durationDays}
	if err := tx.Create(c).Error; err != nil {
		return false, dbError(err, "challenge not found")
	}

	for i, st := range sc.tasks {
		taskID, err := seedTaskTx(tx, st)
		if err != nil {
			return false, err
		}
		join := &challenge.ChallengeTask{ChallengeID: c.ID, TaskID: taskID, Position: i}
		if err := tx.Create(join).Error; err != nil {
			return false, dbError(err, "challenge task not found")
		}
	}
	return true, nil
}

func seedTaskTx(tx *gorm.DB, st seedTask) (uuid.UUID, error) {
	var dim dimension.Dimension
	if err := tx.Where("name = ?", st.dimension).First(&dim).Error; err != nil {
		return uuid.Nil, dbError(err, fmt.Sprintf("dimension %q not found", st.dimension))
	}

	var t task.Task
	err := tx.Where(task.Task{Name: st.name, DimensionID: dim.ID}).
		Where("is_custom = ?", false).
		Attrs(task.Task{Points: st.points}).
		FirstOrCreate(&t).Error
	if err != nil {
		return uuid.Nil, dbError(err, "task not found")
	}
	return t.ID, nil
}

func (s *SeedService) SeedAll(ctx context.Context) (*SeedResult, error) {
	return s.SeedChallenges(ctx)
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"growthTrackerAPI/internal/challenge"
	"growthTrackerAPI/internal/config"
	"growthTrackerAPI/internal/dimension"
	"growthTrackerAPI/internal/notification"
	"growthTrackerAPI/internal/progress"
	"growthTrackerAPI/internal/task"
	"growthTrackerAPI/internal/tracking"
	"growthTrackerAPI/internal/user"
)

// Database owns the pgx pool and the gorm handle built on top of it.
type Database struct {
	DB   *gorm.DB
	Pool *pgxpool.Pool
	sql  *sql.DB
}

// Models is the AutoMigrate list, shared with the sqlite test database.
func Models() []any {
	return []any{
		&user.User{},
		&dimension.Dimension{},
		&task.Task{},
		&challenge.Challenge{},
		&challenge.ChallengeTask{},
		&challenge.UserChallenge{},
		&tracking.DailyTask{},
		&tracking.CompletedTask{},
		&tracking.DayCompletion{},
		&progress.DimensionValue{},
		&progress.ProgressSnapshot{},
		&notification.DeviceToken{},
		&notification.Notification{},
		&notification.Preferences{},
	}
}

// GormConfig is the gorm configuration used in production and tests.
func GormConfig(logSQL bool) *gorm.Config {
	level := logger.Silent
	if logSQL {
		level = logger.Info
	}
	return &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

func Open(ctx context.Context, cfg *config.Config) (*Database, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.DBMaxConns
	poolConfig.MinConns = cfg.DBMinConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), GormConfig(cfg.LogSQL))
	if err != nil {
		sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	log.Println("Successfully connected to the database")
	return &Database{DB: db, Pool: pool, sql: sqlDB}, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (d *Database) Ping(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

func (d *Database) Close() {
	log.Println("Closing database connection pool...")
	if d.sql != nil {
		d.sql.Close()
	}
	d.Pool.Close()
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/gridelo/internal/domain/model"
	"github.com/okian/gridelo/pkg/logger"
	"github.com/okian/gridelo/pkg/metrics"
)

// Supported SQL drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// GormStore keeps ratings in a SQL database.
type GormStore struct {
	db  *gorm.DB
	cfg storeConfig
}

// Open connects to driver/dsn and migrates the schema.
func Open(driver, dsn string, opts ...Option) (*GormStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStorage, driver, err)
	}
	if driver == DriverSQLite {
		// One writer; also keeps an in-memory database alive on a single connection.
		sqldb, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		sqldb.SetMaxOpenConns(1)
	}
	return NewGormStore(gdb, opts...)
}

// NewGormStore wraps an open connection and migrates the schema.
func NewGormStore(gdb *gorm.DB, opts ...Option) (*GormStore, error) {
	cfg := defaultStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := gdb.AutoMigrate(&driverRating{}, &ratingWatermark{}); err != nil {
		return nil, fmt.Errorf("%w: migrate: %w", ErrStorage, err)
	}
	return &GormStore{db: gdb, cfg: cfg}, nil
}

// Load implements Store.
func (s *GormStore) Load(ctx context.Context) (model.Snapshot, error) {
	defer s.observe("load", time.Now())

	var rows []driverRating
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return model.Snapshot{}, s.fail(ctx, "load", err)
	}

	snap := model.NewSnapshot()
	latest := ""
	for _, r := range rows {
		snap.Put(model.CompetitorID(r.DriverName), r.EloRating)
		latest = max(latest, r.LastUpdated)
	}
	if latest != "" {
		t, err := time.Parse(TimeLayout, latest)
		if err != nil {
			return model.Snapshot{}, s.fail(ctx, "load", fmt.Errorf("parse last_updated %q: %w", latest, err))
		}
		snap.UpdatedAt = t
	}

	var wm ratingWatermark
	err := s.db.WithContext(ctx).Where("scope = ?", watermarkScope).Take(&wm).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return model.Snapshot{}, s.fail(ctx, "load", err)
	default:
		snap.Watermark = model.EventKey{Season: wm.Season, Round: wm.Round}
	}
	return snap, nil
}

// Save implements Store.
func (s *GormStore) Save(ctx context.Context, snap model.Snapshot) error {
	defer s.observe("save", time.Now())
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.write(tx, snap)
	}); err != nil {
		return s.fail(ctx, "save", err)
	}
	return nil
}

// Replace implements Store.
func (s *GormStore) Replace(ctx context.Context, snap model.Snapshot) error {
	defer s.observe("replace", time.Now())
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&driverRating{}).Error; err != nil {
			return err
		}
		return s.write(tx, snap)
	}); err != nil {
		return s.fail(ctx, "replace", err)
	}
	return nil
}

func (s *GormStore) write(tx *gorm.DB, snap model.Snapshot) error {
	stamp := s.cfg.now().UTC().Format(TimeLayout)

	ids := orderedIDs(snap)
	if len(ids) > 0 {
		rows := make([]driverRating, len(ids))
		for i, id := range ids {
			rows[i] = driverRating{DriverName: string(id), EloRating: snap.Ratings[id], LastUpdated: stamp}
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "driver_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"elo_rating", "last_updated"}),
		}).CreateInBatches(&rows, s.cfg.batchSize).Error
		if err != nil {
			return err
		}
	}

	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{"season", "round", "saved_at"}),
	}).Create(&ratingWatermark{
		Scope:   watermarkScope,
		Season:  snap.Watermark.Season,
		Round:   snap.Watermark.Round,
		SavedAt: stamp,
	}).Error
}

// LastUpdated implements Store.
func (s *GormStore) LastUpdated(ctx context.Context) (time.Time, bool, error) {
	defer s.observe("last_updated", time.Now())

	var latest sql.NullString
	row := s.db.WithContext(ctx).Model(&driverRating{}).Select("MAX(last_updated)").Row()
	if err := row.Scan(&latest); err != nil {
		return time.Time{}, false, s.fail(ctx, "last_updated", err)
	}
	if !latest.Valid || latest.String == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(TimeLayout, latest.String)
	if err != nil {
		return time.Time{}, false, s.fail(ctx, "last_updated", err)
	}
	return t, true, nil
}

// Ping checks the connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqldb, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if err := sqldb.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrStorage, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqldb, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return sqldb.Close()
}

func (s *GormStore) observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

func (s *GormStore) fail(ctx context.Context, op string, err error) error {
	metrics.RecordStoreError(op)
	s.cfg.log.Error(ctx, "store operation failed", logger.String("op", op), logger.Error(err))
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

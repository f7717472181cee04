package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/VoiceFit/pkg/utils"
)

const DefaultDBFile = "voicefit.sqlite3"
const errDBClientNil = "db client is nil"

// Entry is one key of the local key-value state.
type Entry struct {
	Key       string `gorm:"primaryKey;column:entry_key;type:varchar(128)"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (Entry) TableName() string { return "kv_entries" }

// SQLiteStore keeps the local ledgers in a single-table SQLite database.
type SQLiteStore struct {
	DB *gorm.DB
	db *sql.DB
}

// NewSQLiteStore opens dbPath, or VOICEFIT_DB_PATH / DefaultDBFile when empty.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = os.Getenv("VOICEFIT_DB_PATH")
	}
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	dbPath = utils.ExpandHome(dbPath)

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// One writer keeps read-modify-write of a ledger list consistent.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Entry{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &SQLiteStore{DB: db, db: sqlDB}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Get(key string) (string, bool, error) {
	if s == nil || s.DB == nil {
		return "", false, errors.New(errDBClientNil)
	}

	var e Entry
	err := s.DB.Where("entry_key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return e.Value, true, nil
}

func (s *SQLiteStore) Set(key, value string) error {
	if s == nil || s.DB == nil {
		return errors.New(errDBClientNil)
	}

	e := Entry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(key string) error {
	if s == nil || s.DB == nil {
		return errors.New(errDBClientNil)
	}
	if err := s.DB.Where("entry_key = ?", key).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys in lexical order.
func (s *SQLiteStore) Keys() ([]string, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var keys []string
	if err := s.DB.Model(&Entry{}).Order("entry_key").Pluck("entry_key", &keys).Error; err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	return keys, nil
}

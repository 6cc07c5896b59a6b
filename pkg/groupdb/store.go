package groupdb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gorm.io/driver/sqlite"
	_ "modernc.org/sqlite"

	"github.com/trunkwave/trunkwave/pkg/logger"
)

// Config holds sqlite cache configuration.
type Config struct {
	Path string // path to sqlite database file
}

// Store caches the group/LCN tables in SQLite so a restart doesn't have
// to re-parse the CSV source files.
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

type gormLogAdapter struct {
	log *logger.Logger
}

func (a *gormLogAdapter) Printf(format string, args ...interface{}) {
	if a.log != nil {
		a.log.Info(fmt.Sprintf(format, args...))
	}
}

// Open opens (creating if needed) the sqlite cache at cfg.Path.
func Open(cfg Config, log *logger.Logger) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = "trunkwave-groupdb.db"
	}
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("groupdb: create db directory: %w", err)
		}
	}

	gormLog := gormlogger.New(&gormLogAdapter{log: log}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	dialector := sqlite.Dialector{DriverName: "sqlite", DSN: cfg.Path}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("groupdb: open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("groupdb: get sql handle: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("groupdb: enable WAL: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("groupdb: set busy timeout: %w", err)
	}

	if err := db.AutoMigrate(&GroupEntry{}, &LCNEntry{}); err != nil {
		return nil, fmt.Errorf("groupdb: migrate: %w", err)
	}

	if log != nil {
		log = log.WithComponent("groupdb")
		log.Info("group database cache initialized", logger.String("path", cfg.Path))
	}

	return &Store{db: db, log: log}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ImportGroupsCSV parses path and upserts every row into the cache,
// returning the parsed entries so the caller can build a GroupList
// without a second query round-trip.
func (s *Store) ImportGroupsCSV(path string) ([]GroupEntry, error) {
	entries, err := LoadGroupsCSV(path)
	if err != nil {
		return nil, err
	}
	if err := s.UpsertGroups(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// UpsertGroups writes entries to the cache in a single transaction.
func (s *Store) UpsertGroups(entries []GroupEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		const batchSize = 500
		for i := 0; i < len(entries); i += batchSize {
			end := i + batchSize
			if end > len(entries) {
				end = len(entries)
			}
			batch := entries[i:end]
			if err := tx.Save(&batch).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadGroups returns every cached GroupEntry, ordered by tg.
func (s *Store) LoadGroups() ([]GroupEntry, error) {
	var entries []GroupEntry
	err := s.db.Order("tg").Find(&entries).Error
	return entries, err
}

// ImportLCNCSV parses path and upserts every row into the cache.
func (s *Store) ImportLCNCSV(path string) ([]LCNEntry, error) {
	entries, err := LoadLCNCSV(path)
	if err != nil {
		return nil, err
	}
	if err := s.UpsertLCN(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// UpsertLCN writes LCN entries to the cache in a single transaction.
func (s *Store) UpsertLCN(entries []LCNEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			if err := tx.Save(&e).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadLCN returns every cached LCNEntry, ordered by lcn.
func (s *Store) LoadLCN() ([]LCNEntry, error) {
	var entries []LCNEntry
	err := s.db.Order("lcn").Find(&entries).Error
	return entries, err
}

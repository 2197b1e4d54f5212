// Package storage implements the local embedded datastore on SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dekker/factuurstroom/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the service.Storage interface using SQLite.
type SQLiteStorage struct {
	cacheExpiry  time.Time
	db           *sql.DB
	mappingCache map[string]*model.SupplierMapping
	dbPath       string
	cacheMutex   sync.RWMutex
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:           db,
		dbPath:       dbPath,
		mappingCache: make(map[string]*model.SupplierMapping),
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// getCachedMapping retrieves a supplier mapping from the cache.
func (s *SQLiteStorage) getCachedMapping(supplierName string) *model.SupplierMapping {
	s.cacheMutex.RLock()

	if time.Now().After(s.cacheExpiry) {
		s.cacheMutex.RUnlock()
		s.cacheMutex.Lock()
		defer s.cacheMutex.Unlock()

		if time.Now().After(s.cacheExpiry) {
			s.mappingCache = make(map[string]*model.SupplierMapping)
		}
		return nil
	}

	mapping := s.mappingCache[supplierName]
	s.cacheMutex.RUnlock()
	return mapping
}

// cacheMapping adds a supplier mapping to the cache.
func (s *SQLiteStorage) cacheMapping(mapping *model.SupplierMapping) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	if len(s.mappingCache) == 0 {
		s.cacheExpiry = time.Now().Add(5 * time.Minute)
	}
	s.mappingCache[mapping.SupplierName] = mapping
}

// dropCachedMapping removes a supplier mapping from the cache.
func (s *SQLiteStorage) dropCachedMapping(supplierName string) {
	s.cacheMutex.Lock()
	delete(s.mappingCache, supplierName)
	s.cacheMutex.Unlock()
}

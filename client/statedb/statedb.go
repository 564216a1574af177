package statedb

// Package statedb is the client's local sqlite database: user preference
// flags, the last-known user snapshot (for the offline/dev fallback), and a
// spot metadata snapshot. None of it is secret - secrets live in the
// credential store.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/swellcast/swellcast/client/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StateDB struct {
	Log logs.Log
	DB  *gorm.DB
}

func NewStateDB(logger logs.Log, dbFilename string) (*StateDB, error) {
	os.MkdirAll(filepath.Dir(dbFilename), 0700)
	db, err := dbh.OpenDB(logger, dbh.MakeSqliteConfig(dbFilename), Migrations(logger), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open state database %v: %w", dbFilename, err)
	}
	return &StateDB{
		Log: logger,
		DB:  db,
	}, nil
}

// SetVariable stores a preference flag (theme, feature toggles).
func (s *StateDB) SetVariable(key VariableKey, value string) error {
	return s.DB.Clauses(clause.OnConflict{UpdateAll: true}).Create(&Variable{Key: string(key), Value: value}).Error
}

// GetVariable returns the value, or "" if the variable is not set.
func (s *StateDB) GetVariable(key VariableKey) (string, error) {
	v := Variable{}
	err := s.DB.Where("key = ?", string(key)).Find(&v).Error
	if err != nil {
		return "", err
	}
	return v.Value, nil
}

// SaveLastUser replaces the stored user snapshot wholesale. Delete-then-insert
// so zero-valued fields in the new snapshot overwrite the old row's columns.
func (s *StateDB) SaveLastUser(user *model.User) error {
	rec := lastUserFromModel(user)
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM last_user").Error; err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
}

// GetLastUser returns the last-known user, or nil if none is stored.
func (s *StateDB) GetLastUser() (*model.User, error) {
	rec := LastUser{}
	err := s.DB.First(&rec, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// UpsertSpots refreshes the local spot metadata snapshot for a region.
func (s *StateDB) UpsertSpots(spots []model.Spot) error {
	now := dbh.MakeIntTime(time.Now())
	for _, spot := range spots {
		rec := Spot{
			ID:           spot.ID,
			Region:       spot.Region,
			Name:         spot.Name,
			Latitude:     spot.Latitude,
			Longitude:    spot.Longitude,
			ThumbnailKey: spot.ThumbnailKey,
			UpdatedAt:    now,
		}
		if err := s.DB.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
			return err
		}
	}
	return nil
}

// SpotsByRegion returns the locally known spots for a region.
func (s *StateDB) SpotsByRegion(region string) ([]model.Spot, error) {
	recs := []Spot{}
	if err := s.DB.Where("region = ?", region).Order("name").Find(&recs).Error; err != nil {
		return nil, err
	}
	spots := make([]model.Spot, 0, len(recs))
	for _, r := range recs {
		spots = append(spots, model.Spot{
			ID:           r.ID,
			Region:       r.Region,
			Name:         r.Name,
			Latitude:     r.Latitude,
			Longitude:    r.Longitude,
			ThumbnailKey: r.ThumbnailKey,
		})
	}
	return spots, nil
}

// ResetDerived wipes everything the logout path must clear: preferences,
// the user snapshot, and the spot snapshot. Idempotent.
func (s *StateDB) ResetDerived() error {
	var firstErr error
	for _, table := range []string{"variable", "last_user", "spot"} {
		if err := s.DB.Exec("DELETE FROM " + table).Error; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *StateDB) Close() error {
	db, err := s.DB.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

package session

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/drivemaster/backoffice/internal/domain/identity"
)

const (
	slotToken = "token"
	slotUser  = "user"
)

// credentialRecord is one durable key/value slot.
type credentialRecord struct {
	Slot  string `gorm:"primaryKey;size:32"`
	Value []byte
}

func (credentialRecord) TableName() string {
	return "credentials"
}

// SQLiteCredentialStore persists the session in a local sqlite file, the
// durable-storage analogue of the browser's localStorage slots.
type SQLiteCredentialStore struct {
	db *gorm.DB
}

// NewSQLiteCredentialStore opens (or creates) the sqlite file at path and
// migrates the credentials table.
func NewSQLiteCredentialStore(path string) (*SQLiteCredentialStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	if err := db.AutoMigrate(&credentialRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session store: %w", err)
	}
	return &SQLiteCredentialStore{db: db}, nil
}

// NewSQLiteCredentialStoreWithDB wraps an existing gorm connection. Useful
// for tests running against an in-memory database.
func NewSQLiteCredentialStoreWithDB(db *gorm.DB) (*SQLiteCredentialStore, error) {
	if err := db.AutoMigrate(&credentialRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session store: %w", err)
	}
	return &SQLiteCredentialStore{db: db}, nil
}

func (s *SQLiteCredentialStore) Load(ctx context.Context) (identity.Session, error) {
	var session identity.Session

	var rows []credentialRecord
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return session, fmt.Errorf("failed to load credentials: %w", err)
	}
	for _, row := range rows {
		switch row.Slot {
		case slotToken:
			session.Token = string(row.Value)
		case slotUser:
			session.User = row.Value
		}
	}
	return session, nil
}

func (s *SQLiteCredentialStore) Save(ctx context.Context, session identity.Session) error {
	rows := []credentialRecord{
		{Slot: slotToken, Value: []byte(session.Token)},
	}
	if session.User != nil {
		rows = append(rows, credentialRecord{Slot: slotUser, Value: session.User})
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

func (s *SQLiteCredentialStore) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).Where("slot IN ?", []string{slotToken, slotUser}).
		Delete(&credentialRecord{}).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

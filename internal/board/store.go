package board

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// StoreConfig describes the dependencies for the room record store.
type StoreConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Store persists room registrations. It is the system of record for a room's
// name, privacy flag and password hash; everything else about a room is
// ephemeral.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore constructs the room record store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("board: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Store{db: cfg.Database, now: clock}, nil
}

// Create persists a new registration. ErrRoomExists is returned when the id
// is already taken.
func (s *Store) Create(record RoomRecord) (RoomRecord, error) {
	if record.RoomID == "" {
		return RoomRecord{}, ErrRoomIDRequired
	}
	var existing RoomRecord
	err := s.db.Where("room_id = ?", record.RoomID).Take(&existing).Error
	if err == nil {
		return RoomRecord{}, ErrRoomExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return RoomRecord{}, fmt.Errorf("board: lookup room record: %w", err)
	}
	if record.CreatedAtSeconds == 0 {
		record.CreatedAtSeconds = s.now().Unix()
	}
	if err := s.db.Create(&record).Error; err != nil {
		return RoomRecord{}, fmt.Errorf("board: create room record: %w", err)
	}
	return record, nil
}

// Find returns the registration for the id, or ErrRoomNotFound.
func (s *Store) Find(roomID string) (RoomRecord, error) {
	if roomID == "" {
		return RoomRecord{}, ErrRoomIDRequired
	}
	var record RoomRecord
	err := s.db.Where("room_id = ?", roomID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RoomRecord{}, ErrRoomNotFound
	}
	if err != nil {
		return RoomRecord{}, fmt.Errorf("board: find room record: %w", err)
	}
	return record, nil
}

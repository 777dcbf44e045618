package board

// RoomRecord is the durable registration of a room's identity and access
// policy, written by the pre-registration endpoint and consulted on first
// join. Live session state (canvas, history, participants) never touches the
// database.
type RoomRecord struct {
	RoomID           string `gorm:"column:room_id;primaryKey;size:64;not null"`
	Name             string `gorm:"column:name;size:190;not null"`
	IsPrivate        bool   `gorm:"column:is_private;not null"`
	PasswordHash     string `gorm:"column:password_hash;size:190"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
}

// TableName pins the table used for room registrations.
func (RoomRecord) TableName() string {
	return "rooms"
}

// Policy derives the in-memory room policy from the stored record.
func (record RoomRecord) Policy() Policy {
	return Policy{
		Name:         record.Name,
		IsPrivate:    record.IsPrivate,
		PasswordHash: record.PasswordHash,
	}
}

package domain

import "time"

// KVEntry is one string value with an absolute expiry, backing the SQL
// implementation of the ephemeral key-value store. The primary key on Key is
// what makes set-if-absent atomic.
type KVEntry struct {
	Key       string    `gorm:"column:kv_key;type:varchar(255);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (KVEntry) TableName() string { return "kv_entries" }

// KVMember is one member of a named set.
type KVMember struct {
	SetName   string    `gorm:"type:varchar(255);primaryKey"`
	Member    string    `gorm:"column:member_key;type:varchar(255);primaryKey"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (KVMember) TableName() string { return "kv_members" }

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/jinzhu/gorm"
)

// FieldChange is one tracked field that differs between two revisions
type FieldChange struct {
	Field string      `json:"field"`
	Old   interface{} `json:"old"`
	New   interface{} `json:"new"`
}

// ChangeSet is a list of field changes that can be stored in the database
type ChangeSet []FieldChange

// Value converts the change set to a JSON string for storage
func (c ChangeSet) Value() (driver.Value, error) {
	if len(c) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan converts the database value back to a change set
func (c *ChangeSet) Scan(value interface{}) error {
	if value == nil {
		*c = ChangeSet{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return errors.New("unsupported type for ChangeSet")
	}
}

// BlockRevision records what changed on a block and who changed it
type BlockRevision struct {
	gorm.Model
	OwnerID   string `gorm:"index;not null"`
	BlockID   uint   `gorm:"index"`
	PlanID    uint
	Version   int
	ChangedBy string
	Changes   ChangeSet `gorm:"type:text"`
}

package models

import (
	"time"
)

// BaseModel 基础模型
type BaseModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllTables 需要迁移的全部模型
func AllTables() []interface{} {
	return []interface{}{
		&Family{},
		&FamilyLand{},
		&FamilyBank{},
		&Member{},
		&NPCMember{},
		&TaxDue{},
		&TaxLedger{},
		&NPCTrait{},
	}
}

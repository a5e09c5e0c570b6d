package models

// NPCTrait NPC角色特征，首次访问时懒创建
type NPCTrait struct {
	BaseModel
	NPCID           int64   `gorm:"column:npc_id;uniqueIndex;not null" json:"npc_id"`
	Role            NPCRole `gorm:"size:20;not null" json:"role"`
	FamilyID        *uint   `gorm:"index" json:"family_id,omitempty"`
	TaxAmount       int     `gorm:"not null;default:0" json:"tax_amount"`
	TaxIntervalMs   int64   `gorm:"not null;default:0" json:"tax_interval_ms"`
	NextCollectAtMs int64   `gorm:"not null;default:0" json:"next_collect_at_ms"`
	FarmIntervalMs  int64   `gorm:"not null;default:0" json:"farm_interval_ms"`
	NextFarmAtMs    int64   `gorm:"not null;default:0" json:"next_farm_at_ms"`
}

// TableName 指定表名
func (NPCTrait) TableName() string {
	return "npc_traits"
}

// HasFamily 是否已分配家族
func (t *NPCTrait) HasFamily() bool {
	return t != nil && t.FamilyID != nil
}

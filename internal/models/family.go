package models

import "math"

// Family 家族表
type Family struct {
	BaseModel
	Name    string `gorm:"size:64;index;not null" json:"name"`  // 名称唯一由服务层预检
	OwnerID string `gorm:"size:64;not null" json:"owner_id"` // 创建者身份键
}

// TableName 指定表名
func (Family) TableName() string {
	return "families"
}

// FamilyLand 家族领地表，每个家族至多一块
type FamilyLand struct {
	BaseModel
	FamilyID uint   `gorm:"uniqueIndex;not null" json:"family_id"`
	World    string `gorm:"size:64;not null" json:"world"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Z        int    `json:"z"`
	Radius   int    `gorm:"not null" json:"radius"`
	Enabled  bool   `gorm:"not null" json:"enabled"`
}

// TableName 指定表名
func (FamilyLand) TableName() string {
	return "family_lands"
}

// Contains 坐标所在方块是否落在领地内（只比较水平面）
func (l *FamilyLand) Contains(world string, x, z float64) bool {
	if l == nil || l.World != world {
		return false
	}
	dx := int64(math.Floor(x)) - int64(l.X)
	dz := int64(math.Floor(z)) - int64(l.Z)
	r := int64(l.Radius)
	return dx*dx+dz*dz <= r*r
}

// FamilyBank 家族金库
type FamilyBank struct {
	BaseModel
	FamilyID uint `gorm:"uniqueIndex;not null" json:"family_id"`
	Balance  int  `gorm:"not null;default:0" json:"balance"`
}

// TableName 指定表名
func (FamilyBank) TableName() string {
	return "family_banks"
}

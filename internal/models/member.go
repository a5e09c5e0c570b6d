package models

// SerfState 农奴缴税状态
type SerfState struct {
	MissCount          int   `gorm:"not null;default:0" json:"miss_count"`
	DeliverPoints      int   `gorm:"not null;default:0" json:"deliver_points"`
	NextDueAtMs        int64 `gorm:"not null;default:0" json:"next_due_at_ms"`
	TaxDiscountUntilMs int64 `gorm:"not null;default:0" json:"tax_discount_until_ms"`
	LastWarnAtMs       int64 `gorm:"not null;default:0" json:"last_warn_at_ms"`
}

// DiscountActive 减税是否生效
func (s SerfState) DiscountActive(nowMs int64) bool {
	return s.TaxDiscountUntilMs > nowMs
}

// Member 玩家成员表，SubjectID为玩家UUID
type Member struct {
	BaseModel
	SubjectID string `gorm:"size:64;uniqueIndex;not null" json:"subject_id"`
	FamilyID  *uint  `gorm:"index" json:"family_id,omitempty"`
	Rank      Rank   `gorm:"size:20;not null" json:"rank"`
	Job       Job    `gorm:"size:20;not null" json:"job"`
	Serf      bool   `gorm:"not null;default:false" json:"serf"`
	SerfState `gorm:"embedded"`
}

// TableName 指定表名
func (Member) TableName() string {
	return "members"
}

// InFamily 是否属于指定家族
func (m *Member) InFamily(familyID uint) bool {
	return m != nil && m.FamilyID != nil && *m.FamilyID == familyID
}

// NPCMember NPC成员表，与members结构相同，SubjectID为NPC编号
type NPCMember struct {
	Member
}

// TableName 指定表名
func (NPCMember) TableName() string {
	return "npc_members"
}

// MemberTable 身份对应的成员表
func MemberTable(s Subject) string {
	if s.IsNPC() {
		return NPCMember{}.TableName()
	}
	return Member{}.TableName()
}

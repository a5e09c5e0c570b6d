package models

// TaxDue 欠税表，Key为身份键（玩家UUID或npc:<id>）
type TaxDue struct {
	BaseModel
	Key    string `gorm:"column:subject_key;size:64;uniqueIndex;not null" json:"key"`
	Amount int    `gorm:"not null;default:0" json:"amount"`
}

// TableName 指定表名
func (TaxDue) TableName() string {
	return "tax_dues"
}

// TaxLedger 金库流水，只追加
type TaxLedger struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	FamilyID      uint   `gorm:"index;not null" json:"family_id"`
	SourceAgentID int64  `gorm:"index" json:"source_agent_id"` // 征税NPC编号，人工操作为0
	Amount        int    `gorm:"not null" json:"amount"`
	Reason        string `gorm:"size:64;not null" json:"reason"`
	CreatedAtMs   int64  `gorm:"index;not null" json:"created_at_ms"`
}

// TableName 指定表名
func (TaxLedger) TableName() string {
	return "tax_ledgers"
}

// 流水原因
const (
	LedgerReasonAutoTax  = "AUTO_TAX(EMERALD)"
	LedgerReasonWithdraw = "WITHDRAW"
	LedgerReasonDeposit  = "DEPOSIT"
)

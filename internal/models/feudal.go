package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Rank 爵位，从低到高共7级
type Rank string

// 爵位定义
const (
	RankPeasant   Rank = "PEASANT"
	RankKnight    Rank = "KNIGHT"
	RankBaron     Rank = "BARON"
	RankCount     Rank = "COUNT"
	RankDuke      Rank = "DUKE"
	RankGrandDuke Rank = "GRAND_DUKE"
	RankKing      Rank = "KING"
)

// rankOrder 爵位全序，下标即等级
var rankOrder = []Rank{
	RankPeasant,
	RankKnight,
	RankBaron,
	RankCount,
	RankDuke,
	RankGrandDuke,
	RankKing,
}

// ParseRank 解析爵位（不区分大小写）
func ParseRank(s string) (Rank, error) {
	r := Rank(strings.ToUpper(strings.TrimSpace(s)))
	if r.Level() < 0 {
		return "", fmt.Errorf("未知爵位: %s", s)
	}
	return r, nil
}

// Level 返回爵位等级，未知爵位返回-1
func (r Rank) Level() int {
	for i, v := range rankOrder {
		if v == r {
			return i
		}
	}
	return -1
}

// Valid 是否为合法爵位
func (r Rank) Valid() bool {
	return r.Level() >= 0
}

// Promote 晋升一级，KING时保持不变并返回false
func (r Rank) Promote() (Rank, bool) {
	lv := r.Level()
	if lv < 0 {
		return RankPeasant, r != RankPeasant
	}
	if lv == len(rankOrder)-1 {
		return r, false
	}
	return rankOrder[lv+1], true
}

// Demote 降级一级，PEASANT时保持不变并返回false
func (r Rank) Demote() (Rank, bool) {
	lv := r.Level()
	if lv < 0 {
		return RankPeasant, r != RankPeasant
	}
	if lv == 0 {
		return r, false
	}
	return rankOrder[lv-1], true
}

// String 实现Stringer
func (r Rank) String() string {
	return string(r)
}

// Job 职业
type Job string

// 职业定义
const (
	JobNone         Job = "NONE"
	JobFarmer       Job = "FARMER"
	JobMiner        Job = "MINER"
	JobGuard        Job = "GUARD"
	JobMerchant     Job = "MERCHANT"
	JobBuilder      Job = "BUILDER"
	JobTaxCollector Job = "TAX_COLLECTOR"
)

// AllJobs 全部职业
var AllJobs = []Job{JobNone, JobFarmer, JobMiner, JobGuard, JobMerchant, JobBuilder, JobTaxCollector}

// ParseJob 解析职业（不区分大小写）
func ParseJob(s string) (Job, error) {
	j := Job(strings.ToUpper(strings.TrimSpace(s)))
	if !j.Valid() {
		return "", fmt.Errorf("未知职业: %s", s)
	}
	return j, nil
}

// Valid 是否为合法职业
func (j Job) Valid() bool {
	switch j {
	case JobNone, JobFarmer, JobMiner, JobGuard, JobMerchant, JobBuilder, JobTaxCollector:
		return true
	}
	return false
}

// AllowedForSerf 农奴是否可以从事该职业
func (j Job) AllowedForSerf() bool {
	switch j {
	case JobNone, JobFarmer, JobMiner, JobGuard:
		return true
	case JobMerchant, JobBuilder, JobTaxCollector:
		return false
	}
	return false
}

// String 实现Stringer
func (j Job) String() string {
	return string(j)
}

// NPCRole NPC角色
type NPCRole string

// NPC角色定义
const (
	RoleNone         NPCRole = "NONE"
	RoleTaxCollector NPCRole = "TAX_COLLECTOR"
	RoleFarmer       NPCRole = "FARMER"
	RoleGuard        NPCRole = "GUARD"
)

// ParseNPCRole 解析NPC角色
func ParseNPCRole(s string) (NPCRole, error) {
	r := NPCRole(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleNone, RoleTaxCollector, RoleFarmer, RoleGuard:
		return r, nil
	}
	return "", fmt.Errorf("未知角色: %s", s)
}

// SubjectKind 身份类型
type SubjectKind string

// 身份类型定义
const (
	SubjectPlayer SubjectKind = "player"
	SubjectNPC    SubjectKind = "npc"
)

// Subject 成员身份：玩家UUID或NPC编号
type Subject struct {
	Kind SubjectKind `json:"kind"`
	ID   string      `json:"id"`
}

// PlayerSubject 构造玩家身份
func PlayerSubject(id string) Subject {
	return Subject{Kind: SubjectPlayer, ID: id}
}

// NPCSubject 构造NPC身份
func NPCSubject(id int64) Subject {
	return Subject{Kind: SubjectNPC, ID: strconv.FormatInt(id, 10)}
}

// ParseSubject 解析身份，NPC形如 npc:12，其余按玩家UUID处理
func ParseSubject(s string) (Subject, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "npc:"); ok {
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id < 0 {
			return Subject{}, fmt.Errorf("无效的NPC编号: %s", rest)
		}
		return NPCSubject(id), nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return Subject{}, fmt.Errorf("无效的玩家UUID: %s", s)
	}
	return PlayerSubject(strings.ToLower(s)), nil
}

// IsNPC 是否为NPC
func (s Subject) IsNPC() bool {
	return s.Kind == SubjectNPC
}

// NPCID 返回NPC编号
func (s Subject) NPCID() int64 {
	id, _ := strconv.ParseInt(s.ID, 10, 64)
	return id
}

// Key 账本与欠税使用的键
func (s Subject) Key() string {
	if s.IsNPC() {
		return "npc:" + s.ID
	}
	return s.ID
}

// String 实现Stringer
func (s Subject) String() string {
	return s.Key()
}

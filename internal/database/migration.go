package database

import (
	"fmt"
	"time"

	"github.com/wfunc/feudal-economy/internal/logger"
	"github.com/wfunc/feudal-economy/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// extraIndexes GORM标签之外的联合索引
var extraIndexes = []struct {
	name string
	sql  string
}{
	{"idx_tax_ledgers_family_time", "CREATE INDEX IF NOT EXISTS idx_tax_ledgers_family_time ON tax_ledgers(family_id, created_at_ms)"},
	{"idx_members_family_serf", "CREATE INDEX IF NOT EXISTS idx_members_family_serf ON members(family_id, serf)"},
	{"idx_npc_members_family_serf", "CREATE INDEX IF NOT EXISTS idx_npc_members_family_serf ON npc_members(family_id, serf)"},
	{"idx_npc_traits_role", "CREATE INDEX IF NOT EXISTS idx_npc_traits_role ON npc_traits(role)"},
}

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(driver string) error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	dbPath := sqliteFilePath(driver, dsn)
	if dbPath != "" {
		CleanupStaleLocks(dbPath)
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile)
	}

	logger.Info("开始数据库迁移...")

	for _, model := range models.AllTables() {
		start := time.Now()
		err := DB.AutoMigrate(model)
		logger.LogDatabaseOperation("migrate", tableOf(model), time.Since(start), err)
		if err != nil {
			return err
		}
	}

	for _, idx := range extraIndexes {
		if err := DB.Exec(idx.sql).Error; err != nil {
			logger.Warn("创建索引失败", zap.String("index", idx.name), zap.Error(err))
		}
	}

	logger.Info("数据库迁移完成")
	return nil
}

// tableOf 模型对应的表名，解析失败时退回类型名
func tableOf(model interface{}) string {
	stmt := &gorm.Statement{DB: DB}
	if err := stmt.Parse(model); err != nil || stmt.Schema == nil {
		return fmt.Sprintf("%T", model)
	}
	return stmt.Schema.Table
}

// DropAllTables 删除全部表，仅用于测试与重置
func DropAllTables() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}
	tables := models.AllTables()
	for i := len(tables) - 1; i >= 0; i-- {
		if err := DB.Migrator().DropTable(tables[i]); err != nil {
			return err
		}
	}
	return nil
}

// Package testutil 提供测试用的内存数据库。
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// NewDB 打开一个内存 SQLite 并迁移给定模型。
// SQLite 不支持 SELECT ... FOR UPDATE，这里把 FOR 子句渲染为空，
// 让带悲观锁的仓储方法可以在测试里直接运行。
func NewDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// 内存库随连接销毁，固定单连接
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db.ClauseBuilders["FOR"] = func(c clause.Clause, b clause.Builder) {}

	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

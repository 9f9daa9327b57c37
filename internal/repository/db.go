package repository

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/user/folio/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB 初始化数据库连接
// 先用 lib/pq 建立底层连接并配置连接池，再交给 gorm 管理
func InitDB(databaseURL string) (*gorm.DB, error) {
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("gorm 初始化失败: %w", err)
	}

	return db, nil
}

// Migrate 建表并补充全文检索列
// text_tsv 与 GIN 索引是 PostgreSQL 专有能力，其它方言（测试用 sqlite）跳过
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Play{},
		&model.Scene{},
		&model.Character{},
		&model.Line{},
		&model.Annotation{},
	); err != nil {
		return fmt.Errorf("建表失败: %w", err)
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}

	if err := db.Exec("ALTER TABLE lines ADD COLUMN IF NOT EXISTS text_tsv tsvector").Error; err != nil {
		return fmt.Errorf("创建 text_tsv 列失败: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_lines_text_tsv ON lines USING GIN(text_tsv)").Error; err != nil {
		return fmt.Errorf("创建全文索引失败: %w", err)
	}

	return nil
}

// Repositories 仓库集合
type Repositories struct {
	DB         *gorm.DB
	Play       *PlayRepository
	Scene      *SceneRepository
	Character  *CharacterRepository
	Line       *LineRepository
	Annotation *AnnotationRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:         db,
		Play:       NewPlayRepository(db),
		Scene:      NewSceneRepository(db),
		Character:  NewCharacterRepository(db),
		Line:       NewLineRepository(db),
		Annotation: NewAnnotationRepository(db),
	}
}

// TruncateCorpus 按外键依赖的逆序清空全部语料表
func (r *Repositories) TruncateCorpus() error {
	for _, table := range []string{"annotations", "lines", "scenes", "characters", "plays"} {
		if err := r.DB.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("清空 %s 失败: %w", table, err)
		}
	}
	return nil
}

// clampLimit 结果数上限：封顶 100，负值按 0 处理
// 显式传 0 就是 0 条；缺省时的 50 由 handler 层补齐
func clampLimit(limit int) int {
	if limit < 0 {
		return 0
	}
	if limit > 100 {
		return 100
	}
	return limit
}

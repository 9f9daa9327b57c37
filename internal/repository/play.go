package repository

import (
	"errors"

	"github.com/user/folio/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlayRepository struct {
	db *gorm.DB
}

func NewPlayRepository(db *gorm.DB) *PlayRepository {
	return &PlayRepository{db: db}
}

// Create 插入剧目，回填自增 ID
func (r *PlayRepository) Create(play *model.Play) error {
	return r.db.Create(play).Error
}

// Count 剧目总数（加载器用它判断库是否已加载过）
func (r *PlayRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Play{}).Count(&count).Error
	return count, err
}

// Genres 全部剧目的去重体裁列表
func (r *PlayRepository) Genres() ([]string, error) {
	var genres []string
	err := r.db.Model(&model.Play{}).Distinct().Pluck("genre", &genres).Error
	return genres, err
}

// ListIDs 全部剧目的 (标题, ID) 列表
func (r *PlayRepository) ListIDs() ([]model.PlayIDItem, error) {
	var items []model.PlayIDItem
	err := r.db.Model(&model.Play{}).
		Select("title AS play_title, id AS play_id").
		Scan(&items).Error
	return items, err
}

// FindByID 根据 ID 查找剧目
func (r *PlayRepository) FindByID(id int) (*model.Play, error) {
	var play model.Play
	err := r.db.First(&play, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &play, nil
}

// FindByIDWithTree 根据 ID 查找剧目并预加载场次、台词和角色
func (r *PlayRepository) FindByIDWithTree(id int) (*model.Play, error) {
	var play model.Play
	err := r.db.Preload("Scenes.Lines").Preload("Characters").First(&play, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &play, nil
}

// MergeMetadata 合并剧目元数据：同名键覆盖、新键追加，不删除已有键
// 读-合并-写在同一事务内完成，PostgreSQL 下对行加 FOR UPDATE 锁，
// 并发合并不会互相覆盖对方写入的键。剧目不存在时返回 (nil, nil)
func (r *PlayRepository) MergeMetadata(id int, patch map[string]interface{}) (*model.Play, error) {
	var found bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var play model.Play
		err := q.First(&play, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true

		merged := MergeMetadata(play.Metadata, patch)
		return tx.Model(&play).Update("metadata", datatypes.JSONMap(merged)).Error
	})
	if err != nil || !found {
		return nil, err
	}

	return r.FindByIDWithTree(id)
}

// MergeMetadata 纯合并：在 base 之上覆盖/追加 patch 的键
func MergeMetadata(base, patch map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// MetadataFilter 元数据检索条件，各键独立可选，多键取交集
type MetadataFilter struct {
	YearPublished string
	FirstProduced string
	Period        string
	Source        string
}

// BuildMetadataConditions 把过滤条件翻译成 JSONB 查询片段
// 字符串类键（period、source）做大小写无关子串匹配，其余做精确匹配
func BuildMetadataConditions(f MetadataFilter) ([]string, []interface{}) {
	var clauses []string
	var args []interface{}

	if f.YearPublished != "" {
		clauses = append(clauses, "metadata->>'year_published' = ?")
		args = append(args, f.YearPublished)
	}
	if f.FirstProduced != "" {
		clauses = append(clauses, "metadata->>'first_produced' = ?")
		args = append(args, f.FirstProduced)
	}
	if f.Period != "" {
		clauses = append(clauses, "metadata->>'period' ILIKE ?")
		args = append(args, "%"+f.Period+"%")
	}
	if f.Source != "" {
		clauses = append(clauses, "metadata->>'source' ILIKE ?")
		args = append(args, "%"+f.Source+"%")
	}

	return clauses, args
}

// SearchByMetadata 按元数据过滤剧目，结果预加载完整的场次/台词树
// JSONB 的 ->> 取值与 ILIKE 仅在 PostgreSQL 方言下可用
func (r *PlayRepository) SearchByMetadata(f MetadataFilter) ([]model.Play, error) {
	q := r.db.Preload("Scenes.Lines")

	clauses, args := BuildMetadataConditions(f)
	for i, clause := range clauses {
		q = q.Where(clause, args[i])
	}

	var plays []model.Play
	err := q.Find(&plays).Error
	return plays, err
}

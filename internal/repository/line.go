package repository

import (
	"strings"

	"github.com/user/folio/internal/model"
	"gorm.io/gorm"
)

// 全文检索固定返回上限
const fullTextLimit = 50

type LineRepository struct {
	db *gorm.DB
}

func NewLineRepository(db *gorm.DB) *LineRepository {
	return &LineRepository{db: db}
}

// BulkInsert 批量插入台词（加载器一次性写入全部待插入行）
func (r *LineRepository) BulkInsert(lines []model.Line) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.CreateInBatches(lines, 500).Error
}

// BackfillSearchVector 从 text 重算全表的 text_tsv
// 检索向量只能由这里派生，不接受外部写入；非 PostgreSQL 方言没有该列，直接返回
func (r *LineRepository) BackfillSearchVector() error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	return r.db.Exec("UPDATE lines SET text_tsv = to_tsvector('english', text)").Error
}

// withRelated 预加载批注、场次（含剧目）与角色，避免逐行补查
func (r *LineRepository) withRelated() *gorm.DB {
	return r.db.
		Preload("Annotations").
		Preload("Scene.Play").
		Preload("Character")
}

// normalizeAnnotations 把预加载后仍为 nil 的批注切片换成空切片
// 检索结果里 annotations 键始终存在，无批注时序列化为 []
func normalizeAnnotations(lines []model.Line) {
	for i := range lines {
		if lines[i].Annotations == nil {
			lines[i].Annotations = []model.Annotation{}
		}
	}
}

// SearchByKeyword 台词关键词检索：大小写无关子串匹配，可选按体裁过滤
func (r *LineRepository) SearchByKeyword(query, genre string, limit int) ([]model.Line, error) {
	q := r.withRelated()

	if genre != "" {
		q = q.Select("lines.*").
			Joins("JOIN scenes ON scenes.id = lines.scene_id").
			Joins("JOIN plays ON plays.id = scenes.play_id").
			Where("plays.genre = ?", genre)
	}

	var lines []model.Line
	err := q.Where("LOWER(lines.text) LIKE ?", "%"+strings.ToLower(query)+"%").
		Limit(clampLimit(limit)).
		Find(&lines).Error
	normalizeAnnotations(lines)
	return lines, err
}

// SearchFullText 基于 text_tsv 的全文检索，固定上限 50 条
// 查询串语法是否合法交给 PostgreSQL 判定，这里不做二次校验
func (r *LineRepository) SearchFullText(query string) ([]model.Line, error) {
	var lines []model.Line
	err := r.withRelated().
		Where("text_tsv @@ to_tsquery('english', ?)", query).
		Limit(fullTextLimit).
		Find(&lines).Error
	normalizeAnnotations(lines)
	return lines, err
}

// ListIDs 台词标识列表，不保证顺序
func (r *LineRepository) ListIDs(limit int) ([]model.LineIDItem, error) {
	var items []model.LineIDItem
	err := r.db.Table("lines").
		Select("plays.title AS play_title, scenes.scene_number AS scene_number, lines.text AS line, lines.id AS line_id").
		Joins("JOIN scenes ON scenes.id = lines.scene_id").
		Joins("JOIN plays ON plays.id = scenes.play_id").
		Limit(clampLimit(limit)).
		Scan(&items).Error
	return items, err
}

// Exists 台词是否存在
func (r *LineRepository) Exists(id int) (bool, error) {
	var count int64
	err := r.db.Model(&model.Line{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

package repository

import (
	"github.com/user/folio/internal/model"
	"gorm.io/gorm"
)

type AnnotationRepository struct {
	db *gorm.DB
}

func NewAnnotationRepository(db *gorm.DB) *AnnotationRepository {
	return &AnnotationRepository{db: db}
}

// Create 给台词追加批注，创建时间由 gorm 在插入时生成
func (r *AnnotationRepository) Create(lineID int, note string, author *string) (*model.Annotation, error) {
	annotation := &model.Annotation{
		LineID: lineID,
		Note:   note,
		Author: author,
	}
	if err := r.db.Create(annotation).Error; err != nil {
		return nil, err
	}
	return annotation, nil
}

// ListByLine 某台词的全部批注
func (r *AnnotationRepository) ListByLine(lineID int) ([]model.Annotation, error) {
	var annotations []model.Annotation
	err := r.db.Where("line_id = ?", lineID).Find(&annotations).Error
	return annotations, err
}

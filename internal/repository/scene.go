package repository

import (
	"github.com/user/folio/internal/model"
	"gorm.io/gorm"
)

type SceneRepository struct {
	db *gorm.DB
}

func NewSceneRepository(db *gorm.DB) *SceneRepository {
	return &SceneRepository{db: db}
}

// Create 插入场次，回填自增 ID
func (r *SceneRepository) Create(scene *model.Scene) error {
	return r.db.Create(scene).Error
}

// ListByPlay 某剧目的全部场次
func (r *SceneRepository) ListByPlay(playID int) ([]model.Scene, error) {
	var scenes []model.Scene
	err := r.db.Where("play_id = ?", playID).Find(&scenes).Error
	return scenes, err
}

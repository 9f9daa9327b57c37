package repository

import (
	"github.com/user/folio/internal/model"
	"gorm.io/gorm"
)

type CharacterRepository struct {
	db *gorm.DB
}

func NewCharacterRepository(db *gorm.DB) *CharacterRepository {
	return &CharacterRepository{db: db}
}

// Create 插入角色，回填自增 ID
func (r *CharacterRepository) Create(character *model.Character) error {
	return r.db.Create(character).Error
}

// ListByPlay 某剧目的全部角色
func (r *CharacterRepository) ListByPlay(playID int) ([]model.Character, error) {
	var characters []model.Character
	err := r.db.Where("play_id = ?", playID).Find(&characters).Error
	return characters, err
}

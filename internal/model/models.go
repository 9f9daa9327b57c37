package model

import (
	"time"

	"gorm.io/datatypes"
)

// Play 剧目模型
// Metadata 是开放式键值映射（year_published、first_produced、period、source 等），
// 只增不删：合并更新时同名键覆盖、新键追加
type Play struct {
	ID       int               `json:"id" gorm:"primaryKey"`
	Title    string            `json:"title" gorm:"not null;uniqueIndex"`
	Genre    string            `json:"genre" gorm:"index"`
	Metadata datatypes.JSONMap `json:"metadata" gorm:"type:jsonb;not null;default:'{}'"`

	Scenes     []Scene     `json:"scenes,omitempty"`
	Characters []Character `json:"characters,omitempty"`
}

// Scene 场次模型，剧目内以 (act, scene_number) 唯一标识
type Scene struct {
	ID          int    `json:"id" gorm:"primaryKey"`
	PlayID      int    `json:"play_id" gorm:"not null;uniqueIndex:idx_scenes_play_act_number"`
	Act         int    `json:"act" gorm:"not null;uniqueIndex:idx_scenes_play_act_number"`
	SceneNumber int    `json:"scene_number" gorm:"not null;uniqueIndex:idx_scenes_play_act_number"`
	Description string `json:"description" gorm:"type:text"`

	Play  *Play  `json:"play,omitempty"`
	Lines []Line `json:"lines,omitempty"`
}

// Character 角色模型，剧目内按名字唯一
type Character struct {
	ID          int    `json:"id" gorm:"primaryKey"`
	PlayID      int    `json:"play_id" gorm:"not null;uniqueIndex:idx_characters_play_name"`
	Name        string `json:"name" gorm:"not null;uniqueIndex:idx_characters_play_name"`
	Description string `json:"description" gorm:"type:text"`

	Play  *Play  `json:"play,omitempty"`
	Lines []Line `json:"lines,omitempty"`
}

// Line 台词模型
// text_tsv 列（tsvector）不在结构体中，由加载器回填、仅随 text 派生，
// 建表与索引见 repository.Migrate
type Line struct {
	ID          int    `json:"id" gorm:"primaryKey"`
	SceneID     int    `json:"scene_id" gorm:"not null;index"`
	CharacterID int    `json:"character_id" gorm:"not null;index"`
	Text        string `json:"text" gorm:"type:text"`

	Scene       *Scene       `json:"scene,omitempty"`
	Character   *Character   `json:"character,omitempty"`
	Annotations []Annotation `json:"annotations"`
}

// Annotation 台词批注，创建时间由插入时生成且不可变更
type Annotation struct {
	ID        int       `json:"id" gorm:"primaryKey"`
	LineID    int       `json:"line_id" gorm:"not null;index"`
	Note      string    `json:"note" gorm:"type:text;not null"`
	Author    *string   `json:"author,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// PlayIDItem 剧目标识列表项
type PlayIDItem struct {
	PlayTitle string `json:"play_title"`
	PlayID    int    `json:"play_id"`
}

// LineIDItem 台词标识列表项
type LineIDItem struct {
	PlayTitle   string `json:"play_title"`
	SceneNumber int    `json:"scene_number"`
	Line        string `json:"line"`
	LineID      int    `json:"line_id"`
}

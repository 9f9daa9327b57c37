package service

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/user/folio/internal/model"
	"github.com/user/folio/internal/repository"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ErrAlreadyLoaded 库中已有剧目且未指定重置
var ErrAlreadyLoaded = errors.New("语料库已加载，重新加载请使用 -reset")

// Record 扁平源记录，缺失字段在读取阶段已置为空串
type Record struct {
	Play         string
	Player       string
	ActSceneLine string
	PlayerLine   string
}

// DropStats 数据清洗丢弃计数，按类别统计。丢弃不是错误，只输出日志
type DropStats struct {
	BlankPlayer int // 角色名为空
	BadLocator  int // 定位串为空或解析失败
	MissingKey  int // 角色或场次键未命中（单趟加载下不应出现）
	BlankText   int // 台词文本为空
}

// 体裁分类用的固定标题集，匹配不上的一律归为 history
var tragedyTitles = map[string]bool{
	"hamlet":           true,
	"macbeth":          true,
	"othello":          true,
	"king lear":        true,
	"romeo and juliet": true,
}

var comedyTitles = map[string]bool{
	"a midsummer night’s dream": true,
	"twelfth night":             true,
	"much ado about nothing":    true,
}

// ClassifyGenre 按标题查表判定体裁，大小写无关
func ClassifyGenre(title string) string {
	t := strings.ToLower(title)
	switch {
	case tragedyTitles[t]:
		return "tragedy"
	case comedyTitles[t]:
		return "comedy"
	default:
		return "history"
	}
}

// ParseLocator 解析 "act.scene.line" 定位串
// 要求至少两段且前两段为整数，否则 ok 为 false
func ParseLocator(s string) (act, sceneNumber int, ok bool) {
	if s == "" {
		return 0, 0, false
	}
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return 0, 0, false
	}
	act, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	sceneNumber, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return act, sceneNumber, true
}

// CharacterKey 角色的自然复合键（剧目标题 + 去空白后的名字）
type CharacterKey struct {
	Title string
	Name  string
}

// SceneKey 场次的自然复合键
type SceneKey struct {
	Title       string
	Act         int
	SceneNumber int
}

// ExtractPlays 第一步：去重标题并分类体裁
func ExtractPlays(records []Record) []model.Play {
	seen := map[string]bool{}
	var plays []model.Play
	for _, rec := range records {
		if seen[rec.Play] {
			continue
		}
		seen[rec.Play] = true
		plays = append(plays, model.Play{
			Title:    rec.Play,
			Genre:    ClassifyGenre(rec.Play),
			Metadata: map[string]interface{}{},
		})
	}
	return plays
}

// ExtractCharacterKeys 第二步：去重 (剧目, 角色名)，名字去空白后为空的记录不产出角色
func ExtractCharacterKeys(records []Record) []CharacterKey {
	seen := map[CharacterKey]bool{}
	var keys []CharacterKey
	for _, rec := range records {
		name := strings.TrimSpace(rec.Player)
		if name == "" {
			continue
		}
		key := CharacterKey{Title: rec.Play, Name: name}
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

// ExtractSceneKeys 第三步：解析定位串并按 (剧目, act, scene_number) 去重
// 解析失败的记录不产出场次（进而也不产出台词）
func ExtractSceneKeys(records []Record) []SceneKey {
	seen := map[SceneKey]bool{}
	var keys []SceneKey
	for _, rec := range records {
		act, sceneNumber, ok := ParseLocator(rec.ActSceneLine)
		if !ok {
			continue
		}
		key := SceneKey{Title: rec.Play, Act: act, SceneNumber: sceneNumber}
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

// ExtractLines 第四步：逐条重推各级键，任一环节不满足即丢弃该条并计数
// 台词不去重，重复的相同台词全部保留
func ExtractLines(records []Record, charIDs map[CharacterKey]int, sceneIDs map[SceneKey]int, stats *DropStats) []model.Line {
	var lines []model.Line
	for _, rec := range records {
		name := strings.TrimSpace(rec.Player)
		if name == "" {
			stats.BlankPlayer++
			continue
		}
		charID, ok := charIDs[CharacterKey{Title: rec.Play, Name: name}]
		if !ok {
			stats.MissingKey++
			continue
		}

		act, sceneNumber, ok := ParseLocator(rec.ActSceneLine)
		if !ok {
			stats.BadLocator++
			continue
		}
		sceneID, ok := sceneIDs[SceneKey{Title: rec.Play, Act: act, SceneNumber: sceneNumber}]
		if !ok {
			stats.MissingKey++
			continue
		}

		text := strings.TrimSpace(rec.PlayerLine)
		if text == "" {
			stats.BlankText++
			continue
		}

		lines = append(lines, model.Line{
			SceneID:     sceneID,
			CharacterID: charID,
			Text:        text,
		})
	}
	return lines
}

// Loader 一次性批量加载器：扁平源记录 -> 层级语料库
type Loader struct {
	db *gorm.DB
}

func NewLoader(db *gorm.DB) *Loader {
	return &Loader{db: db}
}

// Run 执行整趟加载，全程单事务
// 库中已有剧目时拒绝执行，除非 reset 为 true（先清空再加载）
func (l *Loader) Run(records []Record, reset bool) (*DropStats, error) {
	stats := &DropStats{}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)

		count, err := repos.Play.Count()
		if err != nil {
			return fmt.Errorf("检查已有数据失败: %w", err)
		}
		if count > 0 {
			if !reset {
				return ErrAlreadyLoaded
			}
			if err := repos.TruncateCorpus(); err != nil {
				return err
			}
		}

		// 第一步：剧目
		plays := ExtractPlays(records)
		playIDs := make(map[string]int, len(plays))
		for i := range plays {
			if err := repos.Play.Create(&plays[i]); err != nil {
				return fmt.Errorf("写入剧目 %q 失败: %w", plays[i].Title, err)
			}
			playIDs[plays[i].Title] = plays[i].ID
		}

		// 第二、三步的提取只依赖第一步产出的键，可以并行
		var charKeys []CharacterKey
		var sceneKeys []SceneKey
		g := new(errgroup.Group)
		g.Go(func() error {
			charKeys = ExtractCharacterKeys(records)
			return nil
		})
		g.Go(func() error {
			sceneKeys = ExtractSceneKeys(records)
			return nil
		})
		if err := g.Wait(); err != nil {
			return err
		}

		charIDs := make(map[CharacterKey]int, len(charKeys))
		for _, key := range charKeys {
			character := model.Character{PlayID: playIDs[key.Title], Name: key.Name}
			if err := repos.Character.Create(&character); err != nil {
				return fmt.Errorf("写入角色 %q 失败: %w", key.Name, err)
			}
			charIDs[key] = character.ID
		}

		sceneIDs := make(map[SceneKey]int, len(sceneKeys))
		for _, key := range sceneKeys {
			scene := model.Scene{PlayID: playIDs[key.Title], Act: key.Act, SceneNumber: key.SceneNumber}
			if err := repos.Scene.Create(&scene); err != nil {
				return fmt.Errorf("写入场次 %d.%d 失败: %w", key.Act, key.SceneNumber, err)
			}
			sceneIDs[key] = scene.ID
		}

		// 第四步：台词，单次批量写入
		lines := ExtractLines(records, charIDs, sceneIDs, stats)
		if err := repos.Line.BulkInsert(lines); err != nil {
			return fmt.Errorf("批量写入台词失败: %w", err)
		}

		// 第五步：回填检索向量
		if err := repos.Line.BackfillSearchVector(); err != nil {
			return fmt.Errorf("回填检索向量失败: %w", err)
		}

		log.Printf("[Loader] 写入完成：剧目 %d，角色 %d，场次 %d，台词 %d",
			len(plays), len(charKeys), len(sceneKeys), len(lines))
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Loader] 丢弃统计：角色名为空 %d，定位串无效 %d，键未命中 %d，文本为空 %d",
		stats.BlankPlayer, stats.BadLocator, stats.MissingKey, stats.BlankText)
	return stats, nil
}

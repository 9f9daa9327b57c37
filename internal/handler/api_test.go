package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/folio/internal/config"
	"github.com/user/folio/internal/handler"
	"github.com/user/folio/internal/model"
	"github.com/user/folio/internal/repository"
	"github.com/user/folio/internal/router"
	"github.com/user/folio/internal/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupServer 起一个基于 sqlite 的完整路由，并种入最小语料
func setupServer(t *testing.T) (*gin.Engine, *repository.Repositories) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitCache()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "folio_test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	repos := repository.NewRepositories(db)

	hamlet := model.Play{Title: "Hamlet", Genre: "tragedy", Metadata: map[string]interface{}{}}
	require.NoError(t, repos.Play.Create(&hamlet))
	henry := model.Play{Title: "Henry IV", Genre: "history", Metadata: map[string]interface{}{}}
	require.NoError(t, repos.Play.Create(&henry))

	scene := model.Scene{PlayID: hamlet.ID, Act: 1, SceneNumber: 2}
	require.NoError(t, repos.Scene.Create(&scene))
	character := model.Character{PlayID: hamlet.ID, Name: "HAMLET"}
	require.NoError(t, repos.Character.Create(&character))
	require.NoError(t, repos.Line.BulkInsert([]model.Line{
		{SceneID: scene.ID, CharacterID: character.ID, Text: "To be, or not to be"},
		{SceneID: scene.ID, CharacterID: character.ID, Text: "that is the question"},
	}))

	r := gin.New()
	h := handler.NewHandler(repos, &config.Config{Env: "test"})
	router.RegisterRoutes(r, h)
	return r, repos
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := setupServer(t)
	w := doRequest(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPlayGenres(t *testing.T) {
	r, _ := setupServer(t)
	w := doRequest(t, r, http.MethodGet, "/plays/genres", "")
	require.Equal(t, http.StatusOK, w.Code)

	var genres []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &genres))
	assert.ElementsMatch(t, []string{"tragedy", "history"}, genres)

	// 第二次命中缓存，结果一致
	w = doRequest(t, r, http.MethodGet, "/plays/genres", "")
	require.Equal(t, http.StatusOK, w.Code)
	var cached []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cached))
	assert.ElementsMatch(t, genres, cached)
}

func TestPlayIDs(t *testing.T) {
	r, _ := setupServer(t)
	w := doRequest(t, r, http.MethodGet, "/plays/ids", "")
	require.Equal(t, http.StatusOK, w.Code)

	var items []model.PlayIDItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.NotZero(t, items[0].PlayID)
	assert.NotEmpty(t, items[0].PlayTitle)
}

func TestSearchLines(t *testing.T) {
	r, _ := setupServer(t)

	// 缺 query 报 400
	w := doRequest(t, r, http.MethodGet, "/search", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// limit 非整数报 400
	w = doRequest(t, r, http.MethodGet, "/search?query=be&limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 命中：大小写无关，关联实体齐备
	w = doRequest(t, r, http.MethodGet, "/search?query=TO+BE", "")
	require.Equal(t, http.StatusOK, w.Code)
	var lines []model.Line
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lines))
	require.Len(t, lines, 1)
	assert.Equal(t, "To be, or not to be", lines[0].Text)
	require.NotNil(t, lines[0].Scene)
	require.NotNil(t, lines[0].Scene.Play)
	assert.Equal(t, "Hamlet", lines[0].Scene.Play.Title)
	require.NotNil(t, lines[0].Character)
	assert.Equal(t, "HAMLET", lines[0].Character.Name)
	// 无批注时 annotations 键仍在，值为空数组
	assert.Contains(t, w.Body.String(), `"annotations":[]`)

	// 体裁过滤掉不匹配的剧目
	w = doRequest(t, r, http.MethodGet, "/search?query=be&genre=history", "")
	require.Equal(t, http.StatusOK, w.Code)
	lines = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lines))
	assert.Empty(t, lines)

	// 显式 limit=0 返回空列表，不落到缺省值
	w = doRequest(t, r, http.MethodGet, "/search?query=be&limit=0", "")
	require.Equal(t, http.StatusOK, w.Code)
	lines = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lines))
	assert.Empty(t, lines)
}

func TestSearchLinesFullTextBadRequest(t *testing.T) {
	r, _ := setupServer(t)

	// 缺 query 报 400（谓词本身只在 PostgreSQL 下可用，这里只走参数校验分支）
	w := doRequest(t, r, http.MethodGet, "/search_tsv", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "缺少 query 参数")
}

func TestLineIDs(t *testing.T) {
	r, _ := setupServer(t)
	w := doRequest(t, r, http.MethodGet, "/lines/ids", "")
	require.Equal(t, http.StatusOK, w.Code)

	var items []model.LineIDItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "Hamlet", items[0].PlayTitle)
	assert.Equal(t, 2, items[0].SceneNumber)

	// 显式 limit=0 返回空列表
	w = doRequest(t, r, http.MethodGet, "/lines/ids?limit=0", "")
	require.Equal(t, http.StatusOK, w.Code)
	items = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	assert.Empty(t, items)
}

func TestPlayScenesAndCharacters(t *testing.T) {
	r, repos := setupServer(t)
	items, err := repos.Play.ListIDs()
	require.NoError(t, err)

	var hamletID int
	for _, item := range items {
		if item.PlayTitle == "Hamlet" {
			hamletID = item.PlayID
		}
	}
	require.NotZero(t, hamletID)

	w := doRequest(t, r, http.MethodGet, "/plays/"+strconv.Itoa(hamletID)+"/scenes", "")
	require.Equal(t, http.StatusOK, w.Code)
	var scenes []model.Scene
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scenes))
	require.Len(t, scenes, 1)
	assert.Equal(t, 1, scenes[0].Act)
	assert.Equal(t, 2, scenes[0].SceneNumber)

	w = doRequest(t, r, http.MethodGet, "/plays/"+strconv.Itoa(hamletID)+"/characters", "")
	require.Equal(t, http.StatusOK, w.Code)
	var characters []model.Character
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &characters))
	require.Len(t, characters, 1)
	assert.Equal(t, "HAMLET", characters[0].Name)

	// play_id 非整数报 400
	w = doRequest(t, r, http.MethodGet, "/plays/abc/scenes", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnnotationEndpoints(t *testing.T) {
	r, repos := setupServer(t)

	var line model.Line
	require.NoError(t, repos.DB.First(&line).Error)
	lineID := strconv.Itoa(line.ID)

	// 台词不存在和暂无批注都是 404，但消息不同
	w := doRequest(t, r, http.MethodGet, "/lines/99999/annotations", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "台词不存在")

	w = doRequest(t, r, http.MethodGet, "/lines/"+lineID+"/annotations", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "暂无批注")

	// note 缺失报 400
	w = doRequest(t, r, http.MethodPost, "/lines/"+lineID+"/annotations", `{"author":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 不存在的台词不能批注
	w = doRequest(t, r, http.MethodPost, "/lines/99999/annotations", `{"note":"n"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 正常创建，返回生成的 ID 和创建时间
	w = doRequest(t, r, http.MethodPost, "/lines/"+lineID+"/annotations", `{"note":"famous soliloquy","author":"scholar"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var created model.Annotation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, "famous soliloquy", created.Note)
	require.NotNil(t, created.Author)
	assert.Equal(t, "scholar", *created.Author)
	assert.False(t, created.CreatedAt.IsZero())

	// 创建后可以查到
	w = doRequest(t, r, http.MethodGet, "/lines/"+lineID+"/annotations", "")
	require.Equal(t, http.StatusOK, w.Code)
	var annotations []model.Annotation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &annotations))
	require.Len(t, annotations, 1)
}

func TestMergeMetadataEndpoint(t *testing.T) {
	r, repos := setupServer(t)
	items, err := repos.Play.ListIDs()
	require.NoError(t, err)
	playID := strconv.Itoa(items[0].PlayID)

	// 未知剧目报 404
	w := doRequest(t, r, http.MethodPost, "/play/metadata/?play_id=99999", `{"period":"Elizabethan"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// play_id 缺失报 400
	w = doRequest(t, r, http.MethodPost, "/play/metadata/", `{"period":"Elizabethan"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 首次合并
	w = doRequest(t, r, http.MethodPost, "/play/metadata/?play_id="+playID, `{"period":"Elizabethan"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var play model.Play
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &play))
	assert.Equal(t, "Elizabethan", play.Metadata["period"])

	// 再合并另一个键，两个键都在
	w = doRequest(t, r, http.MethodPost, "/play/metadata/?play_id="+playID, `{"year_published":1603}`)
	require.Equal(t, http.StatusOK, w.Code)
	play = model.Play{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &play))
	assert.Equal(t, "Elizabethan", play.Metadata["period"])
	assert.EqualValues(t, 1603, play.Metadata["year_published"])
}

func TestMetadataSchema(t *testing.T) {
	r, _ := setupServer(t)
	w := doRequest(t, r, http.MethodGet, "/metadata/schema", "")
	require.Equal(t, http.StatusOK, w.Code)

	var schema map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schema))
	assert.Equal(t, "int", schema["year_published"])
	assert.Equal(t, "str", schema["period"])
}

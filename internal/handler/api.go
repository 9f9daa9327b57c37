package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/user/folio/internal/repository"
	"github.com/user/folio/internal/utils"
)

// ==================== 剧目 ====================

// PlayGenres 全部剧目的去重体裁列表
func (h *Handler) PlayGenres(c *gin.Context) {
	if cached, ok := utils.CacheGet("play_genres"); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	genres, err := h.Repos.Play.Genres()
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	utils.CacheSet("play_genres", genres, 5*time.Minute)
	c.JSON(http.StatusOK, genres)
}

// PlayIDs 全部剧目的 (标题, ID) 列表
func (h *Handler) PlayIDs(c *gin.Context) {
	if cached, ok := utils.CacheGet("play_ids"); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	items, err := h.Repos.Play.ListIDs()
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	utils.CacheSet("play_ids", items, 5*time.Minute)
	c.JSON(http.StatusOK, items)
}

// PlayScenes 某剧目的全部场次
func (h *Handler) PlayScenes(c *gin.Context) {
	playID, err := strconv.Atoi(c.Param("play_id"))
	if err != nil {
		utils.BadRequest(c, "play_id 必须是整数")
		return
	}

	scenes, err := h.Repos.Scene.ListByPlay(playID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	c.JSON(http.StatusOK, scenes)
}

// PlayCharacters 某剧目的全部角色
func (h *Handler) PlayCharacters(c *gin.Context) {
	playID, err := strconv.Atoi(c.Param("play_id"))
	if err != nil {
		utils.BadRequest(c, "play_id 必须是整数")
		return
	}

	characters, err := h.Repos.Character.ListByPlay(playID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	c.JSON(http.StatusOK, characters)
}

// ==================== 台词检索 ====================

// SearchLines 关键词检索台词，可选体裁过滤
func (h *Handler) SearchLines(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		utils.BadRequest(c, "缺少 query 参数")
		return
	}
	genre := c.Query("genre")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		utils.BadRequest(c, "limit 必须是整数")
		return
	}

	lines, err := h.SearchService.SearchLines(query, genre, limit)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	c.JSON(http.StatusOK, lines)
}

// SearchLinesFullText 全文检索台词，固定上限 50 条
func (h *Handler) SearchLinesFullText(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		utils.BadRequest(c, "缺少 query 参数")
		return
	}

	lines, err := h.SearchService.SearchLinesFullText(query)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	c.JSON(http.StatusOK, lines)
}

// LineIDs 台词标识列表，不保证顺序
func (h *Handler) LineIDs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		utils.BadRequest(c, "limit 必须是整数")
		return
	}

	items, err := h.Repos.Line.ListIDs(limit)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	c.JSON(http.StatusOK, items)
}

// ==================== 批注 ====================

// LineAnnotations 某台词的批注列表
// 台词不存在与台词无批注是两种不同的 404，响应消息区分开
func (h *Handler) LineAnnotations(c *gin.Context) {
	lineID, err := strconv.Atoi(c.Param("line_id"))
	if err != nil {
		utils.BadRequest(c, "line_id 必须是整数")
		return
	}

	exists, err := h.Repos.Line.Exists(lineID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if !exists {
		utils.NotFound(c, "台词不存在")
		return
	}

	annotations, err := h.Repos.Annotation.ListByLine(lineID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if len(annotations) == 0 {
		utils.NotFound(c, "该台词暂无批注")
		return
	}
	c.JSON(http.StatusOK, annotations)
}

// AnnotationRequest 新建批注请求体
type AnnotationRequest struct {
	Note   string  `json:"note" binding:"required"`
	Author *string `json:"author"`
}

// AddAnnotation 给台词追加批注
func (h *Handler) AddAnnotation(c *gin.Context) {
	lineID, err := strconv.Atoi(c.Param("line_id"))
	if err != nil {
		utils.BadRequest(c, "line_id 必须是整数")
		return
	}

	var req AnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			utils.BadRequest(c, "缺少必填字段: "+verrs[0].Field())
			return
		}
		utils.BadRequest(c, "请求体格式错误")
		return
	}

	exists, err := h.Repos.Line.Exists(lineID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if !exists {
		utils.NotFound(c, "台词不存在")
		return
	}

	annotation, err := h.Repos.Annotation.Create(lineID, req.Note, req.Author)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	c.JSON(http.StatusOK, annotation)
}

// ==================== 元数据 ====================

// MetadataSchema 元数据约定键及类型
func (h *Handler) MetadataSchema(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"year_published": "int",
		"first_produced": "int",
		"period":         "str",
		"source":         "str",
	})
}

// SearchMetadata 按元数据键过滤剧目，多个条件取交集
func (h *Handler) SearchMetadata(c *gin.Context) {
	filter := repository.MetadataFilter{
		YearPublished: c.Query("year_published"),
		FirstProduced: c.Query("first_produced"),
		Period:        c.Query("period"),
		Source:        c.Query("source"),
	}

	plays, err := h.Repos.Play.SearchByMetadata(filter)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	c.JSON(http.StatusOK, plays)
}

// MergeMetadata 合并剧目元数据：同名键覆盖、新键追加，从不删除
func (h *Handler) MergeMetadata(c *gin.Context) {
	playID, err := strconv.Atoi(c.Query("play_id"))
	if err != nil {
		utils.BadRequest(c, "play_id 必须是整数")
		return
	}

	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.BadRequest(c, "请求体格式错误")
		return
	}

	play, err := h.Repos.Play.MergeMetadata(playID, patch)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if play == nil {
		utils.NotFound(c, "剧目不存在")
		return
	}
	c.JSON(http.StatusOK, play)
}

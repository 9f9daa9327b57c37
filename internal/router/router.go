package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/folio/internal/handler"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ==================== 剧目 ====================
	r.GET("/plays/genres", h.PlayGenres)
	r.GET("/plays/ids", h.PlayIDs)
	r.GET("/plays/:play_id/scenes", h.PlayScenes)
	r.GET("/plays/:play_id/characters", h.PlayCharacters)

	// ==================== 台词检索 ====================
	r.GET("/search", h.SearchLines)
	r.GET("/search_tsv", h.SearchLinesFullText)
	r.GET("/lines/ids", h.LineIDs)

	// ==================== 批注 ====================
	r.GET("/lines/:line_id/annotations", h.LineAnnotations)
	r.POST("/lines/:line_id/annotations", h.AddAnnotation)

	// ==================== 元数据 ====================
	r.GET("/metadata/schema", h.MetadataSchema)
	r.GET("/search_metadata", h.SearchMetadata)
	r.POST("/play/metadata/", h.MergeMetadata)
}

package handler

import (
	"github.com/user/folio/internal/config"
	"github.com/user/folio/internal/repository"
	"github.com/user/folio/internal/service"
)

// Handler HTTP 处理器
type Handler struct {
	Repos         *repository.Repositories
	Config        *config.Config
	SearchService *service.SearchService
}

// NewHandler 创建处理器
func NewHandler(repos *repository.Repositories, cfg *config.Config) *Handler {
	return &Handler{
		Repos:         repos,
		Config:        cfg,
		SearchService: service.NewSearchService(repos.Line),
	}
}

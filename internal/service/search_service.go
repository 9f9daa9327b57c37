package service

import (
	"fmt"
	"time"

	"github.com/user/folio/internal/model"
	"github.com/user/folio/internal/repository"
	"github.com/user/folio/internal/utils"
	"golang.org/x/sync/singleflight"
)

// SearchService 台词检索服务
// 结果走 LRU 缓存，并用 singleflight 合并并发的相同查询
type SearchService struct {
	lines *repository.LineRepository
	cache *utils.SearchCache[[]model.Line]
	sf    singleflight.Group
}

// NewSearchService 创建检索服务
func NewSearchService(lines *repository.LineRepository) *SearchService {
	return &SearchService{
		lines: lines,
		cache: utils.NewSearchCache[[]model.Line](1000, 5*time.Minute),
	}
}

// SearchLines 关键词检索台词，genre 为空时不过滤体裁
func (s *SearchService) SearchLines(query, genre string, limit int) ([]model.Line, error) {
	key := fmt.Sprintf("kw|%s|%s|%d", query, genre, limit)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	val, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.lines.SearchByKeyword(query, genre, limit)
	})
	if err != nil {
		return nil, err
	}

	lines := val.([]model.Line)
	s.cache.Set(key, lines)
	return lines, nil
}

// SearchLinesFullText 全文检索台词
func (s *SearchService) SearchLinesFullText(query string) ([]model.Line, error) {
	key := "tsv|" + query
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	val, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.lines.SearchFullText(query)
	})
	if err != nil {
		return nil, err
	}

	lines := val.([]model.Line)
	s.cache.Set(key, lines)
	return lines, nil
}

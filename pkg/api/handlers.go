package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stockdaily/pkg/cache"
	apperr "stockdaily/pkg/error"
	"stockdaily/pkg/export"
	"stockdaily/pkg/storage"
	"stockdaily/pkg/timing"
)

const requestTimeout = 10 * time.Second

// ImportRequest POST /imports 请求体
type ImportRequest struct {
	Files []string `json:"files" binding:"required,min=1"`
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: message})
}

// respondError 按错误码映射 HTTP 状态
func (s *Server) respondError(c *gin.Context, err error, message string) {
	switch {
	case apperr.HasCode(err, apperr.CodeInvalidArgument):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: err.Error()})
	case apperr.HasCode(err, apperr.CodeBatchRunning):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "conflict", Message: err.Error()})
	default:
		s.log.WithError(err).WithField("path", c.FullPath()).Error(message)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: message})
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	health := gin.H{
		"status":    "ok",
		"timestamp": time.Now(),
		"cache":     s.cache.Stats(),
	}

	summary, err := s.store.Summary(ctx)
	if err != nil {
		health["status"] = "degraded"
		health["database"] = "error: " + err.Error()
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}
	health["database"] = summary
	c.JSON(http.StatusOK, health)
}

func (s *Server) getDates(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	dates, err := cache.GetOrLoad(s.cache, cache.KeyDates, func() ([]string, error) {
		return s.store.DistinctDates(ctx)
	})
	if err != nil {
		s.respondError(c, err, "Failed to retrieve dates")
		return
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates, "count": len(dates)})
}

func (s *Server) getSectors(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	sectors, err := cache.GetOrLoad(s.cache, cache.KeySectors, func() ([]string, error) {
		return s.store.DistinctSectors(ctx)
	})
	if err != nil {
		s.respondError(c, err, "Failed to retrieve sectors")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sectors": sectors, "count": len(sectors)})
}

func (s *Server) deleteDate(c *gin.Context) {
	date := c.Param("date")
	if _, err := timing.ParseDate(date); err != nil {
		badRequest(c, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	deleted, err := s.store.DeleteByDate(ctx, date)
	if err != nil {
		s.respondError(c, err, "Failed to delete date")
		return
	}
	s.cache.Invalidate()

	s.log.WithField("date", date).WithField("deleted", deleted).Info("删除交易日数据")
	c.JSON(http.StatusOK, gin.H{"date": date, "deleted": deleted})
}

// parseFilter 解析 code/sector/limit 查询参数
func parseFilter(c *gin.Context) (storage.QueryFilter, bool) {
	filter := storage.QueryFilter{
		Code:   strings.TrimSpace(c.Query("code")),
		Sector: strings.TrimSpace(c.Query("sector")),
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return filter, false
		}
		filter.Limit = limit
	}
	return filter, true
}

func (s *Server) getStocks(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		badRequest(c, "date is required")
		return
	}
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if c.Query("compare") == "true" {
		results, err := s.store.QueryWithComparison(ctx, date, filter)
		if err != nil {
			s.respondError(c, err, "Failed to query stocks")
			return
		}
		c.JSON(http.StatusOK, gin.H{"date": date, "count": len(results), "data": results})
		return
	}

	records, err := s.store.QueryByDate(ctx, date, filter)
	if err != nil {
		s.respondError(c, err, "Failed to query stocks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "count": len(records), "data": records})
}

func (s *Server) getStockRange(c *gin.Context) {
	start, end := c.Query("start"), c.Query("end")
	if start == "" || end == "" {
		badRequest(c, "start and end are required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	records, err := s.store.QueryByDateRange(ctx, start, end, strings.TrimSpace(c.Query("code")))
	if err != nil {
		s.respondError(c, err, "Failed to query stocks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"start": start, "end": end, "count": len(records), "data": records})
}

func (s *Server) search(c *gin.Context) {
	keyword := strings.TrimSpace(c.Query("keyword"))
	if keyword == "" {
		badRequest(c, "keyword is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	records, err := s.store.Search(ctx, keyword, c.Query("date"))
	if err != nil {
		s.respondError(c, err, "Failed to search stocks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"keyword": keyword, "count": len(records), "data": records})
}

// resolveDate 未指定日期时使用最新交易日
func (s *Server) resolveDate(ctx context.Context, c *gin.Context) (string, bool) {
	if date := c.Query("date"); date != "" {
		return date, true
	}
	latest, ok, err := s.store.LatestTradeDate(ctx)
	if err != nil {
		s.respondError(c, err, "Failed to resolve latest date")
		return "", false
	}
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "No data imported yet"})
		return "", false
	}
	return latest, true
}

func (s *Server) getStatistics(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	date, ok := s.resolveDate(ctx, c)
	if !ok {
		return
	}

	stats, err := s.store.Statistics(ctx, date)
	if err != nil {
		s.respondError(c, err, "Failed to compute statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) export(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "xlsx"))
	if format != "xlsx" && format != "csv" {
		badRequest(c, "format must be xlsx or csv")
		return
	}
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	date, ok := s.resolveDate(ctx, c)
	if !ok {
		return
	}

	results, err := s.store.QueryWithComparison(ctx, date, filter)
	if err != nil {
		s.respondError(c, err, "Failed to query stocks")
		return
	}

	fileName := fmt.Sprintf("stock_%s.%s", date, format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	if format == "csv" {
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		err = export.WriteCSV(c.Writer, results, export.DefaultColumns)
	} else {
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Status(http.StatusOK)
		err = export.WriteXLSXTo(c.Writer, results, export.DefaultColumns)
	}
	if err != nil {
		s.log.WithError(err).WithField("date", date).Error("导出失败")
	}
}

func (s *Server) getImportHistory(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "limit must be an integer")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	entries, err := s.store.ImportHistory(ctx, limit)
	if err != nil {
		s.respondError(c, err, "Failed to retrieve import history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(entries), "data": entries})
}

func (s *Server) startImport(c *gin.Context) {
	if s.importer == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable", Message: "Import is not enabled"})
		return
	}

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "files is required")
		return
	}

	// 任务在请求结束后继续运行，不能使用请求的 context
	task, err := s.importer.Start(s.baseCtx, req.Files)
	if err != nil {
		s.respondError(c, err, "Failed to start import")
		return
	}

	s.log.WithField("task_id", task.ID).WithField("files", len(req.Files)).Info("开始导入")
	c.JSON(http.StatusAccepted, gin.H{"task_id": task.ID, "files": len(req.Files), "state": task.State()})
}

func (s *Server) getCurrentImport(c *gin.Context) {
	if s.importer == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable", Message: "Import is not enabled"})
		return
	}

	task := s.importer.Current()
	if task == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "No import task"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": task.ID, "state": task.State(), "result": task.Result()})
}

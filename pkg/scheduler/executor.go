package scheduler

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"stockdaily/pkg/importer"
	"stockdaily/pkg/logger"
	"stockdaily/pkg/source"
	"stockdaily/pkg/timing"
)

// BatchStarter 启动后台导入任务，由 importer.Orchestrator 实现
type BatchStarter interface {
	Start(ctx context.Context, files []string) (*importer.Task, error)
}

// ImportHistory 查询文件是否已成功导入，由 storage.Store 实现
type ImportHistory interface {
	HasImported(ctx context.Context, fileName string) (bool, error)
}

// ImportExecutor 扫描收件目录，把尚未导入的文件交给导入编排器
type ImportExecutor struct {
	starter  BatchStarter
	history  ImportHistory
	calendar *timing.MarketTime
	log      *logrus.Entry
}

// NewImportExecutor 创建定时导入执行器，calendar 为 nil 时使用系统时间
func NewImportExecutor(starter BatchStarter, history ImportHistory, calendar *timing.MarketTime) *ImportExecutor {
	if calendar == nil {
		calendar = timing.DefaultMarketTime()
	}
	return &ImportExecutor{
		starter:  starter,
		history:  history,
		calendar: calendar,
		log:      logger.WithComponent("scheduler.import"),
	}
}

// Execute 实现 JobExecutor
func (e *ImportExecutor) Execute(ctx context.Context, job *Job) error {
	cfg := job.Config
	log := e.log.WithFields(logrus.Fields{"job": cfg.Name, "directory": cfg.Directory})

	if cfg.SkipNonTradingDays && !e.calendar.IsTradingToday() {
		log.Info("非交易日，跳过定时导入")
		return nil
	}

	files, err := e.pendingFiles(ctx, cfg)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Debug("没有待导入的文件")
		return nil
	}

	task, err := e.starter.Start(ctx, files)
	if err != nil {
		return fmt.Errorf("启动导入任务失败: %w", err)
	}
	log.WithFields(logrus.Fields{"batch_id": task.ID, "files": len(files)}).Info("定时导入已启动")

	select {
	case <-task.Done():
	case <-ctx.Done():
		task.Stop()
		<-task.Done()
	}

	result := task.Result()
	if result.FailedFiles > 0 {
		return fmt.Errorf("%d 个文件导入失败，成功 %d 个", result.FailedFiles, result.SuccessFiles)
	}
	return nil
}

// pendingFiles 列出目录中尚未成功导入过的文件
func (e *ImportExecutor) pendingFiles(ctx context.Context, cfg JobConfig) ([]string, error) {
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = source.DefaultPatterns
	}

	files, err := source.ListFiles(cfg.Directory, patterns)
	if err != nil {
		return nil, fmt.Errorf("扫描导入目录失败: %w", err)
	}

	pending := make([]string, 0, len(files))
	for _, f := range files {
		done, err := e.history.HasImported(ctx, filepath.Base(f))
		if err != nil {
			return nil, fmt.Errorf("查询导入历史失败: %w", err)
		}
		if !done {
			pending = append(pending, f)
		}
	}
	return pending, nil
}

package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stockdaily/pkg/logger"
	"stockdaily/pkg/model"
	"stockdaily/pkg/normalize"
	"stockdaily/pkg/sink"
	"stockdaily/pkg/source"
	"stockdaily/pkg/storage"
	"stockdaily/pkg/tradedate"
)

// Orchestrator 按顺序导入一批文件：读取、解析日期、标准化、写入、记录历史。
// 同一时间只允许一个后台任务运行。
type Orchestrator struct {
	store          storage.RecordWriter
	normalizer     *normalize.Normalizer
	reader         source.Reader
	sink           sink.Sink
	fallbackColumn string
	producer       string
	onComplete     []func(BatchResult)
	log            *logrus.Entry

	running atomic.Bool
	current atomic.Pointer[Task]
}

// Option 配置 Orchestrator
type Option func(*Orchestrator)

// WithReader 设置源文件读取器，默认按扩展名分派
func WithReader(r source.Reader) Option {
	return func(o *Orchestrator) { o.reader = r }
}

// WithSink 设置导入事件下游
func WithSink(s sink.Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithFallbackColumn 设置文件名无日期时使用的数据列
func WithFallbackColumn(column string) Option {
	return func(o *Orchestrator) {
		if column != "" {
			o.fallbackColumn = column
		}
	}
}

// WithLogger 设置日志
func WithLogger(log *logrus.Entry) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithOnComplete 每批导入结束后回调，例如让查询缓存失效
func WithOnComplete(fn func(BatchResult)) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.onComplete = append(o.onComplete, fn)
		}
	}
}

// New 创建导入编排器
func New(store storage.RecordWriter, normalizer *normalize.Normalizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:          store,
		normalizer:     normalizer,
		reader:         source.NewMultiReader("", "utf-8"),
		fallbackColumn: tradedate.DefaultFallbackColumn,
		log:            logger.WithComponent("importer"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Running 是否有后台任务在运行
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Current 返回最近一次启动的后台任务，没有时返回 nil
func (o *Orchestrator) Current() *Task {
	return o.current.Load()
}

// Run 同步导入 files。events 可以为 nil；非 nil 时调用方需要持续读取。
func (o *Orchestrator) Run(ctx context.Context, files []string, events chan<- Event) BatchResult {
	return o.run(ctx, uuid.New().String(), files, events, nil)
}

// Start 在后台导入 files。已有任务运行时返回 ErrBatchRunning。
func (o *Orchestrator) Start(ctx context.Context, files []string) (*Task, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrBatchRunning
	}

	task := newTask(len(files))
	o.current.Store(task)

	go func() {
		result := o.run(ctx, task.ID, files, task.events, &task.stop)
		o.running.Store(false)
		task.finish(result)
	}()
	return task, nil
}

func (o *Orchestrator) run(ctx context.Context, batchID string, files []string, events chan<- Event, stop *atomic.Bool) BatchResult {
	result := BatchResult{
		BatchID:   batchID,
		State:     StateRunning,
		Files:     make([]FileResult, 0, len(files)),
		StartedAt: time.Now(),
	}
	log := o.log.WithField("batch_id", batchID)
	log.WithField("files", len(files)).Info("开始批量导入")

	emit := func(e Event) {
		if events != nil {
			events <- e
		}
	}

	for idx, path := range files {
		if (stop != nil && stop.Load()) || ctx.Err() != nil {
			result.State = StateCancelled
			log.WithField("remaining", len(files)-idx).Warn("导入已停止")
			break
		}

		fileName := filepath.Base(path)
		emit(ProgressEvent{Index: idx + 1, Total: len(files), FileName: fileName})

		fr := o.importFile(ctx, batchID, path)
		result.Files = append(result.Files, fr)
		if fr.OK {
			result.SuccessFiles++
			result.TotalRecords += fr.Inserted
		} else {
			result.FailedFiles++
		}
		emit(FileEvent{FileName: fileName, Count: fr.Inserted, OK: fr.OK, Message: fr.Message})
	}

	if result.State == StateRunning {
		result.State = StateCompleted
	}
	result.FinishedAt = time.Now()

	log.WithFields(logrus.Fields{
		"state":         result.State,
		"success_files": result.SuccessFiles,
		"failed_files":  result.FailedFiles,
		"total_records": result.TotalRecords,
		"elapsed":       result.FinishedAt.Sub(result.StartedAt).String(),
	}).Info("批量导入结束")

	for _, fn := range o.onComplete {
		fn(result)
	}
	emit(CompletedEvent{Result: result})
	return result
}

// importFile 处理单个文件。失败只影响当前文件。
func (o *Orchestrator) importFile(ctx context.Context, batchID, path string) FileResult {
	fr := FileResult{FileName: filepath.Base(path), Path: path}
	log := o.log.WithFields(logrus.Fields{"batch_id": batchID, "file": fr.FileName})

	fail := func(tradeDate *string, err error) FileResult {
		fr.Err = err
		fr.Message = err.Error()
		log.WithError(err).Error("文件导入失败")
		o.recordHistory(ctx, log, fr.FileName, tradeDate, 0, model.ImportFailed, &fr.Message)
		return fr
	}

	sheet, err := o.reader.Read(ctx, path)
	if err != nil {
		return fail(nil, err)
	}

	date, ok := tradedate.FromSheet(sheet, o.fallbackColumn)
	if !ok {
		return fail(nil, newDateUnresolvedError(fr.FileName))
	}
	fr.TradeDate = date

	normalized, err := o.normalizer.NormalizeSheet(sheet)
	if err != nil {
		return fail(&date, err)
	}

	inserted, skipped, err := o.store.UpsertBatch(ctx, normalized.Records, date)
	if err != nil {
		return fail(&date, err)
	}

	fr.OK = true
	fr.Inserted = inserted
	fr.Skipped = skipped
	fr.Message = fmt.Sprintf("成功导入 %d 条，跳过 %d 条", inserted, skipped)
	o.recordHistory(ctx, log, fr.FileName, &date, inserted, model.ImportSuccess, nil)

	log.WithFields(logrus.Fields{
		"trade_date": date,
		"inserted":   inserted,
		"skipped":    skipped,
	}).Info("文件导入成功")

	o.publish(ctx, log, batchID, fr, normalized.Records)
	return fr
}

func (o *Orchestrator) recordHistory(ctx context.Context, log *logrus.Entry, fileName string, tradeDate *string, count int, status model.ImportStatus, msg *string) {
	entry := model.ImportHistoryEntry{
		FileName:     fileName,
		TradeDate:    tradeDate,
		RecordsCount: count,
		Status:       status,
		ErrorMessage: msg,
	}
	if err := o.store.AddImportHistory(ctx, entry); err != nil {
		log.WithError(err).Warn("记录导入历史失败")
	}
}

func (o *Orchestrator) publish(ctx context.Context, log *logrus.Entry, batchID string, fr FileResult, records []model.Record) {
	if o.sink == nil {
		return
	}
	for i := range records {
		records[i].TradeDate = fr.TradeDate
	}
	notice := sink.ImportNotice{
		BatchID:   batchID,
		FileName:  fr.FileName,
		TradeDate: fr.TradeDate,
		Inserted:  fr.Inserted,
		Skipped:   fr.Skipped,
		Records:   records,
	}
	if err := o.sink.Publish(ctx, notice); err != nil {
		log.WithError(err).WithField("sink", o.sink.Name()).Warn("发布导入事件失败")
	}
}

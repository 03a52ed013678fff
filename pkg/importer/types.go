package importer

import (
	"time"
)

// State 导入任务状态
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// Event 导入过程中发出的事件
type Event interface {
	eventName() string
}

// ProgressEvent 开始处理某个文件，Index 从 1 开始
type ProgressEvent struct {
	Index    int    `json:"index"`
	Total    int    `json:"total"`
	FileName string `json:"file_name"`
}

// FileEvent 单个文件处理结束
type FileEvent struct {
	FileName string `json:"file_name"`
	Count    int    `json:"count"`
	OK       bool   `json:"ok"`
	Message  string `json:"message"`
}

// CompletedEvent 整批处理结束
type CompletedEvent struct {
	Result BatchResult `json:"result"`
}

func (ProgressEvent) eventName() string  { return "progress" }
func (FileEvent) eventName() string      { return "file" }
func (CompletedEvent) eventName() string { return "completed" }

// EventName 返回事件类型名称，便于序列化
func EventName(e Event) string {
	return e.eventName()
}

// FileResult 单个文件的导入结果
type FileResult struct {
	FileName  string `json:"file_name"`
	Path      string `json:"path"`
	TradeDate string `json:"trade_date,omitempty"`
	Inserted  int    `json:"inserted"`
	Skipped   int    `json:"skipped"`
	OK        bool   `json:"ok"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

// BatchResult 一批文件的导入汇总
type BatchResult struct {
	BatchID      string       `json:"batch_id"`
	State        State        `json:"state"`
	SuccessFiles int          `json:"success_files"`
	FailedFiles  int          `json:"failed_files"`
	TotalRecords int          `json:"total_records"`
	Files        []FileResult `json:"files"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
}

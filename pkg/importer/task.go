package importer

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Task 一次后台导入任务
type Task struct {
	ID string

	events chan Event
	stop   atomic.Bool
	done   chan struct{}

	mu     sync.RWMutex
	result BatchResult
	state  State
}

func newTask(files int) *Task {
	return &Task{
		ID: uuid.New().String(),
		// 每个文件两条事件，外加完成事件，读取方不及时消费也不会阻塞导入
		events: make(chan Event, files*2+1),
		done:   make(chan struct{}),
		state:  StateRunning,
	}
}

// Events 返回事件通道，任务结束后关闭
func (t *Task) Events() <-chan Event {
	return t.events
}

// Stop 请求停止，当前文件处理完后生效
func (t *Task) Stop() {
	t.stop.Store(true)
}

// Done 任务结束时关闭
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// State 返回任务状态
func (t *Task) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Result 返回任务结果，任务结束前只有 BatchID
func (t *Task) Result() BatchResult {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.result.BatchID == "" {
		return BatchResult{BatchID: t.ID, State: t.state}
	}
	return t.result
}

func (t *Task) finish(result BatchResult) {
	t.mu.Lock()
	t.result = result
	t.state = result.State
	t.mu.Unlock()
	close(t.events)
	close(t.done)
}

package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// JobConfig 定义单个定时导入任务的配置
type JobConfig struct {
	Name               string   `mapstructure:"name" yaml:"name" json:"name"`
	Enabled            bool     `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Schedule           string   `mapstructure:"schedule" yaml:"schedule" json:"schedule"`
	Directory          string   `mapstructure:"directory" yaml:"directory" json:"directory"`
	Patterns           []string `mapstructure:"patterns" yaml:"patterns" json:"patterns,omitempty"`
	SkipNonTradingDays bool     `mapstructure:"skip_non_trading_days" yaml:"skip_non_trading_days" json:"skip_non_trading_days"`
}

// JobsConfig 定义整个任务配置文件结构
type JobsConfig struct {
	Jobs []JobConfig `mapstructure:"jobs" yaml:"jobs" json:"jobs"`
}

// Job 表示一个已注册的任务
type Job struct {
	ID         string
	Config     JobConfig
	EntryID    cron.EntryID
	Status     JobStatus
	LastRun    *time.Time
	NextRun    *time.Time
	RunCount   int64
	ErrorCount int64
	LastError  error
}

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusError    JobStatus = "error"
	JobStatusDisabled JobStatus = "disabled"
)

// JobExecutor 任务执行器接口
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// JobScheduler 任务调度器接口
type JobScheduler interface {
	LoadConfig(configPath string) error
	LoadJobs(configs []JobConfig) int
	Start() error
	Stop() error
	AddJob(config JobConfig) error
	RemoveJob(jobName string) error
	GetJob(jobName string) (*Job, error)
	GetAllJobs() []*Job
	RunJob(jobName string) error
	SetExecutor(executor JobExecutor)
}

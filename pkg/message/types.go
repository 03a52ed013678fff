package message

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"stockdaily/pkg/model"
)

// 错误定义
var (
	ErrInvalidChecksum = errors.New("消息校验和不匹配")
	ErrInvalidFormat   = errors.New("消息格式无效")
)

const (
	// ImportStream 导入事件的 Redis Stream 名称
	ImportStream = "stream:stockdaily:imports"
	// DataTypeImport 导入事件的数据类型
	DataTypeImport = "daily_import"
	// Version 消息格式版本
	Version = "1.0"
)

// MessageHeader 消息头部信息
type MessageHeader struct {
	MessageID   string `json:"messageId"`
	Timestamp   int64  `json:"timestamp"`
	Version     string `json:"version"`
	Producer    string `json:"producer"`
	ContentType string `json:"contentType"`
}

// MessageMetadata 消息元数据
type MessageMetadata struct {
	DataType  string `json:"dataType"`
	BatchID   string `json:"batchId"`
	BatchSize int    `json:"batchSize"`
	TradeDate string `json:"tradeDate,omitempty"`
}

// ImportNotice 单个文件导入完成后的通知。
// Records 只在进程内传递给需要逐行数据的下游，不进入消息体。
type ImportNotice struct {
	BatchID   string         `json:"batchId"`
	FileName  string         `json:"fileName"`
	TradeDate string         `json:"tradeDate"`
	Inserted  int            `json:"inserted"`
	Skipped   int            `json:"skipped"`
	Records   []model.Record `json:"-"`
}

// MessageFormat 标准消息格式
type MessageFormat struct {
	Header   MessageHeader   `json:"header"`
	Metadata MessageMetadata `json:"metadata"`
	Payload  ImportNotice    `json:"payload"`
	Checksum string          `json:"checksum"`
}

// NewImportMessage 根据导入通知创建消息
func NewImportMessage(producer string, notice ImportNotice) *MessageFormat {
	msg := &MessageFormat{
		Header: MessageHeader{
			MessageID:   uuid.New().String(),
			Timestamp:   time.Now().Unix(),
			Version:     Version,
			Producer:    producer,
			ContentType: "application/json",
		},
		Metadata: MessageMetadata{
			DataType:  DataTypeImport,
			BatchID:   notice.BatchID,
			BatchSize: notice.Inserted,
			TradeDate: notice.TradeDate,
		},
		Payload: notice,
	}
	msg.Checksum = msg.CalculateChecksum()
	return msg
}

// CalculateChecksum 计算消息校验和，不包含 checksum 字段本身
func (m *MessageFormat) CalculateChecksum() string {
	temp := MessageFormat{
		Header:   m.Header,
		Metadata: m.Metadata,
		Payload:  m.Payload,
	}

	data, err := json.Marshal(temp)
	if err != nil {
		return ""
	}

	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}

// Validate 验证消息完整性
func (m *MessageFormat) Validate() error {
	if m.Header.MessageID == "" || m.Payload.FileName == "" {
		return ErrInvalidFormat
	}
	if m.Checksum != m.CalculateChecksum() {
		return ErrInvalidChecksum
	}
	return nil
}

// ToJSON 将消息转换为 JSON 字符串
func (m *MessageFormat) ToJSON() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromJSON 从 JSON 字符串解析消息
func FromJSON(jsonStr string) (*MessageFormat, error) {
	var msg MessageFormat
	if err := json.Unmarshal([]byte(jsonStr), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetStreamName 根据数据类型获取 Redis Stream 名称
func GetStreamName(dataType string) string {
	switch dataType {
	case DataTypeImport:
		return ImportStream
	default:
		return "stream:stockdaily:unknown"
	}
}

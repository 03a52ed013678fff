package storage

import (
	"context"
	"database/sql"

	"stockdaily/pkg/model"
)

// DefaultHistoryLimit 导入历史默认返回条数
const DefaultHistoryLimit = 100

// AddImportHistory 追加一条导入历史
func (s *Store) AddImportHistory(ctx context.Context, entry model.ImportHistoryEntry) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var tradeDate, errMsg any
	if entry.TradeDate != nil {
		tradeDate = *entry.TradeDate
	}
	if entry.ErrorMessage != nil {
		errMsg = *entry.ErrorMessage
	}

	_, err := s.db.ExecContext(context.WithoutCancel(ctx), `
		INSERT INTO import_history (file_name, trade_date, records_count, status, error_message)
		VALUES (?, ?, ?, ?, ?)`,
		entry.FileName, tradeDate, entry.RecordsCount, string(entry.Status), errMsg)
	if err != nil {
		return WrapStorageError(ErrStorageIO, "写入导入历史失败", err)
	}
	return nil
}

// ImportHistory 按导入时间倒序返回导入历史，limit<=0 时取默认条数
func (s *Store) ImportHistory(ctx context.Context, limit int) ([]model.ImportHistoryEntry, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, import_date, file_name, trade_date, records_count, status, error_message
		FROM import_history ORDER BY import_date DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, WrapStorageError(ErrStorageIO, "查询导入历史失败", err)
	}
	defer rows.Close()

	entries := make([]model.ImportHistoryEntry, 0)
	for rows.Next() {
		var (
			e                          model.ImportHistoryEntry
			importDate, fileName       sql.NullString
			tradeDate, status, message sql.NullString
			count                      sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &importDate, &fileName, &tradeDate, &count, &status, &message); err != nil {
			return nil, WrapStorageError(ErrStorageIO, "读取导入历史失败", err)
		}
		e.ImportDate = parseTimestamp(importDate.String)
		e.FileName = fileName.String
		e.RecordsCount = int(count.Int64)
		e.Status = model.ImportStatus(status.String)
		if tradeDate.Valid {
			d := tradeDate.String
			e.TradeDate = &d
		}
		if message.Valid {
			m := message.String
			e.ErrorMessage = &m
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapStorageError(ErrStorageIO, "遍历导入历史失败", err)
	}
	return entries, nil
}

// HasImported 判断文件是否已成功导入过，供定时导入去重
func (s *Store) HasImported(ctx context.Context, fileName string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM import_history WHERE file_name = ? AND status = ?",
		fileName, string(model.ImportSuccess)).Scan(&n)
	if err != nil {
		return false, WrapStorageError(ErrStorageIO, "查询导入历史失败", err)
	}
	return n > 0, nil
}

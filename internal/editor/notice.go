package editor

import (
	"errors"

	"markdown-notes/internal/store"
)

// Severity важность уведомления
type Severity int

const (
	SeverityInfo Severity = iota
	// SeverityWarning ничего не изменилось (например, заметка не найдена)
	SeverityWarning
	// SeverityError изменения пользователя могли не сохраниться
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Notice уведомление пользователю
type Notice struct {
	Text     string
	Severity Severity
}

// Операции, для которых формируются уведомления
const (
	OpCreate     = "create"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpRead       = "read"
	OpInitialize = "initialize"
)

var noticePrefixes = map[string]string{
	OpCreate:     "建立筆記失敗: ",
	OpUpdate:     "更新筆記失敗: ",
	OpDelete:     "刪除筆記失敗: ",
	OpRead:       "讀取筆記失敗: ",
	OpInitialize: "資料庫初始化失敗，請檢查配置。錯誤: ",
}

// NoticeFor переводит ошибку операции в уведомление
func NoticeFor(op string, err error) Notice {
	severity := SeverityError
	var storeErr *store.Error
	if errors.As(err, &storeErr) && !storeErr.DataAtRisk() {
		severity = SeverityWarning
	}

	msg := err.Error()
	if storeErr != nil && storeErr.Err != nil {
		msg = storeErr.Err.Error()
	}

	return Notice{Text: noticePrefixes[op] + msg, Severity: severity}
}

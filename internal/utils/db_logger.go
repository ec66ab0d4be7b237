package utils

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"gorm.io/gorm/logger"
)

// maxCallerDepth bounds the stack walk; gorm's callback chain is deep
const maxCallerDepth = 25

// unquote strips identifier quoting so fragments match on every dialect
var unquote = strings.NewReplacer("`", "", `"`, "")

// GormLogFilter decides which SQL lines reach the wrapped gorm logger and
// which stack frames are skipped when looking for the application caller
type GormLogFilter struct {
	// IgnoredQueries drops successful queries containing any of these
	// fragments. Identifier quotes are ignored on both sides.
	IgnoredQueries []string
	// SkipFiles are path fragments of frames that never count as the caller.
	// gorm's own frames and this file are always skipped.
	SkipFiles []string
}

// CustomGormLogger wraps a gorm logger with a GormLogFilter
type CustomGormLogger struct {
	logger.Interface
	filter GormLogFilter
}

// NewCustomGormLogger creates a logger that filters through f
func NewCustomGormLogger(l logger.Interface, f GormLogFilter) *CustomGormLogger {
	f.SkipFiles = append([]string{"gorm.io", "internal/utils/db_logger.go"}, f.SkipFiles...)
	return &CustomGormLogger{Interface: l, filter: f}
}

// LogMode implements logger.Interface
func (l *CustomGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &CustomGormLogger{Interface: l.Interface.LogMode(level), filter: l.filter}
}

// Trace implements logger.Interface
func (l *CustomGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	sql, rows := fc()
	if l.filter.ignored(sql, err) {
		return
	}

	caller := l.filter.caller()
	l.Interface.Trace(ctx, begin, func() (string, int64) {
		if caller == "" {
			return sql, rows
		}
		return fmt.Sprintf("[Caller: %s] %s", caller, sql), rows
	}, err)
}

// ignored reports whether a query is dropped. Failed queries always pass.
func (f GormLogFilter) ignored(sql string, err error) bool {
	if err != nil {
		return false
	}
	sql = unquote.Replace(sql)
	for _, fragment := range f.IgnoredQueries {
		if strings.Contains(sql, unquote.Replace(fragment)) {
			return true
		}
	}
	return false
}

func (f GormLogFilter) skipped(file string) bool {
	for _, fragment := range f.SkipFiles {
		if strings.Contains(file, fragment) {
			return true
		}
	}
	return false
}

// caller describes the first stack frame outside the skipped files
func (f GormLogFilter) caller() string {
	for depth := 2; depth < maxCallerDepth; depth++ {
		pc, file, line, ok := runtime.Caller(depth)
		if !ok {
			return ""
		}
		if f.skipped(file) {
			continue
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			return fmt.Sprintf("%s:%d", file, line)
		}
		name := fn.Name()
		if idx := strings.LastIndexByte(name, '.'); idx != -1 {
			name = name[idx+1:]
		}
		return fmt.Sprintf("%s() at %s:%d", name, file, line)
	}
	return ""
}

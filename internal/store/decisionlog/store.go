package decisionlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"brookside/internal/decisionctx"
)

// Record 是一条落库的决策记录。Payload 保存完整上下文 JSON，
// 索引列冗余出来方便按 symbol / 时间 / regime 查询。
type Record struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	TraceID      string         `gorm:"uniqueIndex;size:64" json:"trace_id"`
	Symbol       string         `gorm:"index;size:32" json:"symbol"`
	BarCloseTime int64          `gorm:"index" json:"bar_close_time"`
	RegimeLabel  string         `gorm:"size:32" json:"regime_label"`
	Confidence   float64        `json:"confidence"`
	Status       string         `gorm:"size:32" json:"status"`
	Degraded     bool           `json:"degraded"`
	Payload      datatypes.JSON `json:"payload"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (Record) TableName() string { return "decisions" }

// Store 是基于 SQLite 的决策日志。
type Store struct {
	db *gorm.DB
}

// Open 打开（必要时创建）决策日志库。WAL 模式避免读写互阻。
// 走纯 Go 的 modernc 驱动，_pragma 形式的 DSN 参数只有它认。
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("打开决策日志库失败: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("决策日志建表失败: %w", err)
	}
	return &Store{db: db}, nil
}

// Save 落库一条决策上下文。
func (s *Store) Save(ctx context.Context, d decisionctx.DecisionContext) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("决策上下文序列化失败: %w", err)
	}
	rec := Record{
		TraceID:      d.TraceID,
		Symbol:       d.Symbol,
		BarCloseTime: d.BarCloseTime,
		RegimeLabel:  string(d.Regime.Label),
		Confidence:   d.Regime.Confidence,
		Status:       string(d.Candidates.Status),
		Degraded:     d.Degraded,
		Payload:      raw,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// Recent 按 bar 时间倒序返回最近 limit 条记录。
func (s *Store) Recent(ctx context.Context, symbol string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	q := s.db.WithContext(ctx).Order("bar_close_time desc").Limit(limit)
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	var out []Record
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ByTrace 按 trace id 取单条记录。
func (s *Store) ByTrace(ctx context.Context, traceID string) (*Record, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("trace_id = ?", traceID).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

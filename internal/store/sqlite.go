package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"spotpilot/internal/exchange"
)

// SQLiteStore 本地持久化：交易规则缓存 + 下单日志 + 提示词/回复交接记录
type SQLiteStore struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

var _ exchange.FilterCache = (*SQLiteStore)(nil)

type execContext interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS symbol_filters (
	symbol      TEXT PRIMARY KEY,
	payload     TEXT NOT NULL,
	fetched_at  INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS order_journal (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	action            TEXT NOT NULL,
	symbol            TEXT NOT NULL,
	side              TEXT,
	order_type        TEXT,
	quantity          REAL,
	price             REAL,
	stop_price        REAL,
	market_price      REAL,
	status            TEXT NOT NULL,
	exchange_order_id INTEGER,
	client_order_id   TEXT,
	error             TEXT,
	created_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_journal_symbol ON order_journal(symbol, created_at);
CREATE TABLE IF NOT EXISTS prompts (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	system      TEXT NOT NULL,
	user        TEXT NOT NULL,
	file_path   TEXT,
	created_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS prompt_responses (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	prompt_id        TEXT NOT NULL REFERENCES prompts(id),
	raw              TEXT NOT NULL,
	score            INTEGER,
	recommendations  TEXT,
	created_at       INTEGER NOT NULL
);
`

// OpenSQLite 打开（必要时创建）数据库文件并建表
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite 路径不能为空")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("创建数据目录失败: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开 sqlite 失败: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func migrate(ctx context.Context, exec execContext) error {
	if _, err := exec.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("初始化表结构失败: %w", err)
	}
	return nil
}

func (s *SQLiteStore) handle() (*sql.DB, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, fmt.Errorf("sqlite store 未初始化或已关闭")
	}
	return db, nil
}

// Close 释放连接；可重复调用
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	db := s.db
	s.db = nil
	s.mu.Unlock()
	if db == nil {
		return nil
	}
	return db.Close()
}

func (s *SQLiteStore) GetFilters(ctx context.Context, symbol string) (exchange.SymbolFilters, bool, error) {
	db, err := s.handle()
	if err != nil {
		return exchange.SymbolFilters{}, false, err
	}
	var payload string
	var expires int64
	err = db.QueryRowContext(ctx, `SELECT payload, expires_at FROM symbol_filters WHERE symbol = ?`, key(symbol)).Scan(&payload, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return exchange.SymbolFilters{}, false, nil
	}
	if err != nil {
		return exchange.SymbolFilters{}, false, err
	}
	if s.now().UnixMilli() >= expires {
		return exchange.SymbolFilters{}, false, nil
	}
	var f exchange.SymbolFilters
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		return exchange.SymbolFilters{}, false, fmt.Errorf("解析缓存 %s 失败: %w", symbol, err)
	}
	return f, true, nil
}

func (s *SQLiteStore) PutFilters(ctx context.Context, f exchange.SymbolFilters, ttl time.Duration) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	buf, err := json.Marshal(f)
	if err != nil {
		return err
	}
	now := s.now()
	_, err = db.ExecContext(ctx, `
		INSERT INTO symbol_filters (symbol, payload, fetched_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at`,
		key(f.Symbol), string(buf), now.UnixMilli(), now.Add(ttl).UnixMilli())
	return err
}

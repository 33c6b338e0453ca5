package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// OrderRecord 每次下单/撤单尝试（含被本地校验拦截的）都记录一条
type OrderRecord struct {
	ID              int64
	Action          string // place | cancel | cancel_oco | rejected
	Symbol          string
	Side            string
	OrderType       string
	Quantity        float64
	Price           float64
	StopPrice       float64
	MarketPrice     float64
	Status          string
	ExchangeOrderID int64
	ClientOrderID   string
	Error           string
	CreatedAt       time.Time
}

// Journal 下单日志与 AI 交接记录
type Journal interface {
	RecordOrder(ctx context.Context, rec OrderRecord) (int64, error)
	ListOrders(ctx context.Context, symbol string, limit int) ([]OrderRecord, error)
	SavePrompt(ctx context.Context, rec PromptRecord) error
	GetPrompt(ctx context.Context, id string) (PromptRecord, bool, error)
	SaveResponse(ctx context.Context, rec ResponseRecord) (int64, error)
	ListResponses(ctx context.Context, promptID string) ([]ResponseRecord, error)
}

var _ Journal = (*SQLiteStore)(nil)

func nullIfEmptyString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func nullIfZeroFloat(v float64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func nullIfZeroInt(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func (s *SQLiteStore) RecordOrder(ctx context.Context, rec OrderRecord) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	if rec.Symbol == "" || rec.Action == "" || rec.Status == "" {
		return 0, fmt.Errorf("order_journal: action/symbol/status 必填")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO order_journal (action, symbol, side, order_type, quantity, price, stop_price, market_price,
			status, exchange_order_id, client_order_id, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Action, rec.Symbol, nullIfEmptyString(rec.Side), nullIfEmptyString(rec.OrderType),
		nullIfZeroFloat(rec.Quantity), nullIfZeroFloat(rec.Price), nullIfZeroFloat(rec.StopPrice), nullIfZeroFloat(rec.MarketPrice),
		rec.Status, nullIfZeroInt(rec.ExchangeOrderID), nullIfEmptyString(rec.ClientOrderID), nullIfEmptyString(rec.Error),
		rec.CreatedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("写入下单日志失败: %w", err)
	}
	return res.LastInsertId()
}

// ListOrders 按时间倒序；symbol 为空时返回全部
func (s *SQLiteStore) ListOrders(ctx context.Context, symbol string, limit int) ([]OrderRecord, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, action, symbol, side, order_type, quantity, price, stop_price, market_price,
		       status, exchange_order_id, client_order_id, error, created_at
		FROM order_journal
		WHERE (? = '' OR symbol = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, key(symbol), key(symbol), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderRecord
	for rows.Next() {
		var (
			rec                       OrderRecord
			side, typ, clientID, errS sql.NullString
			qty, price, stop, market  sql.NullFloat64
			exID                      sql.NullInt64
			created                   int64
		)
		if err := rows.Scan(&rec.ID, &rec.Action, &rec.Symbol, &side, &typ, &qty, &price, &stop, &market,
			&rec.Status, &exID, &clientID, &errS, &created); err != nil {
			return nil, err
		}
		rec.Side, rec.OrderType, rec.ClientOrderID, rec.Error = side.String, typ.String, clientID.String, errS.String
		rec.Quantity, rec.Price, rec.StopPrice, rec.MarketPrice = qty.Float64, price.Float64, stop.Float64, market.Float64
		rec.ExchangeOrderID = exID.Int64
		rec.CreatedAt = time.UnixMilli(created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PromptRecord 第一阶段产出的提示词
type PromptRecord struct {
	ID        string
	Kind      string
	System    string
	User      string
	FilePath  string
	CreatedAt time.Time
}

// ResponseRecord 第二阶段回填的模型回复
type ResponseRecord struct {
	ID              int64
	PromptID        string
	Raw             string
	Score           *int
	Recommendations string // JSON 数组原文
	CreatedAt       time.Time
}

func (s *SQLiteStore) SavePrompt(ctx context.Context, rec PromptRecord) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if rec.ID == "" {
		return errors.New("prompt id 必填")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO prompts (id, kind, system, user, file_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET file_path = excluded.file_path`,
		rec.ID, rec.Kind, rec.System, rec.User, nullIfEmptyString(rec.FilePath), rec.CreatedAt.UnixMilli())
	return err
}

func (s *SQLiteStore) GetPrompt(ctx context.Context, id string) (PromptRecord, bool, error) {
	db, err := s.handle()
	if err != nil {
		return PromptRecord{}, false, err
	}
	var (
		rec     PromptRecord
		path    sql.NullString
		created int64
	)
	err = db.QueryRowContext(ctx, `SELECT id, kind, system, user, file_path, created_at FROM prompts WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Kind, &rec.System, &rec.User, &path, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return PromptRecord{}, false, nil
	}
	if err != nil {
		return PromptRecord{}, false, err
	}
	rec.FilePath = path.String
	rec.CreatedAt = time.UnixMilli(created)
	return rec, true, nil
}

func (s *SQLiteStore) SaveResponse(ctx context.Context, rec ResponseRecord) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	var score interface{}
	if rec.Score != nil {
		score = *rec.Score
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO prompt_responses (prompt_id, raw, score, recommendations, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.PromptID, rec.Raw, score, nullIfEmptyString(rec.Recommendations), rec.CreatedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("写入回复失败: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) ListResponses(ctx context.Context, promptID string) ([]ResponseRecord, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, prompt_id, raw, score, recommendations, created_at
		FROM prompt_responses WHERE prompt_id = ? ORDER BY id`, promptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ResponseRecord
	for rows.Next() {
		var (
			rec     ResponseRecord
			score   sql.NullInt64
			recs    sql.NullString
			created int64
		)
		if err := rows.Scan(&rec.ID, &rec.PromptID, &rec.Raw, &score, &recs, &created); err != nil {
			return nil, err
		}
		if score.Valid {
			v := int(score.Int64)
			rec.Score = &v
		}
		rec.Recommendations = recs.String
		rec.CreatedAt = time.UnixMilli(created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

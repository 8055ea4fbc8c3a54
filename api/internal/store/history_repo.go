package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = sql.ErrNoRows

// Kind: что именно считали, выражение калькулятора или уравнение.
type Kind string

const (
	KindReduce Kind = "reduce"
	KindSolve  Kind = "solve"
)

// Entry: одна запись истории вычислений.
type Entry struct {
	ID        uuid.UUID
	CreatedAt time.Time
	ChatID    int64
	UserID    int64
	Kind      Kind
	Shape     string // пусто для reduce
	Input     string
	Result    string
	Steps     []string
	Variables map[string]float64 // значения формы, чтобы решение можно было восстановить
}

type HistoryRepo struct{ DB *sql.DB }

func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{DB: db} }

// Record сохраняет запись; ID и CreatedAt заполняются, если пустые.
func (r *HistoryRepo) Record(ctx context.Context, e *Entry) error {
	if r == nil || r.DB == nil {
		return nil
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	steps := e.Steps
	if steps == nil {
		steps = []string{}
	}
	js, err := json.Marshal(steps)
	if err != nil {
		return err
	}
	vars := e.Variables
	if vars == nil {
		vars = map[string]float64{}
	}
	vjs, err := json.Marshal(vars)
	if err != nil {
		return err
	}
	const q = `
insert into solve_history (id, created_at, chat_id, user_id, kind, shape, input, result, steps, variables)
values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err = r.DB.ExecContext(ctx, q,
		e.ID, e.CreatedAt, e.ChatID, e.UserID, string(e.Kind), e.Shape, e.Input, e.Result, js, vjs,
	)
	return err
}

// Recent возвращает последние записи чата, новые первыми.
func (r *HistoryRepo) Recent(ctx context.Context, chatID int64, limit int) ([]Entry, error) {
	if r == nil || r.DB == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	const q = `
select id, created_at, chat_id, user_id, kind, coalesce(shape,'') as shape, input, result, steps
from solve_history
where chat_id = $1
order by created_at desc
limit $2`
	rows, err := r.DB.QueryContext(ctx, q, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			kind string
			js   []byte
		)
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.ChatID, &e.UserID, &kind, &e.Shape, &e.Input, &e.Result, &js); err != nil {
			return nil, err
		}
		e.Kind = Kind(kind)
		if err := json.Unmarshal(js, &e.Steps); err != nil {
			// битые шаги не мешают показать результат
			e.Steps = nil
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Last: самая свежая запись нужного вида в чате; /explain берёт её после рестарта.
func (r *HistoryRepo) Last(ctx context.Context, chatID int64, kind Kind) (*Entry, error) {
	if r == nil || r.DB == nil {
		return nil, ErrNotFound
	}
	const q = `
select id, created_at, chat_id, user_id, kind, coalesce(shape,'') as shape, input, result, steps, variables
from solve_history
where chat_id = $1 and kind = $2
order by created_at desc
limit 1`
	var (
		e       Entry
		k       string
		js, vjs []byte
	)
	row := r.DB.QueryRowContext(ctx, q, chatID, string(kind))
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.ChatID, &e.UserID, &k, &e.Shape, &e.Input, &e.Result, &js, &vjs); err != nil {
		return nil, err
	}
	e.Kind = Kind(k)
	_ = json.Unmarshal(js, &e.Steps)
	_ = json.Unmarshal(vjs, &e.Variables)
	return &e, nil
}

// PurgeOlderThan удаляет очень старые записи, чтобы не раздувать БД.
func (r *HistoryRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	if r == nil || r.DB == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from solve_history where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

// Package postgres persists the per-room message log in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	publicchat "github.com/isolophiliabusiness/Public-Chat"
)

// Postgres provides storage in PostgreSQL. It implements publicchat.Store.
type Postgres struct {
	bun       *bun.DB
	retention publicchat.RetentionPolicy
}

// Connect connects to the database and pings it to ensure the connection is
// working.
func Connect(ctx context.Context, connStr string, retention publicchat.RetentionPolicy) (*Postgres, error) {
	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db := bun.NewDB(sqlDB, pgdialect.New())
	return &Postgres{
		bun:       db,
		retention: retention,
	}, nil
}

// CreateSchema creates the messages table and its paging index when missing.
func (pg *Postgres) CreateSchema(ctx context.Context) error {
	if _, err := pg.bun.NewCreateTable().
		Model((*message)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if _, err := pg.bun.NewCreateIndex().
		Model((*message)(nil)).
		Index("messages_room_time_idx").
		IfNotExists().
		Column("room", "time_ms", "seq").
		Exec(ctx); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

func (pg *Postgres) Append(ctx context.Context, room, author, text string, ts int64) (publicchat.Message, error) {
	text, err := publicchat.ValidateText(text)
	if err != nil {
		return publicchat.Message{}, err
	}
	m := &message{
		ID:        uuid.NewString(),
		Room:      room,
		Author:    author,
		Text:      text,
		Time:      ts,
		Reactions: map[string][]string{},
		Status:    publicchat.StatusServer.String(),
	}
	if _, err := pg.bun.NewInsert().Model(m).Returning("seq").Exec(ctx); err != nil {
		return publicchat.Message{}, fmt.Errorf("insert: %w", err)
	}
	if err := pg.trim(ctx, room); err != nil {
		return publicchat.Message{}, fmt.Errorf("trim: %w", err)
	}
	return m.chatMessage(), nil
}

func (pg *Postgres) Find(ctx context.Context, id string) (publicchat.Message, error) {
	var m message
	err := pg.bun.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return publicchat.Message{}, publicchat.ErrNotFound
	}
	if err != nil {
		return publicchat.Message{}, fmt.Errorf("scan: %w", err)
	}
	return m.chatMessage(), nil
}

// Page returns up to limit messages strictly older than beforeID, oldest
// first. An unknown or out-of-room beforeID (trimmed away, or never
// persisted) yields an empty page: the cursor subquery matches nothing.
func (pg *Postgres) Page(ctx context.Context, room, beforeID string, limit int) ([]publicchat.Message, error) {
	var rows []message
	if err := pg.pageQuery(&rows, room, beforeID, limit).Scan(ctx); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	out := make([]publicchat.Message, len(rows))
	for i, m := range rows {
		out[len(rows)-1-i] = m.chatMessage()
	}
	return out, nil
}

func (pg *Postgres) pageQuery(rows *[]message, room, beforeID string, limit int) *bun.SelectQuery {
	q := pg.bun.NewSelect().
		Model(rows).
		Where("room = ?", room).
		OrderExpr("time_ms DESC, seq DESC").
		Limit(limit)
	if beforeID != "" {
		q = q.Where("(time_ms, seq) < (SELECT time_ms, seq FROM messages WHERE id = ? AND room = ?)", beforeID, room)
	}
	return q
}

// Update rewrites a message row in place. The row-level write serializes
// concurrent mutations of the same message.
func (pg *Postgres) Update(ctx context.Context, msg publicchat.Message) error {
	res, err := pg.bun.NewUpdate().
		Model(rowFrom(msg)).
		Column("reactions", "status").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return publicchat.ErrNotFound
	}
	return nil
}

// trim drops the oldest rows once a room's log exceeds the retention
// ceiling, leaving the newest ceiling-trimBatch.
func (pg *Postgres) trim(ctx context.Context, room string) error {
	if pg.retention.Ceiling <= 0 {
		return nil
	}
	count, err := pg.bun.NewSelect().
		Model((*message)(nil)).
		Where("room = ?", room).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}
	if count <= pg.retention.Ceiling {
		return nil
	}
	keep := pg.retention.Ceiling - pg.retention.TrimBatch
	if keep < 0 {
		keep = 0
	}
	_, err = pg.bun.NewDelete().
		Model((*message)(nil)).
		Where("id IN (SELECT id FROM messages WHERE room = ? ORDER BY time_ms ASC, seq ASC LIMIT ?)", room, count-keep).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

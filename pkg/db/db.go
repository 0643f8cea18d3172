package db

import (
	"context"
	_ "embed"
	"fmt"

	"ttc-bot/pkg/stats"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

const (
	selectEmojiCountsQuery     = "SELECT user_id, emoji_name, count FROM emoji_counts;"
	selectMessageCountsQuery   = "SELECT user_id, count FROM message_counts;"
	selectChannelProgressQuery = "SELECT channel_id, message_id, timestamp FROM channel_progress;"
)

// Not TRUNCATE: truncated tables read as empty in transactions whose snapshot
// predates the truncation.
var clearQueries = []string{
	"DELETE FROM emoji_counts;",
	"DELETE FROM message_counts;",
	"DELETE FROM channel_progress;",
}

// readTxOptions makes the three table reads of Load see a single committed state.
var readTxOptions = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// globalUserID stores guild totals. Discord never hands out snowflake 0.
const globalUserID int64 = 0

type DB struct {
	pool *pgxpool.Pool
}

func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

// Migrate creates the cache tables if they do not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, schema)
	return err
}

type emojiCountRow struct {
	UserID    int64  `db:"user_id"`
	EmojiName string `db:"emoji_name"`
	Count     int64  `db:"count"`
}

type messageCountRow struct {
	UserID int64 `db:"user_id"`
	Count  int64 `db:"count"`
}

type channelProgressRow struct {
	ChannelID int64 `db:"channel_id"`
	MessageID int64 `db:"message_id"`
	Timestamp int64 `db:"timestamp"`
}

func (db *DB) Load(ctx context.Context) (*stats.Snapshot, error) {
	var snapshot *stats.Snapshot
	err := db.withTx(ctx, readTxOptions, func(tx pgx.Tx) error {
		rows, _ := tx.Query(ctx, selectEmojiCountsQuery)
		emojiRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[emojiCountRow])
		if err != nil {
			return fmt.Errorf("select emoji counts: %w", err)
		}
		rows, _ = tx.Query(ctx, selectMessageCountsQuery)
		messageRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[messageCountRow])
		if err != nil {
			return fmt.Errorf("select message counts: %w", err)
		}
		rows, _ = tx.Query(ctx, selectChannelProgressQuery)
		progressRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[channelProgressRow])
		if err != nil {
			return fmt.Errorf("select channel progress: %w", err)
		}
		snapshot = toSnapshot(emojiRows, messageRows, progressRows)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (db *DB) Replace(ctx context.Context, s *stats.Snapshot) error {
	emojiRows, messageRows, progressRows := fromSnapshot(s)
	return db.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, query := range clearQueries {
			if _, err := tx.Exec(ctx, query); err != nil {
				return fmt.Errorf("clear tables: %w", err)
			}
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"emoji_counts"}, []string{"user_id", "emoji_name", "count"},
			pgx.CopyFromSlice(len(emojiRows), func(i int) ([]any, error) {
				r := emojiRows[i]
				return []any{r.UserID, r.EmojiName, r.Count}, nil
			})); err != nil {
			return fmt.Errorf("insert emoji counts: %w", err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"message_counts"}, []string{"user_id", "count"},
			pgx.CopyFromSlice(len(messageRows), func(i int) ([]any, error) {
				r := messageRows[i]
				return []any{r.UserID, r.Count}, nil
			})); err != nil {
			return fmt.Errorf("insert message counts: %w", err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"channel_progress"}, []string{"channel_id", "message_id", "timestamp"},
			pgx.CopyFromSlice(len(progressRows), func(i int) ([]any, error) {
				r := progressRows[i]
				return []any{r.ChannelID, r.MessageID, r.Timestamp}, nil
			})); err != nil {
			return fmt.Errorf("insert channel progress: %w", err)
		}
		return nil
	})
}

// withTx commits when fn succeeds and rolls back otherwise.
func (db *DB) withTx(ctx context.Context, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	tx, err := db.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func scopeToUserID(scope stats.Scope) int64 {
	if id, ok := scope.UserID(); ok {
		return int64(id)
	}
	return globalUserID
}

func userIDToScope(userID int64) stats.Scope {
	if userID == globalUserID {
		return stats.Global
	}
	return stats.User(snowflake.ID(userID))
}

func toSnapshot(emojiRows []emojiCountRow, messageRows []messageCountRow, progressRows []channelProgressRow) *stats.Snapshot {
	s := stats.NewSnapshot()
	for _, r := range emojiRows {
		s.EmojiCounts[stats.EmojiKey{Scope: userIDToScope(r.UserID), Emoji: r.EmojiName}] = r.Count
	}
	for _, r := range messageRows {
		s.MessageCounts[userIDToScope(r.UserID)] = r.Count
	}
	for _, r := range progressRows {
		s.Progress[snowflake.ID(r.ChannelID)] = stats.Checkpoint{
			MessageID: snowflake.ID(r.MessageID),
			Timestamp: r.Timestamp,
		}
	}
	return s
}

func fromSnapshot(s *stats.Snapshot) ([]emojiCountRow, []messageCountRow, []channelProgressRow) {
	emojiRows := make([]emojiCountRow, 0, len(s.EmojiCounts))
	for k, n := range s.EmojiCounts {
		emojiRows = append(emojiRows, emojiCountRow{UserID: scopeToUserID(k.Scope), EmojiName: k.Emoji, Count: n})
	}
	messageRows := make([]messageCountRow, 0, len(s.MessageCounts))
	for k, n := range s.MessageCounts {
		messageRows = append(messageRows, messageCountRow{UserID: scopeToUserID(k), Count: n})
	}
	progressRows := make([]channelProgressRow, 0, len(s.Progress))
	for id, cp := range s.Progress {
		progressRows = append(progressRows, channelProgressRow{
			ChannelID: int64(id),
			MessageID: int64(cp.MessageID),
			Timestamp: cp.Timestamp,
		})
	}
	return emojiRows, messageRows, progressRows
}

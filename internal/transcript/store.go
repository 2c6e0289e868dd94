// Package transcript persists conversation turns in SQLite so a conversation
// can be printed or resumed later.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/moorebrett0/concierge/internal/conversation"
)

// Summary describes one stored conversation.
type Summary struct {
	ID           string
	Turns        int
	LastActivity time.Time
}

// Store is a conversation.Journal backed by SQLite.
type Store struct {
	db *gorm.DB
}

var _ conversation.Journal = (*Store)(nil)

// Open opens (creating if needed) the transcript database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating transcript dir: %w", err)
	}
	gdb, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("opening transcript db: %w", err)
	}

	s := &Store{db: gdb}
	if err := s.init(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	for _, stmt := range []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
	} {
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("configuring transcript db: %w", err)
		}
	}
	if err := s.db.AutoMigrate(&TurnRow{}); err != nil {
		return fmt.Errorf("migrating transcript db: %w", err)
	}
	if err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_turns_created_at ON turns(created_at DESC);`).Error; err != nil {
		return fmt.Errorf("migrating transcript db: %w", err)
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record stores turn t at position seq. Recording the same position twice
// keeps the first write.
func (s *Store) Record(conversationID string, seq int, t conversation.Turn) error {
	if conversationID == "" {
		return errors.New("conversation id is required")
	}
	row, err := toRow(conversationID, seq, t)
	if err != nil {
		return err
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "seq"}},
		DoNothing: true,
	}).Create(&row).Error
}

// Load returns the turns of a conversation in order. An unknown id yields an
// empty slice.
func (s *Store) Load(ctx context.Context, conversationID string) ([]conversation.Turn, error) {
	var rows []TurnRow
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading conversation %s: %w", conversationID, err)
	}

	turns := make([]conversation.Turn, 0, len(rows))
	for _, row := range rows {
		t, err := fromRow(row)
		if err != nil {
			return nil, fmt.Errorf("conversation %s turn %d: %w", conversationID, row.Seq, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// List returns the most recently active conversations first.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []struct {
		ConversationID string
		Turns          int
		LastAt         int64
	}
	err := s.db.WithContext(ctx).
		Model(&TurnRow{}).
		Select("conversation_id, COUNT(*) AS turns, MAX(created_at) AS last_at").
		Group("conversation_id").
		Order("last_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, Summary{
			ID:           row.ConversationID,
			Turns:        row.Turns,
			LastActivity: time.UnixMilli(row.LastAt).UTC(),
		})
	}
	return out, nil
}

func toRow(conversationID string, seq int, t conversation.Turn) (TurnRow, error) {
	row := TurnRow{
		ConversationID: conversationID,
		Seq:            seq,
		Role:           string(t.Role),
		Text:           t.Text,
		CreatedAt:      t.At.UnixMilli(),
	}
	switch {
	case t.Call != nil:
		args, err := json.Marshal(t.Call.Args)
		if err != nil {
			return row, fmt.Errorf("encoding call arguments: %w", err)
		}
		row.Role = kindCall
		row.CallID = t.Call.ID
		row.ToolName = t.Call.Name
		row.ArgsJSON = string(args)
	case t.Result != nil:
		content, err := json.Marshal(t.Result.Content)
		if err != nil {
			content, _ = json.Marshal(fmt.Sprint(t.Result.Content))
		}
		row.Role = kindResult
		row.CallID = t.Result.CallID
		row.ToolName = t.Result.Name
		row.ContentJSON = string(content)
		row.IsError = t.Result.IsError
		row.Reason = t.Result.Reason
	}
	return row, nil
}

func fromRow(row TurnRow) (conversation.Turn, error) {
	at := time.UnixMilli(row.CreatedAt)
	switch row.Role {
	case kindCall:
		var args map[string]any
		if row.ArgsJSON != "" {
			if err := json.Unmarshal([]byte(row.ArgsJSON), &args); err != nil {
				return conversation.Turn{}, fmt.Errorf("decoding call arguments: %w", err)
			}
		}
		t := conversation.ModelCall(conversation.ToolCall{ID: row.CallID, Name: row.ToolName, Args: args})
		t.At = at
		return t, nil
	case kindResult:
		var content any
		if row.ContentJSON != "" {
			if err := json.Unmarshal([]byte(row.ContentJSON), &content); err != nil {
				return conversation.Turn{}, fmt.Errorf("decoding result content: %w", err)
			}
		}
		t := conversation.ToolOutput(conversation.ToolResult{
			CallID:  row.CallID,
			Name:    row.ToolName,
			Content: content,
			IsError: row.IsError,
			Reason:  row.Reason,
		})
		t.At = at
		return t, nil
	case string(conversation.RoleUser), string(conversation.RoleModel):
		return conversation.Turn{Role: conversation.Role(row.Role), Text: row.Text, At: at}, nil
	default:
		return conversation.Turn{}, fmt.Errorf("unknown role %q", row.Role)
	}
}

package transcript

// TurnRow is one persisted conversation turn.
type TurnRow struct {
	ID             int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ConversationID string `gorm:"column:conversation_id;not null;uniqueIndex:idx_turns_conversation_seq"`
	Seq            int    `gorm:"column:seq;not null;uniqueIndex:idx_turns_conversation_seq"`
	Role           string `gorm:"column:role;not null"`
	Text           string `gorm:"column:text;not null;default:''"`
	CallID         string `gorm:"column:call_id;not null;default:''"`
	ToolName       string `gorm:"column:tool_name;not null;default:''"`
	ArgsJSON       string `gorm:"column:args_json;not null;default:''"`
	ContentJSON    string `gorm:"column:content_json;not null;default:''"`
	IsError        bool   `gorm:"column:is_error;not null;default:false"`
	Reason         string `gorm:"column:reason;not null;default:''"`
	CreatedAt      int64  `gorm:"column:created_at;not null;default:0"`
}

func (TurnRow) TableName() string { return "turns" }

// kind values stored in Role for call and result turns.
const (
	kindCall   = "model_call"
	kindResult = "tool_result"
)

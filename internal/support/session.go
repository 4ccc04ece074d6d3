// Package support implements the support intake conversation: the per-user
// session state machine, ticket delivery to the staff chat, relaying staff
// replies and the closing feedback step.
package support

import (
	"time"

	"github.com/m3rciful/supportbot/internal/support/ticket"
)

// State is the conversation phase of a session.
type State int

const (
	Idle State = iota
	AwaitingCategory
	CollectingDetails
	AwaitingStaffReply
	AwaitingFeedback
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingCategory:
		return "awaiting_category"
	case CollectingDetails:
		return "collecting_details"
	case AwaitingStaffReply:
		return "awaiting_staff_reply"
	case AwaitingFeedback:
		return "awaiting_feedback"
	default:
		return "unknown"
	}
}

// postSubmit reports whether the session already produced a ticket.
func (s State) postSubmit() bool {
	return s == AwaitingStaffReply || s == AwaitingFeedback
}

// Variant selects what CollectingDetails accepts.
type Variant int

const (
	// VariantMedia accepts text, photos and videos.
	VariantMedia Variant = iota
	// VariantText accepts text only; media is ignored.
	VariantText
)

func variantFor(c ticket.Category) Variant {
	if c == ticket.CategoryApplication {
		return VariantMedia
	}
	return VariantText
}

// Session is the in-progress conversation of one user.
type Session struct {
	State       State
	Category    ticket.Category
	Description string
	Attachments []ticket.Attachment
	DisplayName string
	// PendingUI holds ids of acknowledgement messages that are retracted when superseded.
	PendingUI []int
	ChatID    int64
	Variant   Variant
	// PromptID is the message carrying the session's inline controls.
	PromptID  int
	StartedAt time.Time
}

// ownsPrompt reports whether a click on messageID targets the session's
// current prompt. Clicks on prompts of an earlier /start do not.
func (s *Session) ownsPrompt(messageID int) bool {
	return s.PromptID == 0 || messageID == s.PromptID
}

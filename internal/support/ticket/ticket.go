// Package ticket renders submitted conversations for the staff chat and
// recovers the originating user from staff replies.
package ticket

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category is the problem type picked by the user.
type Category string

const (
	// CategoryApplication covers problems applying the product; media is collected.
	CategoryApplication Category = "application"
	// CategoryOther is any other problem; only text is collected.
	CategoryOther Category = "other"
)

// ParseCategory maps a button payload onto a category. Anything that is not
// the application payload is treated as CategoryOther.
func ParseCategory(payload string) Category {
	if strings.TrimSpace(payload) == string(CategoryApplication) {
		return CategoryApplication
	}
	return CategoryOther
}

// Title is the human readable category label.
func (c Category) Title() string {
	switch c {
	case CategoryApplication:
		return "Screen protector application problem"
	case CategoryOther:
		return "Other problem"
	default:
		return string(c)
	}
}

// Media kinds.
const (
	KindPhoto = "photo"
	KindVideo = "video"
)

// Attachment is a file the user sent, referenced by its Telegram file id.
type Attachment struct {
	Kind string
	Ref  string
}

// Ticket is a snapshot of a conversation at submission.
type Ticket struct {
	ID          string
	UserID      int64
	DisplayName string
	Category    Category
	Description string
	Attachments []Attachment
	CreatedAt   time.Time
}

const notProvided = "not provided"

// New copies the given fields into a Ticket; attachments are cloned.
func New(userID int64, displayName string, category Category, description string, attachments []Attachment, now time.Time) Ticket {
	return Ticket{
		ID:          ID(userID, now),
		UserID:      userID,
		DisplayName: displayName,
		Category:    category,
		Description: description,
		Attachments: append([]Attachment(nil), attachments...),
		CreatedAt:   now,
	}
}

// ID derives a ticket id from the user id and a UTC month-day-hour-minute suffix.
func ID(userID int64, now time.Time) string {
	return strconv.FormatInt(userID, 10) + "-" + now.UTC().Format("01021504")
}

// Render produces the staff-facing ticket text. The "ID: " and "From: @"
// markers are parsed back by QuoteResolver.
func Render(t Ticket) string {
	description := strings.TrimSpace(t.Description)
	if description == "" {
		description = notProvided
	}
	attachments := notProvided
	if n := len(t.Attachments); n > 0 {
		attachments = strconv.Itoa(n)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s #%s\n", headerMarker, t.ID)
	fmt.Fprintf(&b, "🆔 ID: %d\n", t.UserID)
	fmt.Fprintf(&b, "👤 From: @%s\n", handle(t.DisplayName, t.UserID))
	fmt.Fprintf(&b, "📌 Category: %s\n", t.Category.Title())
	fmt.Fprintf(&b, "📝 Description: %s\n", description)
	fmt.Fprintf(&b, "📎 Attachments: %s\n\n", attachments)
	b.WriteString("💬 To reply:\n")
	b.WriteString("1. Reply to this message with text\n")
	fmt.Fprintf(&b, "2. Send %s%d <text>", CommandPrefix, t.UserID)
	return b.String()
}

// Caption labels a forwarded attachment. It carries the ID marker so native
// replies to the attachment correlate as well.
func Caption(a Attachment, displayName string, userID int64) string {
	icon, label := "📷", "Photo"
	if a.Kind == KindVideo {
		icon, label = "🎥", "Video"
	}
	return fmt.Sprintf("%s %s from @%s (ID: %d)", icon, label, handle(displayName, userID), userID)
}

// handle returns a display name usable after "@" with no whitespace.
func handle(displayName string, userID int64) string {
	name := strings.Join(strings.Fields(strings.TrimPrefix(displayName, "@")), "_")
	if name == "" {
		return "id" + strconv.FormatInt(userID, 10)
	}
	return name
}

package support

import (
	"fmt"
	"strconv"

	"github.com/m3rciful/supportbot/core/telegram/gateway"
	"github.com/m3rciful/supportbot/internal/support/ticket"
)

// Callback actions.
const (
	ActionCategory = "category"
	ActionTicket   = "ticket"
	ActionFeedback = "feedback"
	ActionReply    = "reply"
)

// Payloads of ActionTicket and ActionFeedback.
const (
	PayloadSend     = "send"
	PayloadCancel   = "cancel"
	PayloadThanks   = "thanks"
	PayloadMoreHelp = "more_help"
)

const (
	textGreeting          = "👋 Hello! I'm the support bot. Choose the type of problem:"
	textPromptMedia       = "📎 Send photos or videos of the problem and a description, then press «Send»"
	textPromptText        = "✍️ Describe your problem, then press «Send»"
	textPhotoAccepted     = "📷 Photo received. Add more files or a description, then press «Send»"
	textVideoAccepted     = "🎥 Video received. Add more files or a description, then press «Send»"
	textDescMediaAccepted = "📝 Description received. Add photos/videos or press «Send»"
	textDescTextAccepted  = "📝 Description received. Press «Send» to finish"
	textAccepted          = "✅ Your request has been received! We will answer shortly."
	textSendFailed        = "❌ Sending failed. Please try again later: /start"
	textSendCancelled     = "🚫 Sending cancelled. Start over: /start"
	textAborted           = "❌ Conversation aborted. Start over: /start"
	textNeedStart         = "Please start with /start"
	textRestart           = "⚠️ Something went wrong. Please start over: /start"
	textStaleClick        = "This button is no longer active"
	textThanksUser        = "🙏 Thanks for the feedback! If you have more questions, send /start"
	textMoreHelpUser      = "🛎 We will contact you to clarify the details. For a new question send /start"

	textBadCommand  = "❌ Invalid command format. Use: /reply_12345 Your text"
	textEmptyBody   = "❌ Reply text is missing"
	textNoRecipient = "❌ Could not find the user in the quoted message"
	textStaffFailed = "⚠️ The reply could not be processed, please try again"
)

func replyToUserText(body string) string {
	return "📩 Support reply:\n\n" + body
}

func replySentText(userID int64) string {
	return fmt.Sprintf("✅ Reply sent to user %d", userID)
}

func replyFailedText(userID int64) string {
	return fmt.Sprintf("❌ Could not deliver the reply to user %d", userID)
}

func attachmentFailedText(displayName string, userID int64) string {
	name := displayName
	if name == "" {
		name = fmt.Sprintf("id%d", userID)
	}
	return fmt.Sprintf("⚠ Could not forward an attachment from @%s (ID: %d)", name, userID)
}

func feedbackStaffText(userID int64, payload string) string {
	if payload == PayloadThanks {
		return fmt.Sprintf("✅ User %d confirmed the problem is solved (ID: %d)", userID, userID)
	}
	return fmt.Sprintf("⚠️ User %d asked for more help (ID: %d)", userID, userID)
}

func pointerSetText(userID int64) string {
	return fmt.Sprintf("Send your reply to user %d as the next message", userID)
}

func categoryKeyboard() gateway.Keyboard {
	return gateway.Keyboard{
		{{Text: "Couldn't apply the screen protector", Action: ActionCategory, Payload: string(ticket.CategoryApplication)}},
		{{Text: "I have a different problem", Action: ActionCategory, Payload: string(ticket.CategoryOther)}},
	}
}

func submitKeyboard() gateway.Keyboard {
	return gateway.Keyboard{
		{{Text: "Send", Action: ActionTicket, Payload: PayloadSend}},
		{{Text: "Cancel", Action: ActionTicket, Payload: PayloadCancel}},
	}
}

func feedbackKeyboard() gateway.Keyboard {
	return gateway.Keyboard{
		{{Text: "✅ Problem solved", Action: ActionFeedback, Payload: PayloadThanks}},
		{{Text: "🆘 Need help", Action: ActionFeedback, Payload: PayloadMoreHelp}},
	}
}

func staffTicketKeyboard(userID int64) gateway.Keyboard {
	return gateway.Keyboard{
		{{Text: "💬 Reply", Action: ActionReply, Payload: strconv.FormatInt(userID, 10)}},
	}
}

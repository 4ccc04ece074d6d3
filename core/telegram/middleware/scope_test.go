package middleware

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestScopeAllows(t *testing.T) {
	private := &tele.Chat{ID: 10, Type: tele.ChatPrivate}
	staff := &tele.Chat{ID: -100, Type: tele.ChatSuperGroup}
	other := &tele.Chat{ID: -200, Type: tele.ChatGroup}

	cases := []struct {
		name  string
		opts  ScopeOptions
		chat  *tele.Chat
		allow bool
	}{
		{"any nil chat", ScopeOptions{}, nil, true},
		{"private ok", ScopeOptions{Scope: ScopePrivate}, private, true},
		{"private rejects group", ScopeOptions{Scope: ScopePrivate}, staff, false},
		{"private rejects nil", ScopeOptions{Scope: ScopePrivate}, nil, false},
		{"staff ok", ScopeOptions{Scope: ScopeStaff, StaffChatID: -100}, staff, true},
		{"staff rejects other group", ScopeOptions{Scope: ScopeStaff, StaffChatID: -100}, other, false},
		{"staff unset", ScopeOptions{Scope: ScopeStaff}, staff, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.opts.Allows(tc.chat); got != tc.allow {
				t.Fatalf("Allows = %v, want %v", got, tc.allow)
			}
		})
	}
}

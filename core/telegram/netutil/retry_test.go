package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"canceled", fmt.Errorf("send: %w", context.Canceled), ""},
		{"plain", errors.New("bad request"), ""},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("no route")}, "dial"},
		{"refused", &url.Error{Op: "Post", URL: "https://api", Err: &net.OpError{Op: "read", Err: syscall.ECONNREFUSED}}, "refused"},
		{"reset", fmt.Errorf("wrap: %w", syscall.ECONNRESET), "reset"},
		{"dns timeout", &net.DNSError{Err: "timeout", IsTimeout: true}, "dns"},
		{"dns not found", &net.DNSError{Err: "no such host", IsNotFound: true}, ""},
		{"url timeout", &url.Error{Op: "Post", URL: "https://api", Err: timeoutErr{}}, "timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Reason(tc.err); got != tc.want {
				t.Fatalf("Reason = %q, want %q", got, tc.want)
			}
			if ShouldRetry(tc.err) != (tc.want != "") {
				t.Fatalf("ShouldRetry disagrees with Reason for %v", tc.err)
			}
		})
	}
}

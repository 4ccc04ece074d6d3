package telegram

import (
	"net"
	"strconv"
	"time"

	coreconfig "github.com/m3rciful/supportbot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultPollTimeout = 10 * time.Second

// allowedUpdates limits delivery to the update kinds the bot routes.
var allowedUpdates = []string{"message", "callback_query"}

// PollerOptions configures BuildPoller.
type PollerOptions struct {
	// Webhook selects webhook delivery; otherwise updates are long-polled.
	Webhook     bool
	PollTimeout time.Duration
	Listen      string
	Port        int
	PublicURL   string
	Secret      string
}

// PollerOptionsFrom maps a normalized config onto PollerOptions.
func PollerOptionsFrom(cfg *coreconfig.Config) PollerOptions {
	return PollerOptions{
		Webhook:     cfg.Telegram.RunMode == coreconfig.RunModeWebhook,
		PollTimeout: pollTimeout(cfg.Telegram.LongPollTimeoutSeconds),
		Listen:      cfg.Webhook.Listen,
		Port:        cfg.Webhook.Port,
		PublicURL:   cfg.Webhook.URL,
		Secret:      cfg.Webhook.Secret,
	}
}

// BuildPoller returns the update source described by opts.
func BuildPoller(opts PollerOptions) tele.Poller {
	if opts.Webhook {
		return &tele.Webhook{
			Listen:         net.JoinHostPort(opts.Listen, strconv.Itoa(opts.Port)),
			SecretToken:    opts.Secret,
			Endpoint:       &tele.WebhookEndpoint{PublicURL: opts.PublicURL},
			AllowedUpdates: allowedUpdates,
		}
	}
	timeout := opts.PollTimeout
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	return &tele.LongPoller{Timeout: timeout, AllowedUpdates: allowedUpdates}
}

func pollTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		return defaultPollTimeout
	}
	return time.Duration(seconds) * time.Second
}

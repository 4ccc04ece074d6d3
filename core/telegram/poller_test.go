package telegram

import (
	"testing"
	"time"

	coreconfig "github.com/m3rciful/supportbot/core/config"

	tele "gopkg.in/telebot.v4"
)

func TestBuildPollerLongPoll(t *testing.T) {
	lp, ok := BuildPoller(PollerOptions{}).(*tele.LongPoller)
	if !ok {
		t.Fatal("expected long poller")
	}
	if lp.Timeout != defaultPollTimeout || len(lp.AllowedUpdates) != 2 {
		t.Fatalf("poller = %+v", lp)
	}
	lp, _ = BuildPoller(PollerOptions{PollTimeout: 25 * time.Second}).(*tele.LongPoller)
	if lp == nil || lp.Timeout != 25*time.Second {
		t.Fatalf("custom timeout not applied: %+v", lp)
	}
}

func TestBuildPollerWebhookFromConfig(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeWebhook
	cfg.Webhook = coreconfig.WebhookConfig{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example.com/hook", Secret: "s3cret"}

	wh, ok := BuildPoller(PollerOptionsFrom(cfg)).(*tele.Webhook)
	if !ok {
		t.Fatal("expected webhook poller")
	}
	if wh.Listen != "0.0.0.0:8443" || wh.Endpoint.PublicURL != "https://bot.example.com/hook" || wh.SecretToken != "s3cret" {
		t.Fatalf("webhook = %+v", wh)
	}
}

func TestPollTimeout(t *testing.T) {
	if pollTimeout(0) != defaultPollTimeout || pollTimeout(-3) != defaultPollTimeout {
		t.Fatal("non-positive seconds should use the default")
	}
	if pollTimeout(30) != 30*time.Second {
		t.Fatal("seconds not converted")
	}
}

package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc", RunMode: "longpoll"},
		Services: ServicesConfig{
			PriceURL:   "https://example.com/v1/price",
			LicenseURL: "https://example.com/v1/license/veisher",
			PayURL:     "https://example.com/vip/pay/result",
		},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = ""
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, expected longpoll default", cfg.Telegram.RunMode)
	}
}

func TestNormalizeRequiresToken(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Token = ""
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestNormalizeRequiresServiceURLs(t *testing.T) {
	for _, field := range []string{"price", "license", "pay"} {
		cfg := validConfig()
		switch field {
		case "price":
			cfg.Services.PriceURL = ""
		case "license":
			cfg.Services.LicenseURL = ""
		case "pay":
			cfg.Services.PayURL = ""
		}
		err := Normalize(cfg)
		if err == nil {
			t.Fatalf("expected error for missing %s url", field)
		}
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("error %q does not mention %s url", err, field)
		}
	}
}

func TestNormalizeWebhookRequiresListener(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for webhook mode without webhook settings")
	}

	cfg.Webhook = WebhookConfig{URL: "https://bot.example.com", Listen: "0.0.0.0", Port: 8443}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
}

package config

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	appErrors "github.com/practiceops/smsbridge-backend/internal/errors"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SMS_BRIDGE_HOST", "localhost")
	t.Setenv("SMS_API_KEY", "secret-key")
	t.Setenv("PRACTICE_PHONE", "035550100")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	for _, key := range []string{
		"DB_HOST", "DB_PORT", "DB_NAME", "SMS_RELAY_PORT", "PHONE_AGENT_ADDR",
		"COUNTRY_CODE", "DEBUG_NUMBER", "SEND_SMS", "AWAIT_SEND_CONFIRMATION",
		"SEND_COOLDOWN_SECONDS", "DEDUP_GRANULARITY", "SMS_MARKER_DIR",
		"REMINDER_TEMPLATE_ONE_DAY", "BIRTHDAY_MESSAGE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RelayPort != "8585" {
		t.Errorf("RelayPort = %q, want the default", cfg.RelayPort)
	}
	if cfg.PhoneAgentAddr != "127.0.0.1:9521" {
		t.Errorf("PhoneAgentAddr = %q", cfg.PhoneAgentAddr)
	}
	if cfg.CountryCode != "64" {
		t.Errorf("CountryCode = %q", cfg.CountryCode)
	}
	if !cfg.SendEnabled {
		t.Error("sending defaults on")
	}
	if cfg.AwaitSendConfirm {
		t.Error("send confirmation defaults to fire-and-forget")
	}
	if cfg.CooldownWindow != 30*time.Second {
		t.Errorf("CooldownWindow = %s", cfg.CooldownWindow)
	}
	if cfg.DedupGranularity != time.Minute {
		t.Errorf("DedupGranularity = %s", cfg.DedupGranularity)
	}
	if cfg.MarkerDir != "msg_guids" {
		t.Errorf("MarkerDir = %q", cfg.MarkerDir)
	}
	if !strings.Contains(cfg.OneDayTemplate, "[date]") || !strings.Contains(cfg.OneDayTemplate, "[time]") {
		t.Errorf("default one-day template missing placeholders: %q", cfg.OneDayTemplate)
	}
	if !strings.Contains(cfg.OneDayTemplate, "reply YES") {
		t.Error("default templates must ask for a YES reply")
	}
	if cfg.DebugMode() {
		t.Error("debug mode requires DEBUG_NUMBER")
	}
	if cfg.RelayBaseURL() != "http://localhost:8585" {
		t.Errorf("RelayBaseURL = %q", cfg.RelayBaseURL())
	}
}

func TestLoadMissingRequired(t *testing.T) {
	for _, missing := range []string{"SMS_BRIDGE_HOST", "SMS_API_KEY", "PRACTICE_PHONE"} {
		setRequired(t)
		t.Setenv(missing, "")

		_, err := Load()
		if err == nil {
			t.Errorf("missing %s: expected an error", missing)
			continue
		}
		var confErr *appErrors.ErrConfiguration
		if !errors.As(err, &confErr) {
			t.Errorf("missing %s: error type %T", missing, err)
			continue
		}
		if confErr.Setting != missing {
			t.Errorf("missing %s: error names %s", missing, confErr.Setting)
		}
	}
}

func TestLoadUnresolvableBridgeHost(t *testing.T) {
	setRequired(t)
	t.Setenv("SMS_BRIDGE_HOST", "no-such-host.invalid")

	_, err := Load()
	var confErr *appErrors.ErrConfiguration
	if !errors.As(err, &confErr) || confErr.Setting != "SMS_BRIDGE_HOST" {
		t.Errorf("expected a bridge-host configuration error, got %v", err)
	}
}

func TestLoadBridgeMachineDetection(t *testing.T) {
	setRequired(t)
	hostname, err := os.Hostname()
	if err != nil {
		t.Fatal(err)
	}

	t.Setenv("SMS_BRIDGE_HOST", "localhost")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if strings.EqualFold(hostname, "localhost") != cfg.IsBridgeMachine {
		t.Errorf("IsBridgeMachine = %v for hostname %q", cfg.IsBridgeMachine, hostname)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SEND_SMS", "false")
	t.Setenv("DEBUG_NUMBER", "64210000001")
	t.Setenv("DEDUP_GRANULARITY", "5m")
	t.Setenv("SEND_COOLDOWN_SECONDS", "45")
	t.Setenv("REMINDER_TEMPLATE_ONE_DAY", "See you on [date] at [time], reply YES")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SendEnabled {
		t.Error("SEND_SMS=false must disable sending")
	}
	if !cfg.DebugMode() {
		t.Error("DEBUG_NUMBER must enable debug mode")
	}
	if cfg.DedupGranularity != 5*time.Minute {
		t.Errorf("DedupGranularity = %s", cfg.DedupGranularity)
	}
	if cfg.CooldownWindow != 45*time.Second {
		t.Errorf("CooldownWindow = %s", cfg.CooldownWindow)
	}
	if cfg.OneDayTemplate != "See you on [date] at [time], reply YES" {
		t.Errorf("OneDayTemplate = %q", cfg.OneDayTemplate)
	}
}

func TestGetDurationRejectsNonPositive(t *testing.T) {
	t.Setenv("DEDUP_GRANULARITY", "-2m")
	if d := getduration("DEDUP_GRANULARITY", time.Minute); d != time.Minute {
		t.Errorf("negative duration accepted: %s", d)
	}
	t.Setenv("DEDUP_GRANULARITY", "soon")
	if d := getduration("DEDUP_GRANULARITY", time.Minute); d != time.Minute {
		t.Errorf("garbage duration accepted: %s", d)
	}
}

// internal/config/config.go
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/practiceops/smsbridge-backend/internal/errors"
)

// Default reminder templates. [date] and [time] must render in these exact
// formats because the YES-confirmation automation parses them back out of the
// communication log.
const (
	defaultOneDayTemplate  = "Hi [NamePreferredOrFirst], a reminder of your dental appointment on [date] at [time]. Please reply YES to confirm."
	defaultOneWeekTemplate = "Hi [NamePreferredOrFirst], you have a dental appointment on [date] at [time]. Please reply YES to confirm."
	defaultTwoWeekTemplate = "Hi [NamePreferredOrFirst], you have a dental appointment coming up on [date] at [time]. Please reply YES to confirm."
	defaultBirthdayMsg     = "Happy Birthday [NamePreferredOrFirst] from all of us at the practice!"
)

type Config struct {
	// Database (consumed by internal/db)
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// Bridge topology
	BridgeHost      string // hostname of the machine holding the phone link
	IsBridgeMachine bool   // true when this process runs on BridgeHost
	RelayPort       string
	APIKey          string
	PhoneAgentAddr  string // tether agent TCP endpoint, bridge machine only

	// Sending behaviour
	PracticePhone        string
	CountryCode          string
	DebugNumber          string // if set, every outbound SMS goes here instead
	SendEnabled          bool
	AwaitSendConfirm     bool
	SendConfirmTimeout   time.Duration
	CooldownWindow       time.Duration
	DedupGranularity     time.Duration
	MarkerDir            string

	// Message templates
	OneDayTemplate  string
	OneWeekTemplate string
	TwoWeekTemplate string
	BirthdayMsg     string
}

// Load reads configuration from the environment. Callers load .env beforehand
// (godotenv in main). Missing required settings abort startup.
func Load() (*Config, error) {
	cfg := &Config{
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBName:     getenv("DB_NAME", "smsbridge"),

		BridgeHost:     os.Getenv("SMS_BRIDGE_HOST"),
		RelayPort:      getenv("SMS_RELAY_PORT", "8585"),
		APIKey:         os.Getenv("SMS_API_KEY"),
		PhoneAgentAddr: getenv("PHONE_AGENT_ADDR", "127.0.0.1:9521"),

		PracticePhone:      os.Getenv("PRACTICE_PHONE"),
		CountryCode:        getenv("COUNTRY_CODE", "64"),
		DebugNumber:        os.Getenv("DEBUG_NUMBER"),
		SendEnabled:        getbool("SEND_SMS", true),
		AwaitSendConfirm:   getbool("AWAIT_SEND_CONFIRMATION", false),
		SendConfirmTimeout: time.Duration(getint("SEND_CONFIRM_TIMEOUT_SECONDS", 10)) * time.Second,
		CooldownWindow:     time.Duration(getint("SEND_COOLDOWN_SECONDS", 30)) * time.Second,
		DedupGranularity:   getduration("DEDUP_GRANULARITY", time.Minute),
		MarkerDir:          getenv("SMS_MARKER_DIR", "msg_guids"),

		OneDayTemplate:  getenv("REMINDER_TEMPLATE_ONE_DAY", defaultOneDayTemplate),
		OneWeekTemplate: getenv("REMINDER_TEMPLATE_ONE_WEEK", defaultOneWeekTemplate),
		TwoWeekTemplate: getenv("REMINDER_TEMPLATE_TWO_WEEK", defaultTwoWeekTemplate),
		BirthdayMsg:     getenv("BIRTHDAY_MESSAGE", defaultBirthdayMsg),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, appErrors.NewConfiguration("hostname", err.Error())
	}
	cfg.IsBridgeMachine = strings.EqualFold(hostname, cfg.BridgeHost)

	return cfg, nil
}

func (c *Config) validate() error {
	if c.BridgeHost == "" {
		return appErrors.NewConfiguration("SMS_BRIDGE_HOST", "not set")
	}
	if c.APIKey == "" {
		return appErrors.NewConfiguration("SMS_API_KEY", "not set")
	}
	if c.PracticePhone == "" {
		return appErrors.NewConfiguration("PRACTICE_PHONE", "not set")
	}
	if _, err := net.LookupHost(c.BridgeHost); err != nil {
		return appErrors.NewConfiguration("SMS_BRIDGE_HOST",
			fmt.Sprintf("cannot resolve %q: %v", c.BridgeHost, err))
	}
	return nil
}

// RelayBaseURL is where non-bridge machines reach the relay server.
func (c *Config) RelayBaseURL() string {
	return fmt.Sprintf("http://%s:%s", c.BridgeHost, c.RelayPort)
}

func (c *Config) DebugMode() bool {
	return c.DebugNumber != ""
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

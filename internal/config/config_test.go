package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var configKeys = []string{
	"APP_PORT", "STORE_DRIVER", "MONGODB_URI", "MONGODB_DB_NAME", "MONGODB_TRANSACTIONS",
	"JWT_SECRET", "REMINDER_CRON_SCHEDULE", "TIMEZONE", "RESEND_API_KEY", "EMAIL_FROM",
	"WHATSAPP_TOKEN", "WHATSAPP_PHONE_NUMBER_ID", "WHATSAPP_BASE_URL", "WHATSAPP_API_VERSION",
	"WHATSAPP_REMINDER_TO", "GOOGLE_SHEETS_CREDENTIALS_PATH", "GOOGLE_SHEET_DATABASE_ID",
}

// clearEnv blanks every key so getenvWithDefault falls back and godotenv does not override.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func writeEnvFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.MongoDB.Driver != DriverMongoDB || cfg.MongoDB.DBName != "farmer" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.MongoDB.Transactions {
		t.Fatalf("transactions should default to true")
	}
	if cfg.Reminders.CronSchedule != "0 7 * * *" || cfg.Reminders.Timezone != "Africa/Conakry" {
		t.Fatalf("unexpected reminder defaults: %+v", cfg.Reminders)
	}
	if cfg.Email.Enabled() || cfg.WhatsApp.Enabled() || cfg.Sheets.Enabled() {
		t.Fatalf("optional channels should be disabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	for _, key := range configKeys {
		os.Unsetenv(key)
	}
	path := writeEnvFile(t,
		"JWT_SECRET=from-file",
		"STORE_DRIVER=memory",
		"MONGODB_TRANSACTIONS=false",
		"RESEND_API_KEY=re_123",
		"TIMEZONE=UTC",
	)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-file" || cfg.MongoDB.Driver != DriverMemory || cfg.MongoDB.Transactions {
		t.Fatalf("env file not applied: %+v", cfg)
	}
	if !cfg.Email.Enabled() {
		t.Fatalf("email should be enabled")
	}
	loc, err := cfg.Reminders.Location()
	if err != nil || loc.String() != "UTC" {
		t.Fatalf("unexpected location %v, %v", loc, err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "8080"},
			MongoDB:   MongoDBConfig{Driver: DriverMongoDB, URI: "mongodb://localhost", DBName: "farmer"},
			Auth:      AuthConfig{JWTSecret: "secret"},
			Reminders: RemindersConfig{CronSchedule: "0 7 * * *", Timezone: "UTC"},
			WhatsApp:  WhatsAppConfig{BaseURL: "https://graph.facebook.com", APIVersion: "v20.0"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "unknown driver", mutate: func(c *Config) { c.MongoDB.Driver = "sqlite" }, wantErr: "STORE_DRIVER"},
		{name: "memory needs no uri", mutate: func(c *Config) { c.MongoDB = MongoDBConfig{Driver: DriverMemory} }},
		{name: "bad timezone", mutate: func(c *Config) { c.Reminders.Timezone = "Mars/Olympus" }, wantErr: "TIMEZONE"},
		{name: "whatsapp without phone", mutate: func(c *Config) { c.WhatsApp.AccessToken = "tok" }, wantErr: "WHATSAPP_PHONE_NUMBER_ID"},
		{name: "verify token without owner", mutate: func(c *Config) { c.WhatsApp.VerifyToken = "hub" }, wantErr: "WHATSAPP_OWNER_ID"},
		{name: "half sheets config", mutate: func(c *Config) { c.Sheets.SpreadsheetID = "sheet" }, wantErr: "GOOGLE_SHEETS_CREDENTIALS_PATH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

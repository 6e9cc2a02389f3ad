package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     3306,
			User:     "support",
			Password: "secret",
			DBName:   "support_mail",
		},
		Mailbox: MailboxConfig{
			ClientID:     "cid",
			ClientSecret: "csecret",
			RefreshToken: "rtoken",
			UserEmail:    "support@acme.com",
		},
		AI:        AIConfig{BaseURL: "http://localhost:9000"},
		Pipeline:  PipelineConfig{BatchSize: 50, InternalDomain: "acme.com"},
		Scheduler: SchedulerConfig{IntervalMinutes: 5},
	}
}

func TestValidateValidConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing server port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server port",
		},
		{
			name:    "missing database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: "database",
		},
		{
			name:    "missing oauth credentials",
			mutate:  func(c *Config) { c.Mailbox.RefreshToken = "" },
			wantErr: "OAuth2",
		},
		{
			name: "imap mode requires imap credentials",
			mutate: func(c *Config) {
				c.Mailbox.UseIMAP = true
				c.Mailbox.IMAPUser = ""
			},
			wantErr: "IMAP credentials",
		},
		{
			name:    "missing ai base url",
			mutate:  func(c *Config) { c.AI.BaseURL = "" },
			wantErr: "ai base_url",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.Pipeline.BatchSize = 0 },
			wantErr: "batch size",
		},
		{
			name:    "zero scheduler interval",
			mutate:  func(c *Config) { c.Scheduler.IntervalMinutes = 0 },
			wantErr: "scheduler interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIMAPModeSkipsOAuthValidation(t *testing.T) {
	cfg := validConfig()
	cfg.Mailbox = MailboxConfig{
		UseIMAP:      true,
		IMAPHost:     "imap.example.com",
		IMAPPort:     993,
		IMAPUser:     "support@acme.com",
		IMAPPassword: "secret",
	}
	require.NoError(t, cfg.Validate())
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{
		Host:     "db.internal",
		Port:     3307,
		User:     "support",
		Password: "s3cret",
		DBName:   "support_mail",
	}
	assert.Equal(t,
		"support:s3cret@tcp(db.internal:3307)/support_mail?charset=utf8mb4&parseTime=True&loc=Local",
		db.GetDSN())
}

package config

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*Config) bool
	}{
		{
			name: "loads explicit values",
			envVars: map[string]string{
				"PORT":               "8080",
				"ENV":                "production",
				"DATABASE_URL":       "postgres://localhost/test",
				"SESSION_TTL":        "5m",
				"PROVIDER_TYPE":      "rekognition",
				"ACCEPT_MIN_QUALITY": "0.8",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 8080 &&
					c.IsProduction() &&
					c.UsesDatabase() &&
					c.SessionTTL == 5*time.Minute &&
					c.ProviderType == "rekognition" &&
					c.AcceptMinQuality == 0.8
			},
		},
		{
			name:    "uses defaults when optional vars missing",
			envVars: map[string]string{},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 3000 &&
					c.IsDevelopment() &&
					!c.UsesDatabase() &&
					c.SessionTTL == 15*time.Minute &&
					c.ProviderType == "local" &&
					c.RateLimitBurst == 40
			},
		},
		{
			name: "fails on malformed duration",
			envVars: map[string]string{
				"SESSION_TTL": "soon",
			},
			wantErr: true,
		},
		{
			name: "fails on quality out of range",
			envVars: map[string]string{
				"ACCEPT_MIN_QUALITY": "1.5",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Load() config check failed: %+v", cfg)
			}
		})
	}
}

func TestLoadCapture(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*CaptureConfig) bool
	}{
		{
			name:    "defaults match the capture controller defaults",
			envVars: map[string]string{},
			check: func(c *CaptureConfig) bool {
				ctrl := c.Controller()
				return ctrl.TickInterval == 100*time.Millisecond &&
					ctrl.Cooldown == 2*time.Second &&
					ctrl.MinConfidence == 0.9 &&
					ctrl.MinQuality == 0.85 &&
					ctrl.JPEGQuality == 90 &&
					ctrl.WorkingWidth == 720
			},
		},
		{
			name: "client settings",
			envVars: map[string]string{
				"ENROLL_API_URL": "http://enroll.internal/v1",
				"ENROLL_TIMEOUT": "3s",
			},
			check: func(c *CaptureConfig) bool {
				cl := c.Client()
				return cl.BaseURL == "http://enroll.internal/v1" && cl.Timeout == 3*time.Second && cl.RetryCount == 2
			},
		},
		{
			name:    "rejects jpeg quality out of range",
			envVars: map[string]string{"CAPTURE_JPEG_QUALITY": "0"},
			wantErr: true,
		},
		{
			name:    "rejects non-positive interval",
			envVars: map[string]string{"CAPTURE_INTERVAL": "0s"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := LoadCapture()

			if tt.wantErr {
				if err == nil {
					t.Errorf("LoadCapture() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadCapture() unexpected error: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("LoadCapture() config check failed: %+v", cfg)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"development", "production", "test"} {
		if NewLogger(env) == nil {
			t.Errorf("NewLogger(%q) returned nil", env)
		}
	}
}

func TestNewLoggerTo(t *testing.T) {
	tests := []struct {
		env       string
		wantJSON  bool
		wantDebug bool
	}{
		{env: "production", wantJSON: true, wantDebug: false},
		{env: "development", wantJSON: false, wantDebug: true},
		{env: "test", wantJSON: false, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerTo(&buf, tt.env)

			logger.Debug("debug line")
			logger.Info("info line", "session_id", "abc")

			out := buf.String()
			if strings.Contains(out, "debug line") != tt.wantDebug {
				t.Errorf("debug output present = %v, want %v", !tt.wantDebug, tt.wantDebug)
			}
			if strings.Contains(out, `"msg":"info line"`) != tt.wantJSON {
				t.Errorf("JSON output = %v, want %v: %s", !tt.wantJSON, tt.wantJSON, out)
			}
			if !strings.Contains(out, "abc") {
				t.Errorf("attribute missing from %q", out)
			}
		})
	}
}

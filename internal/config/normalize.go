package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeService()
	if err := c.normalizeAuth(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeLogging()
	c.normalizeNotifications()
	c.normalizeDevBackend()
	return nil
}

// envOverride returns the trimmed environment value when set and non-empty.
func envOverride(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (c *Config) normalizeService() {
	overrides := []struct {
		env      string
		target   *string
		fallback string
	}{
		{"WORDXL_API_BASE", &c.Service.BaseURL, defaultServiceBaseURL},
		{"WORDXL_UPLOAD_PATH", &c.Service.UploadPath, defaultUploadPath},
		{"WORDXL_CONVERT_PATH", &c.Service.ConvertPath, defaultConvertPath},
		{"WORDXL_PROGRESS_PATH", &c.Service.ProgressPath, defaultProgressPath},
		{"WORDXL_RESULT_PATH", &c.Service.ResultPath, defaultResultPath},
		{"WORDXL_RESET_PATH", &c.Service.ResetPath, defaultResetPath},
	}
	for _, o := range overrides {
		if value, ok := envOverride(o.env); ok {
			*o.target = value
		}
		*o.target = strings.TrimSpace(*o.target)
		if *o.target == "" {
			*o.target = o.fallback
		}
	}
	c.Service.BaseURL = strings.TrimRight(c.Service.BaseURL, "/")
	c.Service.ResultFormat = strings.ToLower(strings.TrimSpace(c.Service.ResultFormat))
	if c.Service.ResultFormat == "" {
		c.Service.ResultFormat = defaultResultFormat
	}
	if c.Service.RequestTimeout < 0 {
		c.Service.RequestTimeout = 0
	}
}

func (c *Config) normalizeAuth() error {
	if value, ok := envOverride("WORDXL_AUTH_BASE"); ok {
		c.Auth.BaseURL = value
	}
	c.Auth.BaseURL = strings.TrimRight(strings.TrimSpace(c.Auth.BaseURL), "/")
	if c.Auth.BaseURL == "" {
		c.Auth.BaseURL = defaultAuthBaseURL
	}
	if c.Auth.CheckTimeout <= 0 {
		c.Auth.CheckTimeout = defaultAuthCheckTimeout
	}
	if strings.TrimSpace(c.Auth.StatePath) == "" {
		c.Auth.StatePath = defaultAuthStatePath
	}
	var err error
	if c.Auth.StatePath, err = expandPath(strings.TrimSpace(c.Auth.StatePath)); err != nil {
		return fmt.Errorf("auth.state_path: %w", err)
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PollIntervalMillis <= 0 {
		c.Workflow.PollIntervalMillis = defaultPollIntervalMillis
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeDevBackend() {
	c.DevBackend.Bind = strings.TrimSpace(c.DevBackend.Bind)
	if c.DevBackend.Bind == "" {
		c.DevBackend.Bind = defaultDevBackendBind
	}
	if c.DevBackend.Step <= 0 {
		c.DevBackend.Step = defaultDevBackendStep
	}
	if c.DevBackend.TickMillis <= 0 {
		c.DevBackend.TickMillis = defaultDevBackendTick
	}
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if c.Notifications.NtfyTopic != "" {
		if err := validateBaseURL("notifications.ntfy_topic", c.Notifications.NtfyTopic); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateService() error {
	if err := validateBaseURL("service.base_url", c.Service.BaseURL); err != nil {
		return err
	}
	for key, value := range map[string]string{
		"service.upload_path":   c.Service.UploadPath,
		"service.convert_path":  c.Service.ConvertPath,
		"service.progress_path": c.Service.ProgressPath,
		"service.result_path":   c.Service.ResultPath,
		"service.reset_path":    c.Service.ResetPath,
	} {
		if !strings.HasPrefix(value, "/") {
			return fmt.Errorf("%s must start with '/' (got %q)", key, value)
		}
	}
	switch c.Service.ResultFormat {
	case "xlsx", "csv":
	default:
		return fmt.Errorf("service.result_format must be xlsx or csv (got %q)", c.Service.ResultFormat)
	}
	return nil
}

func (c *Config) validateAuth() error {
	if err := validateBaseURL("auth.base_url", c.Auth.BaseURL); err != nil {
		return err
	}
	if strings.TrimSpace(c.Auth.StatePath) == "" {
		return errors.New("auth.state_path must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.poll_interval_ms": c.Workflow.PollIntervalMillis,
		"auth.check_timeout":        c.Auth.CheckTimeout,
		"dev_backend.step":          c.DevBackend.Step,
		"dev_backend.tick_ms":       c.DevBackend.TickMillis,
	})
}

func validateBaseURL(key, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https (got %q)", key, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host (got %q)", key, value)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.api_key",
			Message: "API key is required",
		})
	}

	if c.LLM.RequestTimeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.request_timeout",
			Message: "request_timeout must not be negative",
		})
	}

	if c.LLM.PollInterval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.poll_interval",
			Message: "poll_interval must be positive",
		})
	}

	if c.LLM.MaxPollAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_poll_attempts",
			Message: "max_poll_attempts must be positive",
		})
	}

	// Validate server config
	if _, err := url.ParseRequestURI(c.Server.AppURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "server.app_url",
			Message: "invalid app URL",
		})
	}

	if c.Server.MaxUploadMB < 1 {
		errors = append(errors, ValidationError{
			Field:   "server.max_upload_mb",
			Message: "max_upload_mb must be positive",
		})
	}

	// Validate store config
	switch c.Store.Driver {
	case "file", "memory":
	case "sqlite":
		if c.Store.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "store.path",
				Message: "path is required for the sqlite driver",
			})
		}
	case "postgres":
		if c.Store.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "store.url",
				Message: "url is required for the postgres driver",
			})
		} else if _, err := url.Parse(c.Store.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "store.url",
				Message: "invalid database URL",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "store.driver",
			Message: fmt.Sprintf("unknown driver: %s", c.Store.Driver),
		})
	}

	if c.Fetch.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "fetch.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	return errors
}

// ValidateOAuth reports missing OAuth credentials; only the server needs them.
func (c *Config) ValidateOAuth() []ValidationError {
	var errors []ValidationError

	if c.OAuth.ClientID == "" {
		errors = append(errors, ValidationError{
			Field:   "oauth.client_id",
			Message: "client_id is required",
		})
	}
	if c.OAuth.ClientSecret == "" {
		errors = append(errors, ValidationError{
			Field:   "oauth.client_secret",
			Message: "client_secret is required",
		})
	}
	if c.Server.SessionSecret == "" {
		errors = append(errors, ValidationError{
			Field:   "server.session_secret",
			Message: "session_secret is required",
		})
	}

	return errors
}

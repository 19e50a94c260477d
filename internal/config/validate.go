package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable. It normalizes the language
// override to its three-letter form.
func (c *Cfg) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	lang, err := NormalizeLanguage(c.Language)
	if err != nil {
		return err
	}
	c.Language = lang
	if _, err := c.MaskConfig(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Cfg) validateAPI() error {
	u, err := url.Parse(strings.TrimSpace(c.APIURL))
	if err != nil {
		return fmt.Errorf("config: api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: api url %q must be http or https", c.APIURL)
	}
	if u.Host == "" {
		return fmt.Errorf("config: api url %q has no host", c.APIURL)
	}
	return nil
}

func (c *Cfg) validateLogging() error {
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: log format: unsupported value %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: log level: unsupported value %q", c.LogLevel)
	}
	return nil
}

// NormalizeLanguage maps a language override to its ISO 639-2/T code, the
// form the extraction service expects. Two-letter codes are accepted and
// expanded ("de" becomes "deu"). An empty code means auto-detection.
func NormalizeLanguage(code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "", nil
	}
	base, err := language.ParseBase(code)
	if err != nil {
		return "", fmt.Errorf("config: language %q: %w", code, err)
	}
	iso3 := base.ISO3()
	if iso3 == "" || iso3 == "und" {
		return "", errors.New("config: language " + code + " has no three-letter code")
	}
	return iso3, nil
}

// Package config provides configuration loading for webhdfs tools.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ClientSettings holds the settings needed to construct a webhdfs client.
type ClientSettings struct {
	// Endpoint settings
	Host string
	Port int
	User string

	// Timeouts in seconds; zero keeps the transport defaults
	ConnectTimeoutSecs  int
	TransferTimeoutSecs int

	// Namenode request throttle; zero means unlimited
	RequestsPerSecond float64
	RateBurst         int
}

// Load resolves client settings with increasing precedence: built-in
// defaults, then the selected profile from the profiles file, then
// environment variables. Command-line flags on top of this are the caller's
// business.
//
// An empty profilesPath falls back to WEBHDFS_PROFILES; an empty profile
// falls back to WEBHDFS_PROFILE, then "default". A missing profiles file is
// an error only when its path was passed explicitly.
func Load(profilesPath, profile string) (*ClientSettings, error) {
	s := &ClientSettings{
		Port: 50070,
	}
	explicit := profilesPath != ""
	if !explicit {
		profilesPath = os.Getenv("WEBHDFS_PROFILES")
	}
	if profile == "" {
		profile = getEnv("WEBHDFS_PROFILE", "default")
	}
	if profilesPath != "" {
		if err := applyProfile(s, profilesPath, profile, explicit); err != nil {
			return nil, err
		}
	}
	applyEnv(s)
	return s, nil
}

func applyProfile(s *ClientSettings, path, name string, strict bool) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if strict {
			return fmt.Errorf("read profiles: %w", err)
		}
		return nil
	}
	var raw struct {
		Profiles map[string]struct {
			Host                string  `yaml:"host"`
			Port                int     `yaml:"port"`
			User                string  `yaml:"user"`
			ConnectTimeoutSecs  int     `yaml:"connectTimeoutSecs"`
			TransferTimeoutSecs int     `yaml:"transferTimeoutSecs"`
			RequestsPerSecond   float64 `yaml:"requestsPerSecond"`
			RateBurst           int     `yaml:"rateBurst"`
		} `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("parse profiles: %w", err)
	}
	p, ok := raw.Profiles[name]
	if !ok {
		// Only the implicit default profile may be absent.
		if strict || name != "default" {
			return fmt.Errorf("profile %q not found in %s", name, path)
		}
		return nil
	}
	if p.Host != "" {
		s.Host = p.Host
	}
	if p.Port != 0 {
		s.Port = p.Port
	}
	if p.User != "" {
		s.User = p.User
	}
	if p.ConnectTimeoutSecs != 0 {
		s.ConnectTimeoutSecs = p.ConnectTimeoutSecs
	}
	if p.TransferTimeoutSecs != 0 {
		s.TransferTimeoutSecs = p.TransferTimeoutSecs
	}
	if p.RequestsPerSecond != 0 {
		s.RequestsPerSecond = p.RequestsPerSecond
	}
	if p.RateBurst != 0 {
		s.RateBurst = p.RateBurst
	}
	return nil
}

func applyEnv(s *ClientSettings) {
	s.Host = getEnv("WEBHDFS_HOST", s.Host)
	s.Port = getEnvInt("WEBHDFS_PORT", s.Port)
	s.User = getEnv("WEBHDFS_USER", s.User)
	s.ConnectTimeoutSecs = getEnvInt("WEBHDFS_CONNECT_TIMEOUT_SECS", s.ConnectTimeoutSecs)
	s.TransferTimeoutSecs = getEnvInt("WEBHDFS_TRANSFER_TIMEOUT_SECS", s.TransferTimeoutSecs)
	s.RequestsPerSecond = getEnvFloat("WEBHDFS_REQUESTS_PER_SECOND", s.RequestsPerSecond)
	s.RateBurst = getEnvInt("WEBHDFS_RATE_BURST", s.RateBurst)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

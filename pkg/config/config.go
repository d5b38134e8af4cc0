package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Profile holds the settings for one named section of the config file.
// It is loaded once per run and never modified afterwards.
type Profile struct {
	Socket      string // db_socket: path to the MySQL unix socket (required)
	Workdir     string // workdir: directory holding exported tablespaces (required)
	UseHardlink bool   // use_hardlink: "yes" hardlinks .ibd files instead of copying
	User        string // db_user (optional)
	Password    string // db_password (optional)
}

// ConfigError reports a missing or unreadable config file, profile or key.
type ConfigError struct {
	File    string
	Profile string
	Key     string // set when a mandatory key is absent
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("mandatory parameter %s not found in config file %s profile %s", e.Key, e.File, e.Profile)
	}
	return fmt.Sprintf("config file %s profile %s: %v", e.File, e.Profile, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ExitCode is the process exit code for config validation failures.
func (e *ConfigError) ExitCode() int { return 2 }

// Load reads the named profile from an INI config file. Section names are
// profile names; db_socket and workdir are mandatory, everything else
// defaults to absent.
func Load(path, profile string) (*Profile, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, &ConfigError{File: path, Profile: profile, Err: err}
	}

	sec, err := f.GetSection(profile)
	if err != nil {
		return nil, &ConfigError{File: path, Profile: profile, Err: err}
	}

	p := &Profile{}
	mandatory := []struct {
		key string
		dst *string
	}{
		{"db_socket", &p.Socket},
		{"workdir", &p.Workdir},
	}
	for _, m := range mandatory {
		if !sec.HasKey(m.key) {
			return nil, &ConfigError{File: path, Profile: profile, Key: m.key}
		}
		*m.dst = sec.Key(m.key).String()
	}

	p.UseHardlink = sec.Key("use_hardlink").String() == "yes"
	p.User = sec.Key("db_user").String()
	p.Password = sec.Key("db_password").String()
	return p, nil
}

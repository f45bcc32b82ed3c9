package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"flatloader/internal/schema"
)

// LoadProfile returns the mapping profile for this run. With no ProfilePath
// the built-in flats profile is used. Table, Key and Marker flags override
// the profile's values.
func (c *Config) LoadProfile() (*schema.Profile, error) {
	var (
		p   *schema.Profile
		err error
	)
	if c.ProfilePath == "" {
		p, err = schema.Flats()
	} else {
		p, err = ReadProfile(c.ProfilePath)
	}
	if err != nil {
		return nil, err
	}
	return p.WithOverrides(c.Table, c.Key, c.Marker)
}

// ReadProfile decodes a YAML (or JSON, which YAML accepts) profile file.
func ReadProfile(path string) (*schema.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes profile bytes. Unknown keys are rejected so typos in
// field names surface instead of silently mapping nothing.
func ParseProfile(data []byte) (*schema.Profile, error) {
	var spec schema.ProfileSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("config: decode profile: %w", err)
	}
	p, err := schema.NewProfile(spec)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return p, nil
}

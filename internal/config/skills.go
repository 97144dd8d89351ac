package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// SkillSetting is the uniform representation of a skill toggle. Every
// skill carries at minimum an Enabled flag; some add identity fields
// (gog carries the Google account email written into openclaw.json).
// Enabled is a tri-state: nil means "not set here, fall back to the
// defaults block".
type SkillSetting struct {
	Enabled *bool  `yaml:"enabled"`
	Email   string `yaml:"email"`
}

// UnmarshalYAML accepts both the mapping form ({enabled: true, email: x})
// and the bare boolean shorthand (gemini: false) the config file allows.
func (s *SkillSetting) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var b bool
		if err := node.Decode(&b); err != nil {
			return fmt.Errorf("skill setting must be a boolean or a mapping: %w", err)
		}
		s.Enabled = &b
		return nil
	}

	type plain SkillSetting
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = SkillSetting(p)
	return nil
}

// Skills enumerates the skill toggles an instance supports.
type Skills struct {
	Gog         SkillSetting `yaml:"gog"`
	Gemini      SkillSetting `yaml:"gemini"`
	CodingAgent SkillSetting `yaml:"coding_agent"`
	GitHub      SkillSetting `yaml:"github"`
}

// SkillNames lists skills in their canonical order, which fixes the
// ordering of required-secret prompts.
var SkillNames = []string{"gog", "gemini", "coding_agent", "github"}

// Get returns the setting for a named skill.
func (s *Skills) Get(name string) SkillSetting {
	switch name {
	case "gog":
		return s.Gog
	case "gemini":
		return s.Gemini
	case "coding_agent":
		return s.CodingAgent
	case "github":
		return s.GitHub
	}
	return SkillSetting{}
}

// SkillEnabled resolves whether a skill is on for a user: the user's own
// setting wins, the defaults block fills in when the user is silent, and
// an unset skill everywhere is off.
func (c *Config) SkillEnabled(u *User, name string) bool {
	if e := u.Skills.Get(name).Enabled; e != nil {
		return *e
	}
	if e := c.Clawctl.Defaults.Skills.Get(name).Enabled; e != nil {
		return *e
	}
	return false
}

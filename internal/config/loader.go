package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"ai_receptionist/pkg"

	"gopkg.in/yaml.v3"
)

// ProfileFile represents the structure of the business profile YAML
type ProfileFile struct {
	Business pkg.BusinessProfile `yaml:"business"`
}

// LoadBusinessProfile loads the profile from a YAML file. A missing file yields
// the default profile; fields left empty in the file keep their defaults.
func LoadBusinessProfile(filepath string) (pkg.BusinessProfile, error) {
	profile := pkg.DefaultBusinessProfile()
	if filepath == "" {
		return profile, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return profile, nil
		}
		return profile, fmt.Errorf("error reading business profile: %w", err)
	}

	return ParseBusinessProfile(data)
}

// ParseBusinessProfile decodes profile YAML over the defaults
func ParseBusinessProfile(data []byte) (pkg.BusinessProfile, error) {
	var file ProfileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return pkg.DefaultBusinessProfile(), fmt.Errorf("error parsing business profile YAML: %w", err)
	}

	return mergeProfile(pkg.DefaultBusinessProfile(), file.Business), nil
}

func mergeProfile(base, override pkg.BusinessProfile) pkg.BusinessProfile {
	set := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&base.Name, override.Name)
	set(&base.Hours, override.Hours)
	set(&base.Address, override.Address)
	set(&base.Phone, override.Phone)
	set(&base.Email, override.Email)
	set(&base.DefaultVoice, override.DefaultVoice)
	set(&base.Timezone, override.Timezone)

	if len(override.Services) > 0 {
		base.Services = override.Services
	}
	if override.DefaultDuration > 0 {
		base.DefaultDuration = override.DefaultDuration
	}
	return base
}

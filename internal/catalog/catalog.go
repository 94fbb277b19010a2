package catalog

import (
	"embed"
	"fmt"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

//go:embed config/backends.yaml config/persona.md
var configFiles embed.FS

// Load returns the backend catalog, reading path when set and the embedded default otherwise.
func Load(path string) (*Backends, error) {
	data, err := readFile(path, "config/backends.yaml")
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Backends, error) {
	var b Backends
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal backend catalog: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backend catalog: %w", err)
	}
	return &b, nil
}

// Persona returns the system persona text, reading path when set.
func Persona(path string) (string, error) {
	data, err := readFile(path, "config/persona.md")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readFile(path, embedded string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return data, nil
	}
	data, err := configFiles.ReadFile(embedded)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", embedded, err)
	}
	return data, nil
}

func (b *Backends) Validate() error {
	if err := validation.ValidateStruct(b,
		validation.Field(&b.Primary, validation.Required),
	); err != nil {
		return err
	}

	seen := make(map[string]bool, len(b.Primary))
	for i := range b.Primary {
		p := &b.Primary[i]
		if err := validation.ValidateStruct(p,
			validation.Field(&p.Name, validation.Required),
			validation.Field(&p.Provider, validation.Required, validation.In(ProviderGemini, ProviderOpenRouter, ProviderAnthropic, ProviderLorem)),
			validation.Field(&p.Model, validation.Required),
		); err != nil {
			return fmt.Errorf("primary[%d]: %w", i, err)
		}
		if seen[p.Name] {
			return fmt.Errorf("primary[%d]: duplicate backend name %q", i, p.Name)
		}
		seen[p.Name] = true
	}

	s := &b.Secondary
	return validation.ValidateStruct(s,
		validation.Field(&s.Provider, validation.Required, validation.In(ProviderGroq)),
		validation.Field(&s.MaxTokens, validation.Required, validation.Min(1)),
		validation.Field(&s.Tiers, validation.By(func(interface{}) error {
			return validation.ValidateStruct(&s.Tiers,
				validation.Field(&s.Tiers.Large, validation.Required),
				validation.Field(&s.Tiers.Vision, validation.Required),
				validation.Field(&s.Tiers.Small, validation.Required),
			)
		})),
	)
}

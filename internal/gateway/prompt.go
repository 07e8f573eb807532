package gateway

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/recommend.yaml
var defaultPromptYAML []byte

// PromptSpec is the fixed instruction text placed in front of the user's
// message.
type PromptSpec struct {
	Preamble   string `yaml:"preamble"`
	InputLabel string `yaml:"input_label"`
}

// ParsePromptSpec decodes a prompt spec from YAML.
func ParsePromptSpec(b []byte) (PromptSpec, error) {
	var spec PromptSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return PromptSpec{}, fmt.Errorf("gateway: decode prompt spec: %w", err)
	}
	spec.Preamble = strings.TrimSpace(spec.Preamble)
	spec.InputLabel = strings.TrimSpace(spec.InputLabel)
	if spec.Preamble == "" {
		return PromptSpec{}, errors.New("gateway: prompt spec has no preamble")
	}
	if spec.InputLabel == "" {
		spec.InputLabel = "User Input"
	}
	return spec, nil
}

// DefaultPromptSpec returns the music recommendation prompt compiled into the
// binary.
func DefaultPromptSpec() (PromptSpec, error) {
	return ParsePromptSpec(defaultPromptYAML)
}

// Build places message after the preamble. The message is appended as-is:
// it is never interpreted as a template or format string.
func (p PromptSpec) Build(message string) string {
	var b strings.Builder
	b.Grow(len(p.Preamble) + len(p.InputLabel) + len(message) + 4)
	b.WriteString(p.Preamble)
	b.WriteString("\n\n")
	b.WriteString(p.InputLabel)
	b.WriteString(": ")
	b.WriteString(message)
	return b.String()
}

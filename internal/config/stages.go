package config

import (
	"fmt"
	"os"

	"github.com/kiranshivaraju/hirepipe/pkg/models"
	"gopkg.in/yaml.v3"
)

// StageTemplate is one entry of the default pipeline applied to jobs created
// without explicit stages.
type StageTemplate struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Type        models.StageType `yaml:"type"`
	Order       int              `yaml:"order"`
}

type stageTemplateFile struct {
	Stages []StageTemplate `yaml:"stages"`
}

// LoadStageTemplate reads a YAML pipeline template. An empty path yields no template.
func LoadStageTemplate(path string) ([]StageTemplate, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stage template: %w", err)
	}
	return ParseStageTemplate(raw)
}

// ParseStageTemplate decodes and validates a pipeline template.
func ParseStageTemplate(raw []byte) ([]StageTemplate, error) {
	var f stageTemplateFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse stage template: %w", err)
	}

	seen := make(map[int]bool, len(f.Stages))
	for i, st := range f.Stages {
		if st.Name == "" {
			return nil, fmt.Errorf("stage template entry %d: name is required", i)
		}
		if st.Order < 1 {
			return nil, fmt.Errorf("stage template %q: order must be positive, got %d", st.Name, st.Order)
		}
		if seen[st.Order] {
			return nil, fmt.Errorf("stage template %q: duplicate order %d", st.Name, st.Order)
		}
		seen[st.Order] = true
		if st.Type == "" {
			f.Stages[i].Type = models.StageOther
		} else if !st.Type.IsValid() {
			return nil, fmt.Errorf("stage template %q: unknown type %q", st.Name, st.Type)
		}
	}
	return f.Stages, nil
}

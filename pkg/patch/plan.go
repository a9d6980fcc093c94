/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package patch

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/projpatch/internal/assets"
	"github.com/fulmenhq/projpatch/pkg/schema"
)

// PlanFile is the declarative batch form of intents: a versioned YAML (or
// JSON) document listing intents to apply in order.
type PlanFile struct {
	Version int      `yaml:"version" json:"version"`
	Intents []Intent `yaml:"intents" json:"intents"`
}

// LoadPlan validates plan bytes against the embedded plan schema and
// decodes the intents.
func LoadPlan(data []byte) ([]Intent, error) {
	validator, err := schema.Embedded(assets.PlanSchemaName)
	if err != nil {
		return nil, err
	}
	res, err := validator.ValidateBytes(data)
	if err != nil {
		return nil, fmt.Errorf("plan file: %w", err)
	}
	if !res.Valid {
		msgs := make([]string, len(res.Errors))
		for i, e := range res.Errors {
			if e.Path != "" {
				msgs[i] = e.Path + ": " + e.Message
			} else {
				msgs[i] = e.Message
			}
		}
		return nil, fmt.Errorf("plan file failed schema validation: %s", strings.Join(msgs, "; "))
	}

	var plan PlanFile
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("plan file: %w", err)
	}
	for _, intent := range plan.Intents {
		if err := intent.Validate(); err != nil {
			return nil, fmt.Errorf("plan file: %w", err)
		}
	}
	return plan.Intents, nil
}

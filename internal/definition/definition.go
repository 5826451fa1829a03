package definition

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flunq-io/restinvoke/internal/executor"
)

// Definition is a linear process made of invoke tasks
type Definition struct {
	Name      string                 `yaml:"name"`
	Variables map[string]interface{} `yaml:"variables"`
	Tasks     []executor.Config      `yaml:"tasks"`
}

// Load reads and parses a definition file
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML or JSON definition and checks its structure
func Parse(data []byte) (*Definition, error) {
	var document interface{}
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}
	if err := validateSchema(document); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}

	return &def, nil
}

// Validate checks that the definition names its process and tasks
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("definition has no name")
	}
	if len(d.Tasks) == 0 {
		return fmt.Errorf("definition %s has no tasks", d.Name)
	}

	seen := make(map[string]bool, len(d.Tasks))
	for i, task := range d.Tasks {
		if task.Name == "" {
			return fmt.Errorf("task %d of %s has no name", i, d.Name)
		}
		if seen[task.Name] {
			return fmt.Errorf("duplicate task name %s in %s", task.Name, d.Name)
		}
		seen[task.Name] = true
	}

	return nil
}

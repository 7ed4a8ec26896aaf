package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Plans []Plan `yaml:"plans"`
}

// ParseYAML reads a catalog document of the form `plans: [...]`. Unknown
// keys are rejected and the result is validated as a whole.
func ParseYAML(data []byte) ([]Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc yamlFile
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Join(ErrCatalogLoad, err)
	}
	for i := range doc.Plans {
		if doc.Plans[i].Price.Currency == "" {
			doc.Plans[i].Price.Currency = DefaultCurrency
		}
	}
	if err := ValidateAll(doc.Plans); err != nil {
		return nil, errors.Join(ErrCatalogLoad, err)
	}
	SortByRank(doc.Plans)
	return doc.Plans, nil
}

// LoadYAML reads path, or returns DefaultPlans when path is empty.
func LoadYAML(path string) ([]Plan, error) {
	if path == "" {
		return DefaultPlans(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrCatalogLoad, fmt.Errorf("read %s: %w", path, err))
	}
	return ParseYAML(data)
}

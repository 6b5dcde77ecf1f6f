package subscription

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileSource struct {
	path string
}

// NewFileSource returns a PlansSource reading plan definitions from a
// YAML file. Used by seeding tooling and local development.
//
// Expected shape:
//
//	plans:
//	  - plan_type: MONTHLY
//	    name: Monthly Plan
//	    price: 1999
//	    interval: monthly
//	    duration_months: 1
//	    gateway_plan_id: plan_xxx
//	    is_active: true
func NewFileSource(path string) PlansSource {
	return &fileSource{path: path}
}

func (s *fileSource) Load(context.Context) ([]Plan, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read plans file %s: %w", s.path, err)
	}

	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse plans file %s: %w", s.path, err)
	}
	return doc.Plans, nil
}

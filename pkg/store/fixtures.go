package store

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pigeonworks-llc/billed/pkg/bills"
)

//go:embed fixtures/bills.yaml
var defaultFixtures []byte

// DefaultFixtures returns the built-in sample bills.
func DefaultFixtures() []bills.Bill {
	list, err := ParseFixtures(defaultFixtures)
	if err != nil {
		panic(fmt.Sprintf("embedded fixtures: %v", err))
	}
	return list
}

// LoadFixtures reads a YAML list of bills from path.
func LoadFixtures(path string) ([]bills.Bill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes a YAML list of bills.
func ParseFixtures(data []byte) ([]bills.Bill, error) {
	var list []bills.Bill
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return list, nil
}

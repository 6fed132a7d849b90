package model

import (
	"errors"
	"fmt"
)

// ValidationConfig binds a FileInfo to an ordered rule set.
// Rule order is the expected column order for headerless CSV.
type ValidationConfig struct {
	FileInfo FileInfo
	Rules    []ValidationRule

	// Distribution is optional analysis configuration
	Distribution *DistributionConfig
}

// Validate checks the invariants every config must hold before it reaches the engine
func (c *ValidationConfig) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if len(c.Rules) == 0 {
		return errors.New("at least one column rule is required")
	}
	if !c.FileInfo.FileType.IsValid() {
		return fmt.Errorf("invalid file type: %q", c.FileInfo.FileType)
	}
	seen := make(map[string]bool, len(c.Rules))
	for _, r := range c.Rules {
		if r.Name == "" {
			return errors.New("column rule name cannot be empty")
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate column rule name: %s", r.Name)
		}
		seen[r.Name] = true
		if !r.Type.IsValid() {
			return fmt.Errorf("column %s: invalid type", r.Name)
		}
	}
	return nil
}

// Rule looks up a rule by name
func (c *ValidationConfig) Rule(name string) (ValidationRule, bool) {
	for _, r := range c.Rules {
		if r.Name == name {
			return r, true
		}
	}
	return ValidationRule{}, false
}

// ColumnNames returns rule names in declaration order
func (c *ValidationConfig) ColumnNames() []string {
	names := make([]string, 0, len(c.Rules))
	for _, r := range c.Rules {
		names = append(names, r.Name)
	}
	return names
}

// RequiredColumns returns the names of required rules
func (c *ValidationConfig) RequiredColumns() []string {
	var names []string
	for _, r := range c.Rules {
		if r.Required {
			names = append(names, r.Name)
		}
	}
	return names
}

// WithFileType returns a shallow copy bound to a different file type.
// The receiver is left untouched so it can be shared across concurrent runs.
func (c *ValidationConfig) WithFileType(ft FileType) *ValidationConfig {
	cp := *c
	cp.FileInfo.FileType = ft
	return &cp
}

// DistributionKind selects the analyzer for a column
type DistributionKind string

const (
	DistributionCategorical DistributionKind = "categorical"
	DistributionNumerical   DistributionKind = "numerical"
	// DistributionAuto picks numerical when most non-null values are numbers
	DistributionAuto DistributionKind = "auto"
)

// IsValid reports whether k is a known analyzer kind
func (k DistributionKind) IsValid() bool {
	switch k {
	case DistributionCategorical, DistributionNumerical, DistributionAuto:
		return true
	}
	return false
}

const (
	DefaultMaxCategories = 100
	DefaultBinCount      = 10
)

// DistributionColumn configures analysis of one column
type DistributionColumn struct {
	Name string
	Kind DistributionKind
	// MaxCategories caps listed categories; the rest fold into "other"
	MaxCategories int
	// Bins are explicit ascending histogram edges; empty means automatic
	Bins     []float64
	BinCount int
}

// DistributionConfig configures the optional analysis pass
type DistributionConfig struct {
	Columns []DistributionColumn
}

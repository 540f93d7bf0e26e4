package config

// DomainConfig holds the configurable inventory rules
type DomainConfig struct {
	// Node constraints
	MaxNameLength      int
	MaxIdentifiers     int
	MaxIdentifierLen   int
	MaxTagsPerNode     int
	MaxTagLength       int
	MaxRelationEntries int

	// Relation edits
	MaxTargetsPerEdit int

	// Query limits
	DefaultQueryLimit int
	MaxQueryLimit     int
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxNameLength:      255,
		MaxIdentifiers:     64,
		MaxIdentifierLen:   255,
		MaxTagsPerNode:     32,
		MaxTagLength:       64,
		MaxRelationEntries: 32,

		MaxTargetsPerEdit: 500,

		DefaultQueryLimit: 100,
		MaxQueryLimit:     1000,
	}
}

// ClampQueryLimit applies the default and maximum to a requested page size.
func (c *DomainConfig) ClampQueryLimit(limit int) int {
	if limit <= 0 {
		return c.DefaultQueryLimit
	}
	if limit > c.MaxQueryLimit {
		return c.MaxQueryLimit
	}
	return limit
}

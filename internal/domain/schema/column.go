package schema

// ReconConfig describes how the cells of a column were reconciled
type ReconConfig struct {
	Service         string `json:"service"`
	IdentifierSpace string `json:"identifierSpace,omitempty"`
	SchemaSpace     string `json:"schemaSpace,omitempty"`
	Type            string `json:"type,omitempty"`
}

// Equal compares two possibly-nil recon configs by value
func (rc *ReconConfig) Equal(other *ReconConfig) bool {
	if rc == nil || other == nil {
		return rc == other
	}
	return *rc == *other
}

// ColumnMetadata describes a single column of a grid.
// Values are immutable: the With* methods return modified copies.
type ColumnMetadata struct {
	Name string `json:"name"`
	// LastModified is the id of the history entry which last touched the column
	LastModified int64        `json:"lastModified,omitempty"`
	ReconConfig  *ReconConfig `json:"reconConfig,omitempty"`
}

// NewColumnMetadata creates metadata for a fresh column
func NewColumnMetadata(name string) ColumnMetadata {
	return ColumnMetadata{Name: name}
}

// WithName returns a copy of the metadata with a new name
func (c ColumnMetadata) WithName(name string) ColumnMetadata {
	c.Name = name
	return c
}

// WithLastModified returns a copy of the metadata stamped with a history entry id
func (c ColumnMetadata) WithLastModified(historyEntryID int64) ColumnMetadata {
	c.LastModified = historyEntryID
	return c
}

// WithReconConfig returns a copy of the metadata with the given recon config
func (c ColumnMetadata) WithReconConfig(rc *ReconConfig) ColumnMetadata {
	c.ReconConfig = rc
	return c
}

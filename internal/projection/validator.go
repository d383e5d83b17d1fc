package projection

import (
	"github.com/leengari/gridops/internal/domain/errors"
	"github.com/leengari/gridops/internal/domain/schema"
)

// ValidateDependencies checks that every dependency column exists in the
// column model. It returns a *errors.MissingColumnError for the first one
// that does not.
func ValidateDependencies(cm schema.ColumnModel, dependencies []string) error {
	for _, name := range dependencies {
		if cm.ColumnIndex(name) < 0 {
			return &errors.MissingColumnError{Column: name}
		}
	}
	return nil
}

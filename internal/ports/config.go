package ports

import (
	"context"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
)

// ScenarioLoader loads scenario definitions from an external source such as
// the filesystem. Implementations must respect context cancellation and
// translate failures into coded domain errors.
//
// Error mapping expectations:
//   - io/fs.ErrNotExist → ErrCodeNotFound
//   - schema or YAML parsing failures → ErrCodeValidation
//   - context cancellation/deadline → ErrCodeCancelled
//   - unexpected I/O issues → ErrCodeInternal with wrapped cause
type ScenarioLoader interface {
	// Load materialises a fully validated scenario from the provided location.
	Load(ctx context.Context, path string) (*scenario.Scenario, error)

	// Validate checks the source without returning the scenario, so the CLI
	// can surface errors quickly (e.g. `batchflow validate nightly.yaml`).
	Validate(ctx context.Context, path string) error
}

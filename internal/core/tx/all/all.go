// Package all imports all operation sub-packages to trigger their init() registrations.
// Import this package in the main application to ensure all operation types are registered.
package all

import (
	_ "github.com/LeJamon/goCustody/internal/core/tx/amm"
	_ "github.com/LeJamon/goCustody/internal/core/tx/escrow"
	_ "github.com/LeJamon/goCustody/internal/core/tx/token"
)

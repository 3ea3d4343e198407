// Package backends registers all table backends.
package backends

import (
	// Import all backends to register them
	_ "github.com/mpol-dev/visread/internal/backend/bridge"
	_ "github.com/mpol-dev/visread/internal/backend/bundle"
	_ "github.com/mpol-dev/visread/internal/backend/sim"
)

// All imports trigger init() functions that register backends.

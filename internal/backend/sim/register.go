package sim

import (
	"context"

	"github.com/mpol-dev/visread/internal/ms"
)

// Scheme is the table URL scheme of the simulated backend.
const Scheme = "sim"

func init() {
	ms.Register(Scheme, func(ctx context.Context, opts ms.Options) (ms.Table, error) {
		cfg, err := ParseConfig(opts)
		if err != nil {
			return nil, err
		}
		return New(cfg)
	})
}

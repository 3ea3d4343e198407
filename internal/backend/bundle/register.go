package bundle

import (
	"context"

	"github.com/mpol-dev/visread/internal/ms"
)

// Scheme is the table URL scheme of the bundle backend
// ("bundle:/data/AS209_export").
const Scheme = "bundle"

func init() {
	ms.Register(Scheme, func(ctx context.Context, opts ms.Options) (ms.Table, error) {
		if opts.Path == "" {
			return nil, ms.Errorf(ms.CodeInvalidConfig, false, "bundle: URL needs a directory, e.g. bundle:/data/export")
		}
		return Open(opts.Path)
	})
}

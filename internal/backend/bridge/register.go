package bridge

import (
	"context"
	"strings"

	"github.com/mpol-dev/visread/internal/ms"
)

// Scheme is the table URL scheme of the bridge backend.
const Scheme = "bridge"

func init() {
	ms.Register(Scheme, func(ctx context.Context, opts ms.Options) (ms.Table, error) {
		if opts.Host == "" {
			return nil, ms.Errorf(ms.CodeInvalidConfig, false,
				"bridge: URL needs a host, e.g. bridge://host:7040/name")
		}
		t, err := Dial(ctx, opts.Host, strings.TrimPrefix(opts.Path, "/"))
		if err != nil {
			return nil, err
		}
		t.SliceRows = opts.Int64("slice_rows", 0)
		return t, nil
	})
}

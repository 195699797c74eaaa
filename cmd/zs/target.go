package main

import (
	"context"
	"strings"

	zs "github.com/cockroachdb/zs"
)

// openTarget opens loc as either a local file path or an http(s) URL,
// per SPEC_FULL.md §6.6's FILE_OR_URL convention shared by `dump`,
// `info`, and `validate`.
func openTarget(ctx context.Context, loc string, workers int) (*zs.Reader, error) {
	var opts []zs.Option
	if workers > 0 {
		opts = append(opts, zs.WithWorkers(workers))
	}
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		return zs.OpenHTTP(ctx, loc, opts...)
	}
	return zs.OpenFile(ctx, loc, opts...)
}

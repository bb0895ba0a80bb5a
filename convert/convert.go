package convert

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"r2epub/config"
	"r2epub/fetch"
	"r2epub/respec"
)

// Convert runs the single document pipeline end to end and returns the
// finished publication in memory. The conversion service serves the result
// directly, the CLI path goes through Run and writes to disk instead.
// The returned name is the suggested file name for the publication.
func Convert(ctx context.Context, client *fetch.Client, renderer *respec.Client, src string, useRespec bool, opts config.ChapterOptions, log *zap.Logger) (string, []byte, error) {
	if _, err := client.CheckURL(src); err != nil {
		return "", nil, err
	}

	res, err := buildDocument(ctx, client, renderer, src, useRespec, opts, log)
	if err != nil {
		return "", nil, err
	}
	if err := res.container.Finalize(ctx, client, log); err != nil {
		return "", nil, fmt.Errorf("unable to finalize container: %w", err)
	}
	data, err := res.container.Bytes()
	if err != nil {
		return "", nil, err
	}
	return res.container.Name(), data, nil
}

// Package datasource defines where input bytes come from.
package datasource

import (
	"context"
	"fmt"
	"io"
)

// Source opens the raw input stream.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// ReadAll opens src and reads it to the end. Inputs are spreadsheet exports
// of a few thousand rows, so the whole file is held in memory.
func ReadAll(ctx context.Context, src Source) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("datasource: read: %w", err)
	}
	return b, nil
}

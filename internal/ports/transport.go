package ports

import (
	"context"

	"buildforge/internal/types"
)

type TransportPort interface {
	// Fetch retrieves the file at location relative to the server root.
	// Transient transport failures are retried internally; the returned
	// error means the attempts are exhausted.
	Fetch(ctx context.Context, server types.ServerConfig, location string) ([]byte, error)
}

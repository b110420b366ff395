package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/estatedesk/partnerflow/pkg/persistence"
	"github.com/estatedesk/partnerflow/pkg/persistence/file"
	"github.com/estatedesk/partnerflow/pkg/persistence/postgresql"
)

func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider, location := parsePersistenceProvider(databaseURL)

	switch provider {
	case "postgresql":
		logger.InfoContext(ctx, "Using postgres persistence")

		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		logger.InfoContext(ctx, "Using file persistence", "path", location)

		return file.NewPersistence(location), nil
	}
}

// parsePersistenceProvider returns the provider for databaseURL and the location
// handed to it. Anything that is not a postgres URL is treated as a directory.
func parsePersistenceProvider(databaseURL string) (string, string) {
	scheme, rest, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file", databaseURL
	}

	switch scheme {
	case "postgres", "postgresql":
		return "postgresql", databaseURL
	default:
		return "file", rest
	}
}

package merrors

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
)

// Classify maps a raw driver error to its Kind so callers at a component
// boundary can wrap it without inspecting driver internals themselves.
// Unrecognised errors classify as ExternalService, the safest default for an
// opaque dependency failure.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, redis.Nil):
		return NotFound
	case errors.Is(err, context.DeadlineExceeded):
		return Network
	case errors.Is(err, context.Canceled):
		return System
	case neo4j.IsServiceUnavailable(err), neo4j.IsConnectivityError(err):
		return Network
	case neo4j.IsTransientError(err):
		return Database
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return Database
	}

	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		return Database
	}

	return ExternalService
}

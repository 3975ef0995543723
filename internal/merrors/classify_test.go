package merrors

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestClassify_Nil(t *testing.T) {
	assert.Equal(t, Kind(""), Classify(nil))
}

func TestClassify_NotFound(t *testing.T) {
	assert.Equal(t, NotFound, Classify(pgx.ErrNoRows))
	assert.Equal(t, NotFound, Classify(redis.Nil))
}

func TestClassify_ContextErrors(t *testing.T) {
	assert.Equal(t, Network, Classify(context.DeadlineExceeded))
	assert.Equal(t, System, Classify(context.Canceled))
}

func TestClassify_PgError(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	assert.Equal(t, Database, Classify(err))
}

func TestClassify_UnrecognisedDefaultsToExternalService(t *testing.T) {
	assert.Equal(t, ExternalService, Classify(errors.New("boom")))
}

package storage

import (
	"strings"

	"github.com/sohamzycus/contractos/internal/model"
)

// NewIntegrityError wraps a constraint violation as StorageIntegrityError
// (spec §4.5: "programmer error, should not happen with a correct extractor").
func NewIntegrityError(op string, cause error) *model.Error {
	return model.NewError(model.KindStorage, "storage integrity violation: "+op, cause)
}

// NewUnavailableError wraps a transient I/O failure as retryable StorageUnavailable.
func NewUnavailableError(op string, cause error) *model.Error {
	return model.NewRetryableError(model.KindStorage, "storage unavailable: "+op, cause)
}

// NewNotFoundError wraps a missing-row lookup.
func NewNotFoundError(what string, cause error) *model.Error {
	return model.NewError(model.KindNotFound, what+" not found", cause)
}

// classifyWriteErr maps a raw *sql.Tx error to the typed taxonomy: SQLite
// constraint-violation messages carry "constraint failed" in their text.
func classifyWriteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "constraint failed") {
		return NewIntegrityError(op, err)
	}
	return NewUnavailableError(op, err)
}

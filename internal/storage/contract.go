package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sohamzycus/contractos/internal/model"
)

// InsertContract writes a new Contract row.
func (db *DB) InsertContract(ctx context.Context, c model.Contract) error {
	parties, err := marshalJSON(c.Parties)
	if err != nil {
		return err
	}
	var effectiveDate *string
	if c.EffectiveDate != nil {
		s := c.EffectiveDate.UTC().Format(time.RFC3339)
		effectiveDate = &s
	}

	return db.withWriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO contracts (document_id, title, file_format, file_hash, parties, effective_date, word_count, indexed_at, extraction_version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(c.DocumentID), c.Title, string(c.FileFormat), c.FileHash, parties, effectiveDate,
			c.WordCount, c.IndexedAt.UTC().Format(time.RFC3339), c.ExtractionVersion,
		)
		if err != nil {
			return classifyWriteErr("insert_contract", err)
		}
		return nil
	})
}

// GetContract fetches a contract by ID.
func (db *DB) GetContract(ctx context.Context, id model.DocumentID) (model.Contract, error) {
	row := db.readPool.QueryRowContext(ctx, `
		SELECT document_id, title, file_format, file_hash, parties, effective_date, word_count, indexed_at, extraction_version
		FROM contracts WHERE document_id = ?`, string(id))
	return scanContract(row)
}

// ListContracts returns every contract, ordered by indexed_at descending.
func (db *DB) ListContracts(ctx context.Context) ([]model.Contract, error) {
	rows, err := db.readPool.QueryContext(ctx, `
		SELECT document_id, title, file_format, file_hash, parties, effective_date, word_count, indexed_at, extraction_version
		FROM contracts ORDER BY indexed_at DESC`)
	if err != nil {
		return nil, NewUnavailableError("list_contracts", err)
	}
	defer rows.Close()

	var out []model.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteContract removes a contract; FK cascades remove its facts, clauses,
// bindings, cross-refs, slots, and inferences. The caller is responsible for
// separately removing the embedding index files and sweeping dangling
// workspace references (internal/workspace.PurgeDanglingReferences).
func (db *DB) DeleteContract(ctx context.Context, id model.DocumentID) error {
	return db.withWriteTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM contracts WHERE document_id = ?`, string(id))
		if err != nil {
			return classifyWriteErr("delete_contract", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return NewNotFoundError("contract", model.ErrContractNotFound)
		}
		return nil
	})
}

// ClearAll removes every contract (and, via cascade, every owned entity) and
// every workspace/session, restoring a cold-start-equivalent empty store.
func (db *DB) ClearAll(ctx context.Context) error {
	return db.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"reasoning_sessions", "workspaces", "contracts"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return classifyWriteErr("clear_all", err)
			}
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContract(s scanner) (model.Contract, error) {
	var (
		c              model.Contract
		documentID     string
		fileFormat     string
		effectiveDate  sql.NullString
		indexedAt      string
		partiesJSON    string
	)
	err := s.Scan(&documentID, &c.Title, &fileFormat, &c.FileHash, &partiesJSON, &effectiveDate, &c.WordCount, &indexedAt, &c.ExtractionVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Contract{}, NewNotFoundError("contract", model.ErrContractNotFound)
		}
		return model.Contract{}, NewUnavailableError("scan_contract", err)
	}
	c.DocumentID = model.DocumentID(documentID)
	c.FileFormat = model.FileFormat(fileFormat)
	c.Parties, err = unmarshalJSON[[]string](partiesJSON)
	if err != nil {
		return model.Contract{}, err
	}
	if t, err := time.Parse(time.RFC3339, indexedAt); err == nil {
		c.IndexedAt = t
	}
	if effectiveDate.Valid {
		if t, err := time.Parse(time.RFC3339, effectiveDate.String); err == nil {
			c.EffectiveDate = &t
		}
	}
	return c, nil
}

package discovery_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sohamzycus/contractos/internal/discovery"
	"github.com/sohamzycus/contractos/internal/lm"
	"github.com/sohamzycus/contractos/internal/model"
	"github.com/sohamzycus/contractos/internal/storage"
	"github.com/sohamzycus/contractos/migrations"
)

func newTestDB(t *testing.T) *storage.DB {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	path := t.TempDir() + "/contractos.db"
	db, err := storage.New(ctx, path, false, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.RunMigrations(ctx, migrations.FS))
	return db
}

func seedContractWithFact(t *testing.T, db *storage.DB) model.DocumentID {
	t.Helper()
	ctx := context.Background()

	contract, err := model.NewContract("Supply Agreement", model.FileFormatDocx, "hash1", nil, nil, 200, "v1", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, db.InsertContract(ctx, contract))

	text := "The Supplier shall indemnify the Customer for any third-party claims."
	fact, err := model.NewFact(contract.DocumentID, model.FactTypeClauseText, nil, text, model.Evidence{
		TextSpan: text, CharStart: 0, CharEnd: len(text),
	}, text)
	require.NoError(t, err)
	require.NoError(t, db.InsertExtractionResult(ctx, model.ExtractionResult{Facts: []model.Fact{fact}}))

	return contract.DocumentID
}

func TestDiscover_WrapsFindingsAsInferencesNeverFacts(t *testing.T) {
	db := newTestDB(t)
	docID := seedContractWithFact(t, db)

	mock := lm.NewMockProvider()
	mock.Default = `{"findings":[{"claim":"Indemnity obligation is one-sided, favoring the Customer.","category":"indemnity_balance","severity":"medium","evidence_location":"indemnity clause","confidence":0.7}]}`

	d := discovery.New(db, mock)
	result, err := d.Discover(context.Background(), docID)
	require.NoError(t, err)
	require.Equal(t, docID, result.DocumentID)
	require.Len(t, result.Inferences, 1)
	require.Equal(t, "discovery", result.Inferences[0].GeneratedBy)
	require.NotEmpty(t, result.Inferences[0].SupportingFactIDs)
	require.InDelta(t, 0.7, result.Inferences[0].Confidence, 0.001)
}

func TestDiscover_InvalidSeverityIsDropped(t *testing.T) {
	db := newTestDB(t)
	docID := seedContractWithFact(t, db)

	mock := lm.NewMockProvider()
	mock.Default = `{"findings":[{"claim":"bad finding","category":"x","severity":"not-a-real-severity","evidence_location":"x","confidence":0.5}]}`

	d := discovery.New(db, mock)
	result, err := d.Discover(context.Background(), docID)
	require.NoError(t, err)
	require.Empty(t, result.Inferences)
}

func TestDiscover_NoProviderReturnsEmptyResult(t *testing.T) {
	db := newTestDB(t)
	docID := seedContractWithFact(t, db)

	d := discovery.New(db, nil)
	result, err := d.Discover(context.Background(), docID)
	require.NoError(t, err)
	require.Empty(t, result.Inferences)
}

func TestDiscover_InvalidJSONReturnsError(t *testing.T) {
	db := newTestDB(t)
	docID := seedContractWithFact(t, db)

	mock := lm.NewMockProvider()
	mock.Default = `not json`

	d := discovery.New(db, mock)
	_, err := d.Discover(context.Background(), docID)
	require.Error(t, err)
}

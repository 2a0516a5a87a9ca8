// internal/workers/sync/generate-outbound-file/handler_test.go
package generateoutboundfile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-sync/internal/common/config"
	"partner-sync/internal/common/logger"
	"partner-sync/internal/fixedwidth"
	syncstate "partner-sync/internal/sync"
)

type fakeSelector struct {
	candidates []syncstate.Candidate
	err        error
}

func (f *fakeSelector) Each(ctx context.Context, tradingPartner string, fn func(syncstate.Candidate) error) error {
	if f.err != nil {
		return f.err
	}
	for _, c := range f.candidates {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

type fakeUploader struct {
	keys      []string
	bodies    [][]byte
	uploadErr error
}

func (f *fakeUploader) Upload(ctx context.Context, key string, body []byte) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.keys = append(f.keys, key)
	f.bodies = append(f.bodies, body)
	return nil
}

func testPartners() map[string]config.PartnerConfig {
	return map[string]config.PartnerConfig{
		"XYZ": {SyncCode: "XYZSYNC", ModuleType: "product"},
	}
}

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{DefaultModuleType: "product"}
}

func productCandidate(uid, name string) syncstate.Candidate {
	return syncstate.Candidate{
		EntityKey: uid,
		Values: []interface{}{
			uid, name, "1234567890", "us", "19.99",
			time.Date(2013, 6, 19, 0, 0, 0, 0, time.UTC),
		},
	}
}

func newTestHandler(t *testing.T, selector syncstate.Selector, uploader Uploader, store *syncstate.Store) *Handler {
	t.Helper()
	return NewHandler(
		LoadConfig(),
		store,
		map[string]syncstate.Selector{"product": selector},
		map[string]fixedwidth.RecordLayout{"product": ProductLayout()},
		uploader,
		testPartners(),
		testSyncConfig(),
		"outbound",
		logger.NewNoOpLogger(),
	)
}

func TestHandler_Execute_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sync_records").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO sync_records").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	selector := &fakeSelector{candidates: []syncstate.Candidate{
		productCandidate("PROD-1", "Widget"),
		productCandidate("PROD-2", "Gadget"),
	}}
	uploader := &fakeUploader{}
	handler := newTestHandler(t, selector, uploader, syncstate.NewStore(db))

	output, err := handler.Execute(context.Background(), &Input{TradingPartner: "XYZ"})

	require.NoError(t, err)
	assert.Equal(t, 2, output.RowCount)
	assert.Equal(t, 0, output.SkippedCount)
	assert.Contains(t, output.FileName, "xyzsync_product_")
	assert.Contains(t, output.S3Key, "outbound/xyz/")

	require.Len(t, uploader.bodies, 1)
	lines := string(uploader.bodies[0])
	assert.Contains(t, lines, "PROD-1")
	assert.Contains(t, lines, "1234.56.7890") // tariff grouping applied
	assert.Contains(t, lines, "US")           // country upcased
	assert.Contains(t, lines, "20130619")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_SkipsBrokenRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sync_records").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	broken := syncstate.Candidate{
		EntityKey: "PROD-BAD",
		Values:    []interface{}{"PROD-BAD"}, // wrong arity for the layout
	}
	selector := &fakeSelector{candidates: []syncstate.Candidate{
		broken,
		productCandidate("PROD-1", "Widget"),
	}}
	uploader := &fakeUploader{}
	handler := newTestHandler(t, selector, uploader, syncstate.NewStore(db))

	output, err := handler.Execute(context.Background(), &Input{TradingPartner: "XYZ"})

	require.NoError(t, err)
	assert.Equal(t, 1, output.RowCount)
	assert.Equal(t, 1, output.SkippedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_UploadFailureLeavesRecordsUntouched(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	selector := &fakeSelector{candidates: []syncstate.Candidate{
		productCandidate("PROD-1", "Widget"),
	}}
	uploader := &fakeUploader{uploadErr: errors.New("connection reset")}
	handler := newTestHandler(t, selector, uploader, syncstate.NewStore(db))

	_, err = handler.Execute(context.Background(), &Input{TradingPartner: "XYZ"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransportFailed)
	// No sync_records writes were expected or made.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_UnknownPartner(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler := newTestHandler(t, &fakeSelector{}, &fakeUploader{}, syncstate.NewStore(db))

	_, err = handler.Execute(context.Background(), &Input{TradingPartner: "NOBODY"})

	assert.ErrorIs(t, err, ErrUnknownTradingPartner)
}

func TestHandler_Execute_NoCandidates(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	uploader := &fakeUploader{}
	handler := newTestHandler(t, &fakeSelector{}, uploader, syncstate.NewStore(db))

	output, err := handler.Execute(context.Background(), &Input{TradingPartner: "XYZ"})

	require.NoError(t, err)
	assert.Equal(t, 0, output.RowCount)
	assert.Empty(t, output.FileName)
	assert.Empty(t, uploader.keys)
}

package sync

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-sync/internal/common/errors"
)

type stubResolver struct {
	found bool
	label string
}

func (r *stubResolver) Resolve(ctx context.Context, key string) (bool, error) {
	return r.found, nil
}

func (r *stubResolver) Label() string {
	return r.label
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry()
	registry.Register("product", &stubResolver{found: true, label: "Product"})

	resolver, err := registry.Lookup("product")
	require.NoError(t, err)
	assert.Equal(t, "Product", resolver.Label())
}

func TestRegistryLookupUnknownModuleType(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Lookup("shipment")
	require.Error(t, err)

	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeUnknownModuleType, stdErr.Code)
}

func TestRegistryReset(t *testing.T) {
	registry := NewRegistry()
	registry.Register("product", &stubResolver{label: "Product"})
	registry.Reset()

	_, err := registry.Lookup("product")
	assert.Error(t, err)
}

func TestProductResolverResolve(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("PROD-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	resolver := NewProductResolver(db)
	found, err := resolver.Resolve(context.Background(), "PROD-1")

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Product", resolver.Label())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductResolverResolveMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	resolver := NewProductResolver(db)
	found, err := resolver.Resolve(context.Background(), "NOPE")

	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

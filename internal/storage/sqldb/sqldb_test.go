package sqldb

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/IlyasAtabaev731/inventory-service/internal/domain/models"
	"github.com/IlyasAtabaev731/inventory-service/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New("sqlite://", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		url     string
		dialect string
		dsn     string
		wantErr bool
	}{
		{url: "sqlite:///inventory.db", dialect: dialectSQLite, dsn: "inventory.db"},
		{url: "sqlite:////var/lib/inventory.db", dialect: dialectSQLite, dsn: "/var/lib/inventory.db"},
		{url: "sqlite://", dialect: dialectSQLite, dsn: ":memory:"},
		{url: "sqlite:///:memory:", dialect: dialectSQLite, dsn: ":memory:"},
		{url: "postgresql://u:p@db:5432/inv", dialect: dialectPostgres, dsn: "postgresql://u:p@db:5432/inv"},
		{url: "postgres://u:p@db:5432/inv", dialect: dialectPostgres, dsn: "postgres://u:p@db:5432/inv"},
		{url: "mysql://u:p@db/inv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			dialect, dsn, err := parseURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, dialect)
			assert.Equal(t, tt.dsn, dsn)
		})
	}
}

func TestUsers(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	id, err := s.SaveUser(ctx, "alice", []byte("hash"))
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = s.SaveUser(ctx, "alice", []byte("other"))
	require.ErrorIs(t, err, storage.ErrUserExists)

	user, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.User{ID: id, Username: "alice", PasswordHash: "hash"}, user)

	_, err = s.GetUser(ctx, "bob")
	require.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestProductsLifecycle(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	products, err := s.GetProducts(ctx)
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)

	widgetID, err := s.SaveProduct(ctx, models.Product{Name: "Widget", Quantity: 5, Price: 9.99})
	require.NoError(t, err)
	gadgetID, err := s.SaveProduct(ctx, models.Product{Name: "Gadget", Quantity: 0, Price: 1.5})
	require.NoError(t, err)

	products, err = s.GetProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Product{
		{ID: widgetID, Name: "Widget", Quantity: 5, Price: 9.99},
		{ID: gadgetID, Name: "Gadget", Quantity: 0, Price: 1.5},
	}, products)

	widget, err := s.GetProduct(ctx, widgetID)
	require.NoError(t, err)
	widget.Quantity = 12
	require.NoError(t, s.UpdateProduct(ctx, widget))

	widget, err = s.GetProduct(ctx, widgetID)
	require.NoError(t, err)
	assert.Equal(t, models.Product{ID: widgetID, Name: "Widget", Quantity: 12, Price: 9.99}, widget)

	require.NoError(t, s.DeleteProduct(ctx, widgetID))
	require.ErrorIs(t, s.DeleteProduct(ctx, widgetID), storage.ErrProductNotFound)

	_, err = s.GetProduct(ctx, widgetID)
	require.ErrorIs(t, err, storage.ErrProductNotFound)

	err = s.UpdateProduct(ctx, models.Product{ID: 999, Name: "ghost"})
	require.ErrorIs(t, err, storage.ErrProductNotFound)
}

func TestPing(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Ping(context.Background()))
}

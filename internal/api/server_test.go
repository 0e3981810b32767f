package api_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/IlyasAtabaev731/inventory-service/internal/api"
	"github.com/IlyasAtabaev731/inventory-service/internal/config"
	"github.com/IlyasAtabaev731/inventory-service/internal/domain/models"
	"github.com/IlyasAtabaev731/inventory-service/internal/storage/sqldb"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	Message string `json:"message"`
}

func newClient(t *testing.T) *resty.Client {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	storage, err := sqldb.New("sqlite://", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Stop() })

	cfg := &config.Config{
		ApiHost: "localhost",
		ApiPort: 8080,
		Auth: config.Auth{
			SecretKey: "e2e-secret",
			TokenTTL:  24 * time.Hour,
		},
		CORS: config.CORS{Origins: []string{"*"}},
	}

	srv := httptest.NewServer(api.New(cfg, log, storage).Handler())
	t.Cleanup(srv.Close)

	return resty.New().SetBaseURL(srv.URL)
}

func login(t *testing.T, client *resty.Client, username, password string) string {
	t.Helper()

	var out struct {
		AccessToken string `json:"access_token"`
	}
	resp, err := client.R().
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&out).
		Post("/login")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())
	require.NotEmpty(t, out.AccessToken)

	return out.AccessToken
}

func TestInventoryFlow(t *testing.T) {
	client := newClient(t)

	creds := map[string]string{"username": "alice", "password": "hunter2"}

	resp, err := client.R().SetBody(creds).Post("/register")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	var conflict message
	resp, err = client.R().SetBody(creds).SetError(&conflict).Post("/register")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.Equal(t, "Username already exists!", conflict.Message)

	token := login(t, client, "alice", "hunter2")
	authed := func() *resty.Request { return client.R().SetAuthToken(token) }

	var welcome message
	resp, err = authed().SetResult(&welcome).Get("/protected")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "Welcome, user 1! This is a protected route.", welcome.Message)

	resp, err = authed().
		SetBody(map[string]any{"name": "Widget", "quantity": 5, "price": 9.99}).
		Post("/products")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	var products []models.Product
	resp, err = authed().SetResult(&products).Get("/products")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	require.Len(t, products, 1)
	widget := products[0]
	assert.Positive(t, widget.ID)
	assert.Equal(t, models.Product{ID: widget.ID, Name: "Widget", Quantity: 5, Price: 9.99}, widget)

	path := "/products/" + strconv.FormatInt(widget.ID, 10)

	resp, err = authed().SetBody(map[string]any{"quantity": 3}).Put(path)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	products = nil
	_, err = authed().SetResult(&products).Get("/products")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, models.Product{ID: widget.ID, Name: "Widget", Quantity: 3, Price: 9.99}, products[0])

	resp, err = authed().Delete(path)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	resp, err = authed().Delete(path)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode())

	resp, err = authed().SetBody(map[string]any{"name": "ghost"}).Put(path)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	client := newClient(t)

	resp, err := client.R().
		SetBody(map[string]string{"username": "bob", "password": "right"}).
		Post("/register")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	wrong, err := client.R().
		SetBody(map[string]string{"username": "bob", "password": "wrong"}).
		Post("/login")
	require.NoError(t, err)

	unknown, err := client.R().
		SetBody(map[string]string{"username": "carol", "password": "right"}).
		Post("/login")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, wrong.StatusCode())
	assert.Equal(t, http.StatusUnauthorized, unknown.StatusCode())
	assert.Equal(t, wrong.String(), unknown.String())
}

func TestProductsWithoutToken(t *testing.T) {
	client := newClient(t)

	for _, token := range []string{"", "garbage"} {
		req := client.R()
		if token != "" {
			req.SetAuthToken(token)
		}
		resp, err := req.Get("/products")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	}
}

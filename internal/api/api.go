package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/IlyasAtabaev731/inventory-service/internal/config"
	"github.com/IlyasAtabaev731/inventory-service/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

type UserStorage interface {
	SaveUser(ctx context.Context, username string, passHash []byte) (int64, error)
	GetUser(ctx context.Context, username string) (models.User, error)
}

type ProductStorage interface {
	SaveProduct(ctx context.Context, product models.Product) (int64, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (models.Product, error)
	UpdateProduct(ctx context.Context, product models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

type Storage interface {
	UserStorage
	ProductStorage
	Ping(ctx context.Context) error
}

type APIServer struct {
	config     *config.Config
	logger     *slog.Logger
	server     *http.Server
	storage    Storage
	validate   *validator.Validate
	jwtSecret  []byte
	tokenTTL   time.Duration
	bcryptCost int
}

func New(config *config.Config, logger *slog.Logger, storage Storage) *APIServer {
	s := &APIServer{
		config: config,
		logger: logger,
		server: &http.Server{
			Addr:              config.ApiHost + ":" + strconv.Itoa(config.ApiPort),
			ReadHeaderTimeout: 10 * time.Second,
		},
		storage:    storage,
		validate:   newValidator(),
		jwtSecret:  config.SigningKey(),
		tokenTTL:   config.TokenTTL,
		bcryptCost: bcrypt.DefaultCost,
	}

	s.configureRouter()

	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *APIServer) Start() error {
	s.logger.Info("Starting server", slog.String("addr", s.server.Addr))

	return s.server.ListenAndServe()
}

func (s *APIServer) MustStart() {
	err := s.Start()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic("Failed to start server: " + err.Error())
	}
}

func (s *APIServer) Stop(ctx context.Context) error {
	defer s.logger.Info("Server successfully stopped")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) configureRouter() {
	router := mux.NewRouter()

	router.HandleFunc("/register", s.registerHandler()).Methods(http.MethodPost)
	router.HandleFunc("/login", s.loginHandler()).Methods(http.MethodPost)
	router.HandleFunc("/healthz", s.healthHandler()).Methods(http.MethodGet)

	router.HandleFunc("/protected", s.authenticate(s.protectedHandler())).Methods(http.MethodGet)
	router.HandleFunc("/products", s.authenticate(s.listProductsHandler())).Methods(http.MethodGet)
	router.HandleFunc("/products", s.authenticate(s.createProductHandler())).Methods(http.MethodPost)
	router.HandleFunc("/products/{id:[0-9]+}", s.authenticate(s.updateProductHandler())).Methods(http.MethodPut)
	router.HandleFunc("/products/{id:[0-9]+}", s.authenticate(s.deleteProductHandler())).Methods(http.MethodDelete)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	var handler http.Handler = router
	handler = s.accessLog(handler)
	handler = requestID(handler)
	handler = handlers.CORS(
		allowedOrigins(s.config.CORS.Origins),
		handlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.ExposedHeaders([]string{requestIDHeader}),
		handlers.AllowCredentials(),
	)(handler)
	handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError)),
	)(handler)

	s.server.Handler = handler
}

// allowedOrigins echoes the caller's origin when the list holds "*", since
// browsers refuse a literal wildcard on credentialed responses.
func allowedOrigins(origins []string) handlers.CORSOption {
	for _, o := range origins {
		if o == "*" {
			return handlers.AllowedOriginValidator(func(origin string) bool {
				return origin != ""
			})
		}
	}
	return handlers.AllowedOrigins(origins)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

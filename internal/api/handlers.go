package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/SigNoz/ecommerce-rest-api/internal/metrics"
	"github.com/SigNoz/ecommerce-rest-api/internal/middleware"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/SigNoz/ecommerce-rest-api/internal/services"
	"github.com/SigNoz/ecommerce-rest-api/pkg/jwt"
	"github.com/SigNoz/ecommerce-rest-api/pkg/validator"
	"github.com/gorilla/mux"
)

// App holds application dependencies
type App struct {
	metrics         *metrics.AppMetrics
	tokens          *jwt.Service
	authService     *services.AuthService
	userService     *services.UserService
	productService  *services.ProductService
	categoryService *services.CategoryService
	orderService    *services.OrderService
	reviewService   *services.ReviewService
}

// NewApp creates a new application instance
func NewApp(
	m *metrics.AppMetrics,
	tokens *jwt.Service,
	as *services.AuthService,
	us *services.UserService,
	ps *services.ProductService,
	cs *services.CategoryService,
	os *services.OrderService,
	rs *services.ReviewService,
) *App {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &App{
		metrics:         m,
		tokens:          tokens,
		authService:     as,
		userService:     us,
		productService:  ps,
		categoryService: cs,
		orderService:    os,
		reviewService:   rs,
	}
}

// Handler returns the complete HTTP handler: the router wrapped in CORS.
func (a *App) Handler() http.Handler {
	r := mux.NewRouter()
	a.SetupRoutes(r)
	return middleware.CORSMiddleware(r)
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	r.NotFoundHandler = http.HandlerFunc(endpointNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.ErrorHandlerMiddleware)
	r.Use(middleware.MetricsMiddleware(a.metrics))

	r.HandleFunc("/health", a.HealthHandler).Methods("GET")
	r.HandleFunc("/api/auth/login", a.LoginHandler).Methods("POST")

	// Everything else under /api needs a bearer token. mux resolves a
	// subrouter's mismatches with the subrouter's own handlers. gatedPath
	// runs ahead of the prefix so root paths keep their 405s.
	api := r.MatcherFunc(gatedPath).PathPrefix("/api").Subrouter()
	api.NotFoundHandler = r.NotFoundHandler
	api.MethodNotAllowedHandler = r.MethodNotAllowedHandler
	api.Use(middleware.AuthMiddleware(a.tokens, a.metrics))

	// Products; "/products/" addresses the collection too
	for _, path := range []string{"/products", "/products/"} {
		api.HandleFunc(path, a.ListProductsHandler).Methods("GET")
		api.HandleFunc(path, a.CreateProductHandler).Methods("POST")
		api.HandleFunc(path, idRequired("Product ID required")).Methods("PUT", "DELETE")
	}
	api.HandleFunc("/products/{id}", a.GetProductHandler).Methods("GET")
	api.HandleFunc("/products/{id}", a.UpdateProductHandler).Methods("PUT")
	api.HandleFunc("/products/{id}", a.DeleteProductHandler).Methods("DELETE")
	api.HandleFunc("/products/{id}/inventory", a.GetProductInventoryHandler).Methods("GET")
	api.HandleFunc("/products/{id}/inventory", a.RestockHandler).Methods("PUT")
	api.HandleFunc("/products/{id}/reviews", a.ListReviewsHandler).Methods("GET")
	api.HandleFunc("/products/{id}/reviews", a.CreateReviewHandler).Methods("POST")
	api.HandleFunc("/products/{id}/rating", a.RatingSummaryHandler).Methods("GET")
	api.HandleFunc("/inventory/low-stock", a.LowStockHandler).Methods("GET")

	// Categories
	for _, path := range []string{"/categories", "/categories/"} {
		api.HandleFunc(path, a.ListCategoriesHandler).Methods("GET")
		api.HandleFunc(path, a.CreateCategoryHandler).Methods("POST")
		api.HandleFunc(path, idRequired("Category ID required")).Methods("PUT", "DELETE")
	}
	api.HandleFunc("/categories/{id}", a.GetCategoryHandler).Methods("GET")
	api.HandleFunc("/categories/{id}", a.UpdateCategoryHandler).Methods("PUT")
	api.HandleFunc("/categories/{id}", a.DeleteCategoryHandler).Methods("DELETE")

	// Users
	api.HandleFunc("/users", a.CreateUserHandler).Methods("POST")
	api.HandleFunc("/users/me", a.GetCurrentUserHandler).Methods("GET")

	// Orders
	api.HandleFunc("/orders", a.CreateOrderHandler).Methods("POST")
	api.HandleFunc("/orders", a.ListOrdersHandler).Methods("GET")
	api.HandleFunc("/orders/{id}", a.GetOrderHandler).Methods("GET")
	api.HandleFunc("/orders/{id}/advance", a.AdvanceOrderHandler).Methods("POST")
	api.HandleFunc("/orders/{id}/cancel", a.CancelOrderHandler).Methods("POST")
}

func gatedPath(r *http.Request, _ *mux.RouteMatch) bool {
	return strings.HasPrefix(r.URL.Path, "/api") && r.URL.Path != "/api/auth/login"
}

func endpointNotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, "error", "Endpoint not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusMethodNotAllowed, "error", "Method not allowed")
}

// HealthHandler handles health check requests
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginHandler handles POST /api/auth/login
func (a *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := a.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type createUserRequest struct {
	Username  string `json:"username" validate:"required,username"`
	Email     string `json:"email" validate:"required,emailaddr,max=100"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	FirstName string `json:"firstName" validate:"required,personname"`
	LastName  string `json:"lastName" validate:"required,personname"`
	Phone     string `json:"phone" validate:"omitempty,phone"`
	Address   string `json:"address" validate:"max=500"`
	UserType  string `json:"userType"`
}

// CreateUserHandler handles POST /api/users. Only administrators may
// create other administrators.
func (a *App) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	userType := models.UserTypeCustomer
	if req.UserType != "" {
		parsed, err := models.ParseUserType(req.UserType)
		if err != nil {
			writeError(w, r, err)
			return
		}
		userType = parsed
	}
	if userType == models.UserTypeAdmin {
		caller, err := a.currentUser(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !caller.IsAdmin() {
			writeError(w, r, apperrors.Validation("Only administrators can create administrators"))
			return
		}
	}

	id, err := a.userService.RegisterUser(r.Context(), models.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
		UserType:  userType,
		IsActive:  true,
	}, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int32{"id": id})
}

// GetCurrentUserHandler handles GET /api/users/me
func (a *App) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// currentUser loads the account behind the request's token. A token whose
// user has since been removed or deactivated no longer authenticates.
func (a *App) currentUser(r *http.Request) (models.User, error) {
	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		return models.User{}, apperrors.Auth("Authorization token required")
	}
	u, err := a.userService.GetUserByUsername(r.Context(), username)
	if apperrors.IsNotFound(err) || (err == nil && !u.IsActive) {
		return models.User{}, apperrors.Auth("Invalid token")
	}
	return u, err
}

func idRequired(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusBadRequest, "error", message)
	}
}

// pathID parses the {id} route variable; message is the error for a
// malformed value.
func pathID(r *http.Request, message string) (int32, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		return 0, apperrors.Validation(message)
	}
	return int32(id), nil
}

// decodeBody reads a JSON body into v and runs its validate tags.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Validation("Invalid request body")
	}
	if errs := validator.ValidateStruct(v); len(errs) > 0 {
		return apperrors.Validation(validator.Summary(errs))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, key, message string) {
	writeJSON(w, status, map[string]string{key: message})
}

// writeError shapes err as {"error": ...}. Infrastructure failures are
// logged and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[HTTP] request_id=%s %s %s failed: %v",
			middleware.RequestIDFromContext(r.Context()), r.Method, r.URL.Path, err)
	}
	writeMessage(w, status, "error", apperrors.PublicMessage(err))
}

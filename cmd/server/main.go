package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yourusername/unilib/pkg/ai"
	"github.com/yourusername/unilib/pkg/auth"
	"github.com/yourusername/unilib/pkg/catalog"
	"github.com/yourusername/unilib/pkg/index"
	"github.com/yourusername/unilib/pkg/loans"
	"github.com/yourusername/unilib/pkg/notify"
	"github.com/yourusername/unilib/pkg/report"
	"github.com/yourusername/unilib/pkg/search"
	"github.com/yourusername/unilib/pkg/store"
	"github.com/yourusername/unilib/pkg/telemetry"
	"github.com/yourusername/unilib/pkg/ui"

	_ "github.com/yourusername/unilib/docs" // Import generated docs
)

// @title           UniLib API
// @version         1.0
// @description     A university library service: catalog, loan workflow and reporting.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const defaultLoanDays = 14

// --- Error Handling ---

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Detail)
}

func AbortWithError(c *gin.Context, code int, message string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}

	slog.Error("api error", "path", c.Request.URL.Path, "status", code, "message", message, "error", err)

	c.AbortWithStatusJSON(code, gin.H{
		"status": "error",
		"error":  message,
		"detail": detail,
		"code":   code,
	})
}

// loanErrorStatus maps loan engine errors onto HTTP statuses. Invalid
// transitions are conflicts, not client mistakes.
func loanErrorStatus(err error) int {
	switch {
	case errors.Is(err, loans.ErrNotFound), errors.Is(err, loans.ErrBookNotFound):
		return http.StatusNotFound
	case errors.Is(err, loans.ErrEmptyReason):
		return http.StatusBadRequest
	case errors.Is(err, loans.ErrNotPending),
		errors.Is(err, loans.ErrNotApproved),
		errors.Is(err, loans.ErrNoCopies),
		errors.Is(err, loans.ErrInventoryFull):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// --- Auth ---

func initLogger() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
}

func authMiddleware() gin.HandlerFunc {
	requiredKey := os.Getenv("UNILIB_API_KEY")

	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			apiKey = c.Query("apikey")
		}
		if requiredKey != "" && apiKey == requiredKey {
			c.Set("userID", "api-key-user")
			c.Set("name", "API Key User")
			c.Set("role", store.RoleAdmin)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := auth.ParseToken(tokenString)
			if err == nil {
				c.Set("userID", claims.UserID)
				c.Set("email", claims.Email)
				c.Set("name", claims.Name)
				c.Set("role", claims.Role)
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Unauthorized: Invalid API Key or Token",
		})
	}
}

func adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("role")
		if role != store.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// LoginRequest credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest new account payload
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// App bundles the services the router dispatches to.
type App struct {
	col       *store.Collections
	catalog   *catalog.Catalog
	engine    *loans.Engine
	reports   *report.Reports
	search    *search.Service
	librarian *ai.Librarian
	books     *index.Manager // nil when the full-text index is disabled
	notifier  notify.Notifier
}

func newApp(col *store.Collections, idx *index.Manager) *App {
	var catIdx catalog.Indexer
	if idx != nil {
		catIdx = idx
	}
	return &App{
		col:       col,
		catalog:   catalog.New(col, catIdx),
		engine:    loans.New(col),
		reports:   report.New(col),
		search:    search.New(col),
		librarian: ai.NewLibrarian(context.Background(), col),
		books:     idx,
		notifier:  notify.NewLogNotifier(),
	}
}

func (a *App) userByID(id string) (store.User, bool) {
	for _, u := range a.col.Users() {
		if u.ID == id {
			return u, true
		}
	}
	return store.User{}, false
}

func setupRouter(app *App) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(otelgin.Middleware("unilib"))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Allow all for development
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP", "time": time.Now()})
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public Auth Routes
	r.POST("/api/auth/login", func(c *gin.Context) {
		var creds LoginRequest
		if err := c.BindJSON(&creds); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		var found *store.User
		for _, u := range app.col.Users() {
			if strings.EqualFold(u.Email, creds.Email) {
				found = &u
				break
			}
		}
		if found == nil || !auth.CheckPassword(creds.Password, found.PasswordHash) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if found.Status == store.UserBlocked {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is blocked. Contact the library desk."})
			return
		}

		token, err := auth.GenerateToken(found)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(200, gin.H{"status": "success", "token": token, "user": found})
	})

	r.POST("/api/auth/register", func(c *gin.Context) {
		var req RegisterRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(500, gin.H{"error": "Server error"})
			return
		}

		user := store.User{
			ID:           store.NewID(),
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: hash,
			Role:         store.RoleStudent,
			Status:       store.UserActive,
		}

		err = app.col.UpdateUsers(func(users []store.User) ([]store.User, error) {
			for _, u := range users {
				if strings.EqualFold(u.Email, req.Email) {
					return nil, fmt.Errorf("email already registered")
				}
			}
			return append(users, user), nil
		})
		if err != nil {
			c.JSON(409, gin.H{"error": "Email already registered"})
			return
		}

		c.JSON(201, gin.H{"status": "success", "message": "User created"})
	})

	// Protected API routes
	api := r.Group("/api")
	api.Use(authMiddleware())

	// --- Catalog ---

	api.GET("/books", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "success", "data": app.catalog.List()})
	})

	api.GET("/books/:id", func(c *gin.Context) {
		book, err := app.catalog.Get(c.Param("id"))
		if err != nil {
			AbortWithError(c, http.StatusNotFound, "Book not found", err)
			return
		}
		c.JSON(200, gin.H{"status": "success", "data": book})
	})

	// Full-text search over the local catalog, backed by the bleve index.
	api.GET("/catalog/search", func(c *gin.Context) {
		if app.books == nil {
			c.JSON(503, gin.H{"error": "Catalog index not available"})
			return
		}
		q := c.Query("q")
		if q == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'q' parameter"})
			return
		}

		hits, err := app.books.Search(q)
		if err != nil {
			AbortWithError(c, http.StatusInternalServerError, "Search failed", err)
			return
		}

		results := make([]store.Book, 0, len(hits))
		for _, hit := range hits {
			if book, err := app.catalog.Get(hit.ID); err == nil {
				results = append(results, book)
			}
		}
		c.JSON(200, gin.H{"status": "success", "found": len(results), "data": results})
	})

	// External discovery search (mock upstream, cached).
	api.GET("/search", func(c *gin.Context) {
		start := time.Now()
		q := c.Query("q")
		if q == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'q' parameter"})
			return
		}
		limit := 0
		if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
			limit = l
		}

		res, err := app.search.Search(q, limit)
		if err != nil {
			AbortWithError(c, http.StatusInternalServerError, "Search failed", err)
			return
		}

		slog.Info("discovery search completed",
			"query", q,
			"found", len(res.Items),
			"latency_ms", time.Since(start).Milliseconds(),
		)
		c.JSON(200, gin.H{"status": "success", "data": res.Items})
	})

	// --- AI Librarian ---

	api.POST("/ai/chat", func(c *gin.Context) {
		var req struct {
			Message string `json:"message" binding:"required"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		reply, err := app.librarian.Chat(c.Request.Context(), c.GetString("userID"), req.Message)
		if err != nil {
			AbortWithError(c, http.StatusInternalServerError, "AI chat failed", err)
			return
		}
		c.JSON(200, gin.H{"status": "success", "data": reply})
	})

	api.GET("/ai/history", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "success", "data": app.librarian.History(c.GetString("userID"))})
	})

	// --- Loans (student side) ---

	api.POST("/loans", func(c *gin.Context) {
		var req struct {
			BookID string `json:"book_id" binding:"required"`
			Reason string `json:"reason"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		loan, err := app.engine.Request(req.BookID, c.GetString("userID"), req.Reason)
		if err != nil {
			AbortWithError(c, loanErrorStatus(err), "Failed to create loan request", err)
			return
		}
		c.JSON(201, gin.H{"status": "success", "data": loan})
	})

	api.GET("/loans/my", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "success", "data": app.engine.CurrentForUser(c.GetString("userID"))})
	})

	api.GET("/loans/history", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "success", "data": app.engine.HistoryForUser(c.GetString("userID"))})
	})

	api.POST("/loans/:id/return", func(c *gin.Context) {
		id := c.Param("id")

		loan, err := app.engine.Get(id)
		if err != nil {
			AbortWithError(c, http.StatusNotFound, "Loan request not found", err)
			return
		}
		role, _ := c.Get("role")
		if role != store.RoleAdmin && loan.UserID != c.GetString("userID") {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not your loan"})
			return
		}

		returned, err := app.engine.Return(id)
		if err != nil {
			AbortWithError(c, loanErrorStatus(err), "Failed to return book", err)
			return
		}
		c.JSON(200, gin.H{"status": "success", "data": returned})
	})

	// --- Theme preference ---

	api.GET("/theme", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "success", "data": gin.H{"theme": app.col.Theme()}})
	})

	api.PUT("/theme", func(c *gin.Context) {
		var req struct {
			Theme string `json:"theme" binding:"required"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if err := app.col.SetTheme(req.Theme); err != nil {
			AbortWithError(c, http.StatusInternalServerError, "Failed to save theme", err)
			return
		}
		c.JSON(200, gin.H{"status": "success", "data": gin.H{"theme": req.Theme}})
	})

	// Admin Routes
	admin := api.Group("/admin")
	admin.Use(adminOnly())

	admin.POST("/books", func(c *gin.Context) {
		var in catalog.BookInput
		if err := c.BindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book JSON"})
			return
		}
		book, err := app.catalog.Add(in)
		if err != nil {
			AbortWithError(c, http.StatusBadRequest, "Failed to create book", err)
			return
		}
		c.JSON(201, gin.H{"status": "success", "data": book})
	})

	admin.PUT("/books/:id", func(c *gin.Context) {
		var upd catalog.BookUpdate
		if err := c.BindJSON(&upd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book JSON"})
			return
		}
		book, err := app.catalog.Update(c.Param("id"), upd)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, catalog.ErrNotFound) {
				status = http.StatusNotFound
			}
			AbortWithError(c, status, "Failed to update book", err)
			return
		}
		c.JSON(200, gin.H{"status": "success", "data": book})
	})

	admin.DELETE("/books/:id", func(c *gin.Context) {
		if err := app.catalog.Delete(c.Param("id")); err != nil {
			AbortWithError(c, http.StatusNotFound, "Book not found", err)
			return
		}
		c.JSON(200, gin.H{"status": "success", "message": "Book deleted"})
	})

	admin.GET("/loans", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "success", "data": app.engine.All()})
	})

	admin.PUT("/loans/:id/approve", func(c *gin.Context) {
		var req struct {
			DueDate *time.Time `json:"due_date"`
		}
		// Body is optional; a missing due date means the default loan period.
		_ = c.BindJSON(&req)

		due := time.Now().AddDate(0, 0, defaultLoanDays)
		if req.DueDate != nil {
			due = *req.DueDate
		}

		loan, err := app.engine.Approve(c.Param("id"), due)
		if err != nil {
			AbortWithError(c, loanErrorStatus(err), "Failed to approve loan", err)
			return
		}

		if user, ok := app.userByID(loan.UserID); ok {
			go app.notifier.SendLoanStatusUpdate(user.Email, loan.Title, loan.Status, "Approved by the library")
		}
		c.JSON(200, gin.H{"status": "success", "data": loan})
	})

	admin.PUT("/loans/:id/reject", func(c *gin.Context) {
		var req struct {
			Reason string `json:"reason"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		loan, err := app.engine.Reject(c.Param("id"), req.Reason)
		if err != nil {
			AbortWithError(c, loanErrorStatus(err), "Failed to reject loan", err)
			return
		}

		if user, ok := app.userByID(loan.UserID); ok {
			go app.notifier.SendLoanStatusUpdate(user.Email, loan.Title, loan.Status, loan.RejectionReason)
		}
		c.JSON(200, gin.H{"status": "success", "data": loan})
	})

	admin.GET("/users", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "success", "data": app.col.Users()})
	})

	admin.PUT("/users/:id", func(c *gin.Context) {
		var req struct {
			Name *string `json:"name"`
			Role *string `json:"role"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.Role != nil && *req.Role != store.RoleAdmin && *req.Role != store.RoleStudent {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
			return
		}

		id := c.Param("id")
		var updated store.User
		err := app.col.UpdateUsers(func(users []store.User) ([]store.User, error) {
			for i := range users {
				if users[i].ID != id {
					continue
				}
				if req.Name != nil {
					users[i].Name = *req.Name
				}
				if req.Role != nil {
					users[i].Role = *req.Role
				}
				updated = users[i]
				return users, nil
			}
			return nil, fmt.Errorf("user not found")
		})
		if err != nil {
			AbortWithError(c, http.StatusNotFound, "User not found", err)
			return
		}
		c.JSON(200, gin.H{"status": "success", "data": updated})
	})

	admin.PUT("/users/:id/toggle-status", func(c *gin.Context) {
		id := c.Param("id")
		var toggled store.User
		err := app.col.UpdateUsers(func(users []store.User) ([]store.User, error) {
			for i := range users {
				if users[i].ID != id {
					continue
				}
				if users[i].Status == store.UserBlocked {
					users[i].Status = store.UserActive
				} else {
					users[i].Status = store.UserBlocked
				}
				toggled = users[i]
				return users, nil
			}
			return nil, fmt.Errorf("user not found")
		})
		if err != nil {
			AbortWithError(c, http.StatusNotFound, "User not found", err)
			return
		}
		c.JSON(200, gin.H{"status": "success", "data": toggled})
	})

	// --- Reports ---

	admin.GET("/stats", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "success", "data": app.reports.Dashboard()})
	})

	admin.GET("/insights", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "success", "data": app.reports.Insights()})
	})

	admin.GET("/reports/top-borrowed", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "success", "data": app.reports.TopBorrowed()})
	})

	admin.GET("/reports/overdue", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "success", "data": app.reports.Overdue()})
	})

	admin.GET("/reports/active-users", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "success", "data": app.reports.ActiveUsers()})
	})

	admin.GET("/activity", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "success", "data": app.reports.RecentActivity()})
	})

	admin.GET("/export/loans", func(c *gin.Context) {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment; filename=loans.csv")
		if err := report.ExportCSV(c.Writer, report.LoanRows(app.engine.All())); err != nil {
			AbortWithError(c, http.StatusNotFound, "Nothing to export", err)
		}
	})

	admin.GET("/export/books", func(c *gin.Context) {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment; filename=books.csv")
		if err := report.ExportCSV(c.Writer, report.BookRows(app.catalog.List())); err != nil {
			AbortWithError(c, http.StatusNotFound, "Nothing to export", err)
		}
	})

	spaHandler := ui.SPAHandler()
	r.NoRoute(func(c *gin.Context) {
		spaHandler.ServeHTTP(c.Writer, c.Request)
	})

	return r
}

func openStore() (store.KV, error) {
	backend := os.Getenv("STORE_BACKEND")
	if backend == "" {
		backend = "memory"
	}
	slog.Info("initializing store backend", "type", backend)

	switch backend {
	case "sqlite":
		return store.NewSQLiteKV(os.Getenv("STORE_PATH"))
	case "postgres":
		return store.NewPostgresKV(os.Getenv("STORE_DSN"))
	case "file":
		return store.NewFileKV(os.Getenv("STORE_PATH"))
	default:
		slog.Info("using in-memory store as default")
		return store.NewMemoryKV(), nil
	}
}

func main() {
	initLogger()

	shutdownTracer, err := telemetry.InitTracer(context.Background(), "unilib")
	if err != nil {
		slog.Warn("failed to init tracer", "error", err)
	} else {
		defer shutdownTracer(context.Background())
	}

	kv, err := openStore()
	if err != nil {
		slog.Error("failed to initialize store backend", "error", err)
		panic(err)
	}
	col := store.NewCollections(kv)
	defer col.Close()

	if err := col.Seed(); err != nil {
		slog.Error("failed to seed demo data", "error", err)
		panic(err)
	}

	var idx *index.Manager
	indexPath := os.Getenv("BOOK_INDEX_PATH")
	if indexPath == "" {
		indexPath = "books.bleve"
	}
	idx, err = index.NewManager(indexPath)
	if err != nil {
		slog.Warn("full-text index unavailable, catalog search disabled", "error", err)
		idx = nil
	} else {
		defer idx.Close()
		if err := idx.Rebuild(col.Books()); err != nil {
			slog.Warn("failed to rebuild book index", "error", err)
		}
	}

	app := newApp(col, idx)
	defer app.librarian.Close()

	// Background overdue checker: every hour, email anyone holding an
	// overdue book.
	emailSvc := notify.NewEmailService()
	go func() {
		slog.Info("starting automation engine: overdue checker")
		ticker := time.NewTicker(1 * time.Hour)
		for range ticker.C {
			overdue := app.reports.Overdue()
			if len(overdue) == 0 {
				continue
			}
			slog.Info("automation: found overdue loans, sending notices", "count", len(overdue))
			for _, l := range overdue {
				user, ok := app.userByID(l.UserID)
				if !ok || l.DueDate == nil {
					continue
				}
				if err := emailSvc.SendOverdueNotice(user.Email, user.Name, l.Title, l.DueDate.Format("2006-01-02")); err != nil {
					slog.Warn("overdue notice failed", "loan_id", l.ID, "error", err)
				}
			}
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	router := setupRouter(app)
	httpSrv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		slog.Info("unilib starting", "addr", ":"+port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("unilib listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down unilib...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("unilib forced to shutdown", "error", err)
	}

	slog.Info("unilib exiting")
}

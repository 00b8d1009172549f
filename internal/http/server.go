// Package http serves the bookkeeping UI: server-rendered pages for the
// dashboard, entries, accounts, credit cards and categories, plus a small
// JSON endpoint for dynamic subcategory selects.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"caderneta/internal/cache"
	"caderneta/internal/core"
	"caderneta/internal/middleware/ratelimit"
	"caderneta/internal/middleware/security"
	"caderneta/internal/services"
	"caderneta/internal/storage"
	appweb "caderneta/web"
)

type Server struct {
	http.Server
	templates  *template.Template
	repo       *storage.Repository
	ledger     *services.Ledger
	statements *services.Statements
	uploads    *uploadStore
	headers    *security.Headers
	limiter    *ratelimit.Limiter
	subcats    *cache.LRU[[]core.Subcategory]
	flashKey   []byte
	started    time.Time
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
// secretKey signs the flash cookie.
func NewServer(addr string, repo *storage.Repository, uploadDir string, maxUploadSize int64, secretKey string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		repo:       repo,
		ledger:     services.NewLedger(repo),
		statements: services.NewStatements(repo),
		uploads:    newUploadStore(uploadDir, maxUploadSize),
		headers:    security.NewHeaders(security.DefaultHeadersConfig()),
		limiter:    ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		subcats:    cache.NewLRU[[]core.Subcategory](64, 5*time.Minute),
		flashKey:   []byte(secretKey),
		started:    time.Now(),
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	// Uploaded logo images live on disk, outside the binary.
	mux.Handle("/uploads/", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(uploadDir))))

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.withRequestLog(s.handleIndex))
	mux.HandleFunc("GET /dashboard", s.withRequestLog(s.handleDashboard))
	mux.HandleFunc("POST /lancamentos/marcar_pago/{id}", s.withRequestLog(s.handleTogglePaid))

	mux.HandleFunc("GET /lancamentos", s.withRequestLog(s.handleEntriesPage))
	mux.HandleFunc("POST /lancamentos", s.withRequestLog(s.handleCreateEntry))
	mux.HandleFunc("POST /lancamentos/deletar", s.withRequestLog(s.handleDeleteEntry))
	mux.HandleFunc("POST /lancamentos/transferir", s.withRequestLog(s.handleCreateTransfer))
	mux.HandleFunc("GET /api/subcategorias/{categoriaID}", s.withRequestLog(s.handleSubcategoriesJSON))

	mux.HandleFunc("GET /contas", s.withRequestLog(s.handleAccountsPage))
	mux.HandleFunc("POST /contas", s.withRequestLog(s.handleCreateAccount))
	mux.HandleFunc("GET /contas/editar/{id}", s.withRequestLog(s.handleEditAccountPage))
	mux.HandleFunc("POST /contas/editar/{id}", s.withRequestLog(s.handleEditAccount))
	mux.HandleFunc("POST /contas/deletar/{id}", s.withRequestLog(s.handleDeleteAccount))

	mux.HandleFunc("GET /cartoes", s.withRequestLog(s.handleCardsPage))
	mux.HandleFunc("POST /cartoes", s.withRequestLog(s.handleCreateCard))
	mux.HandleFunc("GET /cartoes/editar/{id}", s.withRequestLog(s.handleEditCardPage))
	mux.HandleFunc("POST /cartoes/editar/{id}", s.withRequestLog(s.handleEditCard))
	mux.HandleFunc("POST /cartoes/inativar/{id}", s.withRequestLog(s.handleDeactivateCard))
	mux.HandleFunc("GET /cartoes/extrato", s.withRequestLog(s.handleCardStatement))
	mux.HandleFunc("POST /cartoes/editar_lancamento", s.withRequestLog(s.handleEditCardEntry))
	mux.HandleFunc("POST /cartoes/excluir_lancamento", s.withRequestLog(s.handleDeleteCardEntry))
	mux.HandleFunc("POST /cartoes/marcar_fatura_mes_paga/{cartao}/{ano}/{mes}", s.withRequestLog(s.handleToggleStatementPaid))

	mux.HandleFunc("GET /categorias", s.withRequestLog(s.handleCategoriesPage))
	mux.HandleFunc("POST /categorias", s.withRequestLog(s.handleCreateCategory))
	mux.HandleFunc("GET /categorias/editar/{id}", s.withRequestLog(s.handleEditCategoryPage))
	mux.HandleFunc("POST /categorias/editar/{id}", s.withRequestLog(s.handleEditCategory))
	mux.HandleFunc("POST /categorias/deletar/{id}", s.withRequestLog(s.handleDeleteCategory))
	mux.HandleFunc("GET /subcategorias/editar/{id}", s.withRequestLog(s.handleEditSubcategoryPage))
	mux.HandleFunc("POST /subcategorias/editar/{id}", s.withRequestLog(s.handleEditSubcategory))
	mux.HandleFunc("POST /subcategorias/deletar/{id}", s.withRequestLog(s.handleDeleteSubcategory))

	return s
}

// Shutdown stops the rate limiter before draining in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.Server.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.repo.Ping(ctx); err != nil {
		checks["database"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		s.headers.Apply(w, r)

		clientIP := security.ClientIP(r)
		if r.Method == http.MethodPost && !s.limiter.Allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"request_id", requestID, "client_ip", clientIP, "url", r.URL.Path)
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"client_ip", clientIP,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "template", name)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "template", name, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

package http

import (
	"context"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"billed/internal/billing"
	"billed/internal/cache"
	"billed/internal/core"
	"billed/internal/files"
	"billed/internal/log"
	"billed/internal/middleware/ratelimit"
	"billed/internal/middleware/security"
	"billed/internal/middleware/trace"
	"billed/internal/session"
	"billed/internal/store"
	appweb "billed/web"
)

// Options tunes the server. Zero fields take DefaultOptions values.
type Options struct {
	ModalWidth     int
	StoreTimeout   time.Duration
	ListCacheSize  int
	ListCacheTTL   time.Duration
	DraftTTL       time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	MaxUploadBytes int64
	SecureCookies  bool
}

func DefaultOptions() Options {
	return Options{
		ModalWidth:     800,
		StoreTimeout:   15 * time.Second,
		ListCacheSize:  256,
		ListCacheTTL:   30 * time.Second,
		DraftTTL:       2 * time.Hour,
		RateLimitRPS:   5,
		RateLimitBurst: 10,
		MaxUploadBytes: 10 << 20,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.ModalWidth <= 0 {
		o.ModalWidth = def.ModalWidth
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = def.StoreTimeout
	}
	if o.ListCacheSize <= 0 {
		o.ListCacheSize = def.ListCacheSize
	}
	if o.ListCacheTTL <= 0 {
		o.ListCacheTTL = def.ListCacheTTL
	}
	if o.DraftTTL <= 0 {
		o.DraftTTL = def.DraftTTL
	}
	if o.RateLimitRPS <= 0 {
		o.RateLimitRPS = def.RateLimitRPS
	}
	if o.RateLimitBurst <= 0 {
		o.RateLimitBurst = def.RateLimitBurst
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = def.MaxUploadBytes
	}
	return o
}

// Deps are the collaborators the handlers drive.
type Deps struct {
	Bills  store.BillStore
	Tokens *session.TokenManager
	// Files serves stored proofs. Nil disables the files route.
	Files  *files.Store
	Ping   func(ctx context.Context) error
	Logger *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	bills     store.BillStore
	tokens    *session.TokenManager
	ping      func(ctx context.Context) error
	logger    *log.Logger
	opts      Options

	listCache *cache.LRUCache[[]billing.FormattedBill]
	drafts    *cache.LRUCache[*draft]
	caches    *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	started      time.Time
	shutdownOnce sync.Once
}

var templateFuncs = template.FuncMap{
	"amount": core.FormatAmount,
	"vat":    core.FormatVAT,
	"deref":  core.Deref,
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	opts = opts.withDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		bills:     deps.Bills,
		tokens:    deps.Tokens,
		ping:      deps.Ping,
		logger:    logger.WithComponent(log.ComponentHTTP),
		opts:      opts,
		listCache: cache.NewLRUCache[[]billing.FormattedBill](opts.ListCacheSize, opts.ListCacheTTL),
		drafts:    cache.NewLRUCache[*draft](opts.ListCacheSize, opts.DraftTTL),
		caches:    cache.NewManager(logger),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: opts.RateLimitRPS,
			Burst:             opts.RateLimitBurst,
		}),
		detector: security.NewDetector(),
		started:  time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ClientIP)

	s.caches.Register(s.listCache)
	s.caches.Register(s.drafts)
	s.caches.Start(context.Background(), time.Minute)
	s.limiter.Start(context.Background(), 5*time.Minute)

	t, err := template.New("billed").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
		t = nil
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}
	if deps.Files != nil {
		prefix := deps.Files.Prefix()
		mux.Handle("GET "+prefix, s.requireUser(http.StripPrefix(prefix, deps.Files.Handler())))
	}

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, billing.PathBills, http.StatusSeeOther)
	})
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /session", s.handleSession)

	mux.Handle("GET "+billing.PathBills, s.requireUser(http.HandlerFunc(s.handleListBills)))
	mux.Handle("POST /bills/actions/new", s.requireUser(http.HandlerFunc(s.handleNewBillButton)))
	mux.Handle("GET /bills/proof", s.requireUser(http.HandlerFunc(s.handleProofPreview)))
	mux.Handle("GET "+billing.PathNewBill, s.requireUser(http.HandlerFunc(s.handleNewBillPage)))
	mux.Handle("POST /bills/new/file", s.requireUser(http.HandlerFunc(s.handleUploadProof)))
	mux.Handle("POST "+billing.PathNewBill, s.requireUser(http.HandlerFunc(s.handleSubmitBill)))

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ClientIP, s.onRateLimited)(h)
	h = s.flagProbes(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) flagProbes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.Suspicious(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ClientIP(r),
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Trop de requêtes, réessayez plus tard.").Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady checks templates and the bills backend
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.bills == nil:
		checks["backend"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	case s.ping != nil:
		if err := s.ping(ctx); err != nil {
			checks["backend"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	default:
		checks["backend"] = "ok"
	}

	checks["cache"] = map[string]int{
		"list_entries":  s.listCache.Size(),
		"draft_entries": s.drafts.Size(),
	}
	checks["rate_limiter"] = s.limiter.GetMetrics()
	checks["requests"] = map[string]int64{
		"total":      s.tracer.TotalRequests(),
		"suspicious": s.detector.SuspiciousCount(),
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

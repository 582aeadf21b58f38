package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vetassist/docpipeline/internal/api/handlers"
	"github.com/vetassist/docpipeline/internal/api/middleware"
	"github.com/vetassist/docpipeline/internal/auth"
	"github.com/vetassist/docpipeline/internal/cache"
	"github.com/vetassist/docpipeline/internal/config"
	"github.com/vetassist/docpipeline/internal/embedding"
	"github.com/vetassist/docpipeline/internal/ingest"
	"github.com/vetassist/docpipeline/internal/llm"
	"github.com/vetassist/docpipeline/internal/queue"
	"github.com/vetassist/docpipeline/internal/rag"
	"github.com/vetassist/docpipeline/internal/storage"
	"github.com/vetassist/docpipeline/internal/vectorstore"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	jwt   *auth.JWTMiddleware
	llmGW llm.Gateway
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
		jwt:   auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
		llmGW: llm.NewGateway(cfg.LLM),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Initialize services
	store := storage.NewSupabaseStorage(rt.cfg.Storage.SupabaseURL, rt.cfg.Storage.SupabaseKey)
	docSvc := ingest.NewService(rt.db, store, rt.cfg.Storage.Bucket)
	queueClient := queue.NewClient(rt.cfg.Redis)

	vs := vectorstore.NewPgVectorStore(rt.db)
	embedSvc := embedding.NewService(rt.llmGW, rt.cfg.LLM.EmbeddingModel)
	ragPipeline := rag.NewPipeline(vs, embedSvc, docSvc, cache.NewCache(rt.redis), rag.Options{
		Threshold:       rt.cfg.Retrieval.Threshold,
		MaxResults:      rt.cfg.Retrieval.MaxResults,
		MaxContextChars: rt.cfg.Retrieval.MaxContextChars,
		CacheTTL:        rt.cfg.Retrieval.CacheTTL,
	})

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)

		docH := handlers.NewDocumentHandler(docSvc, queueClient)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
			r.Get("/", docH.List)
			r.Get("/{id}", docH.Get)
			r.Delete("/{id}", docH.Delete)
			r.Get("/{id}/status", docH.Status)
			r.Post("/{id}/reanalyze", docH.Reanalyze)
		})

		queryH := handlers.NewQueryHandler(ragPipeline)
		r.Post("/query", queryH.Query)
		r.Post("/search", queryH.Search)
	})

	return r
}

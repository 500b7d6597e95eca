package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"RelatedPosts/internal/config"
	"RelatedPosts/internal/domain"
	"RelatedPosts/internal/infrastructure/cache"
	"RelatedPosts/internal/infrastructure/content"
	"RelatedPosts/internal/infrastructure/fixtures"
	"RelatedPosts/internal/infrastructure/scheduler"
	"RelatedPosts/internal/infrastructure/storage"
	"RelatedPosts/internal/logging"
	"RelatedPosts/internal/ports"
	"RelatedPosts/internal/usecase"
)

const excerptLength = 160

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	repo      *storage.SQLRepository
	redis     *cache.RedisCache
	related   *usecase.RelatedPosts
	warmer    *usecase.Warmer
	scheduler *usecase.Scheduler
}

// New opens the catalog database and builds the use cases on top of it.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	dialect, err := storage.DialectByName(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(ctx, dialect, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	repo := storage.NewSQLRepository(db, dialect)

	a := &Application{cfg: cfg, logger: baseLogger, db: db, repo: repo}

	var postCache ports.Cache
	if cfg.Cache.Enabled() {
		a.redis = cache.NewRedisCache(cfg.Cache)
		if err := a.redis.Ping(ctx); err != nil {
			baseLogger.Warn("redis unavailable, serving uncached", "addr", cfg.Cache.RedisAddr, "error", err)
		}
		postCache = a.redis
	}

	recommender := usecase.NewRecommender(repo, baseLogger.With("component", "recommender"))
	a.related = usecase.NewRelatedPosts(usecase.RelatedPostsDeps{
		Finder:      repo,
		Recommender: recommender,
		Cache:       postCache,
		CacheTTL:    cfg.Cache.TTL,
		Logger:      baseLogger.With("component", "related"),
	})
	a.warmer = usecase.NewWarmer(repo, a.related, cfg.Recommendations.DefaultLimit, baseLogger.With("component", "warmer"))
	a.scheduler = usecase.NewScheduler(
		scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location()),
		a.warmer,
		baseLogger.With("component", "scheduler"),
	)

	return a, nil
}

// Migrate creates the catalog schema.
func (a *Application) Migrate(ctx context.Context) error {
	return a.repo.Migrate(ctx)
}

// Seed migrates the schema and loads the fixture catalog at path.
func (a *Application) Seed(ctx context.Context, path string) (int, error) {
	catalog, err := fixtures.Load(path)
	if err != nil {
		return 0, err
	}
	if err := a.repo.Migrate(ctx); err != nil {
		return 0, err
	}

	n, err := fixtures.Apply(ctx, a.repo, catalog)
	if err != nil {
		return n, err
	}
	a.logger.Info("catalog seeded", "path", path, "categories", len(catalog.Categories), "posts", n)
	return n, nil
}

// Related writes the recommendations for slug to w. A zero limit selects
// the configured default; negative limits are rejected by the ranker.
func (a *Application) Related(ctx context.Context, slug string, limit int, w io.Writer) error {
	if limit == 0 {
		limit = a.cfg.Recommendations.DefaultLimit
	}

	seed, related, err := a.related.ForSlug(ctx, slug, limit)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Related to %q (%s)\n", seed.Title, seed.Category.Title); err != nil {
		return err
	}
	if len(related) == 0 {
		_, err := fmt.Fprintln(w, "  no related posts")
		return err
	}
	for i, post := range related {
		if err := writePost(w, i+1, post); err != nil {
			return err
		}
	}
	return nil
}

func writePost(w io.Writer, n int, post domain.Post) error {
	minutes, err := content.ReadingTime(post.Content)
	if err != nil {
		return fmt.Errorf("reading time %s: %w", post.Slug, err)
	}

	source := post.Intro
	if source == "" {
		source = post.Content
	}
	excerpt, err := content.Excerpt(source, excerptLength)
	if err != nil {
		return fmt.Errorf("excerpt %s: %w", post.Slug, err)
	}

	if _, err := fmt.Fprintf(w, "%d. %s [%s] %s, %d min read\n", n, post.Title, post.Category.Title, post.CreatedAt.Format("2006-01-02"), minutes); err != nil {
		return err
	}
	if excerpt != "" {
		if _, err := fmt.Fprintf(w, "   %s\n", excerpt); err != nil {
			return err
		}
	}
	return nil
}

// Warm refreshes the cached lists of every published post once.
func (a *Application) Warm(ctx context.Context) (usecase.WarmReport, error) {
	return a.warmer.Warm(ctx)
}

// Schedule runs the warmer on the configured cron expression until ctx is done.
func (a *Application) Schedule(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("warmer scheduled", "cron", a.cfg.Scheduler.CronExpression, "timezone", a.cfg.Scheduler.Location().String())

	<-ctx.Done()

	// ctx is already cancelled; give running jobs a fresh context to finish.
	return a.scheduler.Stop(context.Background())
}

// Close releases the database and cache connections.
func (a *Application) Close() error {
	var firstErr error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			firstErr = err
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close database: %w", err)
		}
	}
	return firstErr
}

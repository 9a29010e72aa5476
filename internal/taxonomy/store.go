package taxonomy

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Category is one entry of the closed category taxonomy.
type Category struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

// Subcategory is one entry of a category's closed subcategory list.
type Subcategory struct {
	ID         int32  `json:"id"`
	Name       string `json:"name"`
	CategoryID int32  `json:"category_id"`
}

// Store is the taxonomy collaborator: read the closed category and
// subcategory lists, create new entries when the caller opted in.
type Store interface {
	ListCategories(ctx context.Context) ([]Category, error)
	ListSubcategories(ctx context.Context, categoryID int32) ([]Subcategory, error)
	CreateCategory(ctx context.Context, name string) (Category, error)
	CreateSubcategory(ctx context.Context, name string, categoryID int32) (Subcategory, error)
	ListBrands(ctx context.Context) ([]string, error)
}

type pgStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore wraps a pgx pool as the taxonomy store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &pgStore{pool: pool, logger: logger}
}

// PoolConfig mirrors the pool knobs exposed through the environment.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// OpenPool creates the catalog database pool and verifies connectivity.
func OpenPool(ctx context.Context, cfg PoolConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Info("connecting to catalog database")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "dukaaon-extractor"

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to catalog database", "error", err)
		return nil, err
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("catalog database connected")
	return pool, nil
}

func (s *pgStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *pgStore) ListSubcategories(ctx context.Context, categoryID int32) ([]Subcategory, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, category_id FROM subcategories WHERE category_id = $1 ORDER BY name`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subcategory
	for rows.Next() {
		var sc Subcategory
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.CategoryID); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *pgStore) CreateCategory(ctx context.Context, name string) (Category, error) {
	var c Category
	err := s.pool.QueryRow(ctx,
		`INSERT INTO categories (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name`, name).Scan(&c.ID, &c.Name)
	if err != nil {
		s.logger.Error("create category failed", "name", name, "error", err)
		return Category{}, err
	}
	return c, nil
}

func (s *pgStore) CreateSubcategory(ctx context.Context, name string, categoryID int32) (Subcategory, error) {
	var sc Subcategory
	err := s.pool.QueryRow(ctx,
		`INSERT INTO subcategories (name, category_id) VALUES ($1, $2)
		 ON CONFLICT (name, category_id) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name, category_id`, name, categoryID).Scan(&sc.ID, &sc.Name, &sc.CategoryID)
	if err != nil {
		s.logger.Error("create subcategory failed", "name", name, "category_id", categoryID, "error", err)
		return Subcategory{}, err
	}
	return sc, nil
}

func (s *pgStore) ListBrands(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT brand FROM products WHERE brand IS NOT NULL AND brand <> '' ORDER BY brand`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

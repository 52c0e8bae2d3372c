package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pkg/logging"

	_ "modernc.org/sqlite" // 纯 Go SQLite 驱动（无需 CGO）
)

// SQLiteCatalog 是基于 SQLite 的持久化目录与用户历史。
//
// 商品的 spaces/styles/reviews 以 JSON 列存储，过滤与级联删除使用内置 JSON1 函数。
// 目录顺序为插入顺序（seq 自增列）。时间统一以 Unix 纳秒整数存储。
//
// 单语句操作天然原子；评论追加/删除与历史写入使用事务。
type SQLiteCatalog struct {
	db     *sql.DB
	cap    int
	logger zerolog.Logger
}

// NewSQLiteCatalog 打开（必要时创建）数据库并执行迁移。historyCap <= 0 时取 core.HistoryCap。
func NewSQLiteCatalog(path string, historyCap int) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite 单写者；串行化连接避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if historyCap <= 0 {
		historyCap = core.HistoryCap
	}
	s := &SQLiteCatalog{db: db, cap: historyCap, logger: logging.Component("store.sqlite")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteCatalog) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT '',
		spaces TEXT NOT NULL DEFAULT '[]',
		styles TEXT NOT NULL DEFAULT '[]',
		rating REAL NOT NULL DEFAULT 0,
		review_count INTEGER NOT NULL DEFAULT 0,
		reviews TEXT NOT NULL DEFAULT '[]',
		image_url TEXT NOT NULL DEFAULT '',
		purchase_link TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS spaces (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS styles (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS user_history (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		action TEXT NOT NULL,
		ts INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_user_ts ON user_history(user_id, ts);
	CREATE INDEX IF NOT EXISTS idx_history_product ON user_history(product_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close 关闭数据库
func (s *SQLiteCatalog) Close() error {
	return s.db.Close()
}

var (
	_ core.CatalogStore  = (*SQLiteCatalog)(nil)
	_ core.CatalogWriter = (*SQLiteCatalog)(nil)
	_ core.HistoryStore  = (*SQLiteCatalog)(nil)
	_ core.HistoryWriter = (*SQLiteCatalog)(nil)
)

const productColumns = `id, name, description, price, category, spaces, styles, rating, review_count, reviews, image_url, purchase_link, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*core.Product, error) {
	var (
		p                       core.Product
		spaces, styles, reviews string
		created                 int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &spaces, &styles,
		&p.Rating, &p.ReviewCount, &reviews, &p.ImageURL, &p.PurchaseURL, &created)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(spaces), &p.Spaces); err != nil {
		return nil, fmt.Errorf("decode spaces: %w", err)
	}
	if err := json.Unmarshal([]byte(styles), &p.Styles); err != nil {
		return nil, fmt.Errorf("decode styles: %w", err)
	}
	if err := json.Unmarshal([]byte(reviews), &p.Reviews); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	return &p, nil
}

func jsonList[T any](v []T) string {
	if v == nil {
		return "[]"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func (s *SQLiteCatalog) queryProducts(ctx context.Context, query string, args ...any) ([]*core.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()
	out := make([]*core.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteCatalog) findTaxon(ctx context.Context, table, name string) (*core.Taxon, error) {
	var t core.Taxon
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, image FROM `+table+` WHERE name = ?`, name).
		Scan(&t.ID, &t.Name, &t.Description, &t.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", table, err)
	}
	return &t, nil
}

func (s *SQLiteCatalog) listTaxa(ctx context.Context, table string) ([]core.Taxon, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, image FROM `+table+` ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()
	out := make([]core.Taxon, 0)
	for rows.Next() {
		var t core.Taxon
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Image); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteCatalog) FindSpaceByName(ctx context.Context, name string) (*core.Space, error) {
	return s.findTaxon(ctx, "spaces", name)
}

func (s *SQLiteCatalog) FindStyleByName(ctx context.Context, name string) (*core.Style, error) {
	return s.findTaxon(ctx, "styles", name)
}

func (s *SQLiteCatalog) ListSpaces(ctx context.Context) ([]core.Space, error) {
	return s.listTaxa(ctx, "spaces")
}

func (s *SQLiteCatalog) ListStyles(ctx context.Context) ([]core.Style, error) {
	return s.listTaxa(ctx, "styles")
}

func (s *SQLiteCatalog) FindProductsBySpaceAndStyle(ctx context.Context, spaceID, styleID string, categories []string) ([]*core.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p
		WHERE EXISTS (SELECT 1 FROM json_each(p.spaces) WHERE value = ?)
		  AND EXISTS (SELECT 1 FROM json_each(p.styles) WHERE value = ?)`
	args := []any{spaceID, styleID}
	if len(categories) > 0 {
		query += ` AND p.category IN (?` + strings.Repeat(", ?", len(categories)-1) + `)`
		for _, c := range categories {
			args = append(args, c)
		}
	}
	query += ` ORDER BY p.seq`
	return s.queryProducts(ctx, query, args...)
}

func (s *SQLiteCatalog) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *SQLiteCatalog) ListProducts(ctx context.Context) ([]*core.Product, error) {
	return s.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY seq`)
}

func (s *SQLiteCatalog) CreateProduct(ctx context.Context, p *core.Product) (*core.Product, error) {
	c := p.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.RecomputeRating()
	_, err := s.db.ExecContext(ctx, `INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.Price, c.Category, jsonList(c.Spaces), jsonList(c.Styles),
		c.Rating, c.ReviewCount, jsonList(c.Reviews), c.ImageURL, c.PurchaseURL, c.CreatedAt.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, core.Validation(core.ModuleStore, "product "+c.ID+" already exists", nil)
		}
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return c, nil
}

// UpdateProduct 更新商品基本字段；评论相关字段不经此修改。
func (s *SQLiteCatalog) UpdateProduct(ctx context.Context, p *core.Product) (*core.Product, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE products SET name = ?, description = ?, price = ?, category = ?,
		spaces = ?, styles = ?, image_url = ?, purchase_link = ? WHERE id = ?`,
		p.Name, p.Description, p.Price, p.Category, jsonList(p.Spaces), jsonList(p.Styles),
		p.ImageURL, p.PurchaseURL, p.ID)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, core.NotFound(core.ModuleStore, "product %s not found", p.ID)
	}
	return s.GetProduct(ctx, p.ID)
}

// DeleteProduct 删除商品并从所有用户历史中移除对它的引用。
func (s *SQLiteCatalog) DeleteProduct(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.NotFound(core.ModuleStore, "product %s not found", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_history WHERE product_id = ?`, id); err != nil {
			return fmt.Errorf("delete product history: %w", err)
		}
		return nil
	})
}

func (s *SQLiteCatalog) createTaxon(ctx context.Context, table string, t core.Taxon) (*core.Taxon, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO `+table+` (id, name, description, image) VALUES (?, ?, ?, ?)`,
		t.ID, t.Name, t.Description, t.Image)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, core.Validation(core.ModuleStore, table+" name "+t.Name+" already exists", nil)
		}
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	return &t, nil
}

func (s *SQLiteCatalog) updateTaxon(ctx context.Context, table string, t core.Taxon) (*core.Taxon, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE `+table+` SET name = ?, description = ?, image = ? WHERE id = ?`,
		t.Name, t.Description, t.Image, t.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, core.Validation(core.ModuleStore, table+" name "+t.Name+" already exists", nil)
		}
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, core.NotFound(core.ModuleStore, "%s %s not found", table, t.ID)
	}
	return &t, nil
}

// deleteTaxon 删除空间/风格，并在同一事务中从所有商品的对应列表移除该 id。
func (s *SQLiteCatalog) deleteTaxon(ctx context.Context, table, column, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.NotFound(core.ModuleStore, "%s %s not found", table, id)
		}
		res, err = tx.ExecContext(ctx, `UPDATE products SET `+column+` = (
				SELECT COALESCE(json_group_array(value), '[]') FROM (
					SELECT value FROM json_each(products.`+column+`) WHERE value != ? ORDER BY key
				)
			) WHERE EXISTS (SELECT 1 FROM json_each(products.`+column+`) WHERE value = ?)`, id, id)
		if err != nil {
			return fmt.Errorf("cascade %s: %w", column, err)
		}
		n, _ := res.RowsAffected()
		s.logger.Debug().Str(column[:len(column)-1], id).Int64("products", n).Msg("cascade removed reference")
		return nil
	})
}

func (s *SQLiteCatalog) CreateSpace(ctx context.Context, sp core.Space) (*core.Space, error) {
	return s.createTaxon(ctx, "spaces", sp)
}

func (s *SQLiteCatalog) UpdateSpace(ctx context.Context, sp core.Space) (*core.Space, error) {
	return s.updateTaxon(ctx, "spaces", sp)
}

func (s *SQLiteCatalog) DeleteSpace(ctx context.Context, id string) error {
	return s.deleteTaxon(ctx, "spaces", "spaces", id)
}

func (s *SQLiteCatalog) CreateStyle(ctx context.Context, st core.Style) (*core.Style, error) {
	return s.createTaxon(ctx, "styles", st)
}

func (s *SQLiteCatalog) UpdateStyle(ctx context.Context, st core.Style) (*core.Style, error) {
	return s.updateTaxon(ctx, "styles", st)
}

func (s *SQLiteCatalog) DeleteStyle(ctx context.Context, id string) error {
	return s.deleteTaxon(ctx, "styles", "styles", id)
}

// mutateReviews 在事务中读-改-写评论列表并重算评分。
func (s *SQLiteCatalog) mutateReviews(ctx context.Context, productID string, fn func(p *core.Product) error) (*core.Product, error) {
	var out *core.Product
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := scanProduct(tx.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, productID))
		if errors.Is(err, sql.ErrNoRows) {
			return core.NotFound(core.ModuleStore, "product %s not found", productID)
		}
		if err != nil {
			return fmt.Errorf("get product: %w", err)
		}
		if err := fn(p); err != nil {
			return err
		}
		p.RecomputeRating()
		_, err = tx.ExecContext(ctx, `UPDATE products SET reviews = ?, rating = ?, review_count = ? WHERE id = ?`,
			jsonList(p.Reviews), p.Rating, p.ReviewCount, p.ID)
		if err != nil {
			return fmt.Errorf("update reviews: %w", err)
		}
		out = p
		return nil
	})
	return out, err
}

func (s *SQLiteCatalog) AddReview(ctx context.Context, productID string, r core.Review) (*core.Product, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	return s.mutateReviews(ctx, productID, func(p *core.Product) error {
		p.Reviews = append(p.Reviews, r)
		return nil
	})
}

func (s *SQLiteCatalog) RemoveReview(ctx context.Context, productID, reviewID string) (*core.Product, error) {
	return s.mutateReviews(ctx, productID, func(p *core.Product) error {
		i := slices.IndexFunc(p.Reviews, func(r core.Review) bool { return r.ID == reviewID })
		if i < 0 {
			return core.NotFound(core.ModuleStore, "review %s not found", reviewID)
		}
		p.Reviews = slices.Delete(p.Reviews, i, i+1)
		return nil
	})
}

// GetUserHistory 按时间倒序返回。
func (s *SQLiteCatalog) GetUserHistory(ctx context.Context, userID string) ([]core.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, product_id, action, ts FROM user_history WHERE user_id = ? ORDER BY ts DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	out := make([]core.HistoryEntry, 0)
	for rows.Next() {
		var (
			e  core.HistoryEntry
			ts int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.ProductID, &e.Action, &ts); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// AppendHistory 写入一条历史；达到上限时先删除该用户时间戳最小的记录。
func (s *SQLiteCatalog) AppendHistory(ctx context.Context, e core.HistoryEntry) (*core.HistoryEntry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_history WHERE user_id = ?`, e.UserID).Scan(&n); err != nil {
			return fmt.Errorf("count history: %w", err)
		}
		if over := n - s.cap + 1; over > 0 {
			_, err := tx.ExecContext(ctx, `DELETE FROM user_history WHERE id IN (
				SELECT id FROM user_history WHERE user_id = ? ORDER BY ts ASC LIMIT ?)`, e.UserID, over)
			if err != nil {
				return fmt.Errorf("evict history: %w", err)
			}
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO user_history (id, user_id, product_id, action, ts) VALUES (?, ?, ?, ?, ?)`,
			e.ID, e.UserID, e.ProductID, string(e.Action), e.Timestamp.UnixNano())
		if err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteCatalog) DeleteUserHistory(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_history WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

func (s *SQLiteCatalog) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

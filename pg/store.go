package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doujins-org/recokit/internalerr"
	"github.com/doujins-org/recokit/ranking"
	"github.com/doujins-org/recokit/store"
)

// Store reads and writes recokit tables in one Postgres schema.
//
// Tables:
//   - <schema>.friends
//   - <schema>.products
//   - <schema>.friend_events
//   - <schema>.product_embeddings
type Store struct {
	pool   *pgxpool.Pool
	schema string // quoted
}

var _ store.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool, schema string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	qs, err := quoteIdent(schema)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Store{pool: pool, schema: qs}, nil
}

func (s *Store) table(name string) string { return s.schema + "." + name }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) ListObservations(ctx context.Context, f store.ObservationFilter) ([]ranking.Observation, error) {
	var b strings.Builder
	b.WriteString(`
		SELECT p.id, p.name, p.brand, p.category, p.price::text, p.description,
			f.id, f.name, f.avatar_url, f.strength,
			fe.event_type, fe.event_ts`)
	if f.WithEmbeddings {
		b.WriteString(`, pe.embedding::text`)
	}
	fmt.Fprintf(&b, `
		FROM %s fe
		JOIN %s f ON f.id = fe.friend_id
		JOIN %s p ON p.id = fe.product_id`,
		s.table("friend_events"), s.table("friends"), s.table("products"))
	if f.WithEmbeddings {
		fmt.Fprintf(&b, `
		LEFT JOIN %s pe ON pe.product_id = p.id`, s.table("product_embeddings"))
	}
	var args []any
	if c := strings.TrimSpace(f.Category); c != "" {
		b.WriteString(`
		WHERE lower(p.category) = lower($1)`)
		args = append(args, c)
	}
	b.WriteString(`
		ORDER BY fe.id`)

	rows, err := s.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ranking.Observation
	for rows.Next() {
		var o ranking.Observation
		var eventType string
		var emb *string
		dest := []any{
			&o.ProductID, &o.Name, &o.Brand, &o.Category, &o.Price, &o.Description,
			&o.FriendID, &o.FriendName, &o.FriendAvatar, &o.FriendStrength,
			&eventType, &o.EventAt,
		}
		if f.WithEmbeddings {
			dest = append(dest, &emb)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		o.EventType = ranking.EventType(eventType)
		if emb != nil {
			vec, err := parseVector(*emb)
			if err != nil {
				return nil, fmt.Errorf("product %d: %w", o.ProductID, err)
			}
			o.Embedding = vec
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) CountProductEmbeddings(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table("product_embeddings"))).Scan(&n)
	return n, err
}

func (s *Store) ListFriends(ctx context.Context) ([]store.Friend, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, name, avatar_url, strength
		FROM %s
		ORDER BY strength DESC, id
	`, s.table("friends")))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []store.Friend{}
	for rows.Next() {
		var f store.Friend
		if err := rows.Scan(&f.ID, &f.Name, &f.AvatarURL, &f.Strength); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	var st store.Stats
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT
			(SELECT COUNT(*) FROM %s),
			(SELECT COUNT(*) FROM %s),
			(SELECT COUNT(*) FROM %s),
			(SELECT COUNT(*) FROM %s)
	`, s.table("products"), s.table("friends"), s.table("friend_events"), s.table("product_embeddings"))).
		Scan(&st.Products, &st.Friends, &st.Events, &st.Embeddings)
	return st, err
}

// ListEventProducts returns every product at least one friend interacted with.
func (s *Store) ListEventProducts(ctx context.Context) ([]store.Product, error) {
	q := fmt.Sprintf(`
		SELECT p.id, p.name, p.brand, p.category, p.price::text, p.description
		FROM %s p
		WHERE EXISTS (SELECT 1 FROM %s fe WHERE fe.product_id = p.id)
		ORDER BY p.id
	`, s.table("products"), s.table("friend_events"))
	return s.queryProducts(ctx, q)
}

// RecordEvent inserts a friend event and returns its id. A missing friend or
// product yields internalerr.ErrNotFound.
func (s *Store) RecordEvent(ctx context.Context, e store.NewEvent) (int64, error) {
	if e.EventType != ranking.EventPurchase && e.EventType != ranking.EventView {
		return 0, fmt.Errorf("event type %q: %w", e.EventType, internalerr.ErrInvalidInput)
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	var id int64
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (friend_id, product_id, event_type, event_ts)
		SELECT f.id, p.id, $3::text, $4::timestamptz
		FROM %s f, %s p
		WHERE f.id = $1 AND p.id = $2
		RETURNING id
	`, s.table("friend_events"), s.table("friends"), s.table("products")),
		e.FriendID, e.ProductID, string(e.EventType), at).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("friend %d or product %d: %w", e.FriendID, e.ProductID, internalerr.ErrNotFound)
	}
	return id, err
}

func (s *Store) queryProducts(ctx context.Context, q string, args ...any) ([]store.Product, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Product
	for rows.Next() {
		var p store.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.Price, &p.Description); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ store.Seeder = (*Store)(nil)

// SeedCatalog loads c in one transaction when the friends table is empty. The
// friends table is locked for the check so concurrent starts seed once. Serial
// sequences are moved past the explicit ids.
func (s *Store) SeedCatalog(ctx context.Context, c store.Catalog) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf(`LOCK TABLE %s IN EXCLUSIVE MODE`, s.table("friends"))); err != nil {
		return false, fmt.Errorf("lock friends: %w", err)
	}
	var populated bool
	if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s)`, s.table("friends"))).Scan(&populated); err != nil {
		return false, err
	}
	if populated {
		return false, nil
	}

	batch := &pgx.Batch{}
	insertFriend := fmt.Sprintf(`INSERT INTO %s (id, name, avatar_url, strength) VALUES ($1, $2, $3, $4)`, s.table("friends"))
	for _, f := range c.Friends {
		batch.Queue(insertFriend, f.ID, f.Name, f.AvatarURL, f.Strength)
	}
	insertProduct := fmt.Sprintf(`
		INSERT INTO %s (id, name, brand, category, price, description)
		VALUES ($1, $2, $3, $4, $5::numeric, $6)`, s.table("products"))
	for _, p := range c.Products {
		price := p.Price
		if price == "" {
			price = "0"
		}
		batch.Queue(insertProduct, p.ID, p.Name, p.Brand, p.Category, price, p.Description)
	}
	insertEvent := fmt.Sprintf(`
		INSERT INTO %s (friend_id, product_id, event_type, event_ts)
		VALUES ($1, $2, $3, $4)`, s.table("friend_events"))
	now := time.Now()
	for _, e := range c.Events {
		if e.EventType != ranking.EventPurchase && e.EventType != ranking.EventView {
			return false, fmt.Errorf("event type %q: %w", e.EventType, internalerr.ErrInvalidInput)
		}
		at := e.At
		if at.IsZero() {
			at = now
		}
		batch.Queue(insertEvent, e.FriendID, e.ProductID, string(e.EventType), at)
	}
	for _, name := range []string{"friends", "products"} {
		batch.Queue(fmt.Sprintf(`
			SELECT setval(pg_get_serial_sequence($1, 'id'), GREATEST((SELECT COALESCE(MAX(id), 0) FROM %s), 1))`,
			s.table(name)), s.table(name))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return false, fmt.Errorf("insert catalog: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

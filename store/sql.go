package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/bsaid97/go-overlap-checker/layers"
	"github.com/bsaid97/go-overlap-checker/logger"
)

const (
	// DefaultEnvelopeColumn is the PostGIS geometry column used for bounding
	// box pushdown.
	DefaultEnvelopeColumn = "geometria_tmp"
	DefaultSRID           = 4674
)

// SQL reads one table per layer. Geometry is stored as WKT text; on Postgres
// loads with Bounds are narrowed with the PostGIS && operator first.
type SQL struct {
	db     *sql.DB
	driver string

	EnvelopeColumn string
	SRID           int
}

// OpenSQL opens driver ("sqlite" or "postgres") at dsn and pings it.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	sqlDriver := driver
	if driver == DriverPostgres {
		sqlDriver = "pgx"
	}
	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return NewSQL(db, driver), nil
}

// NewSQL wraps an open database. driver decides the SQL dialect.
func NewSQL(db *sql.DB, driver string) *SQL {
	return &SQL{
		db:             db,
		driver:         driver,
		EnvelopeColumn: DefaultEnvelopeColumn,
		SRID:           DefaultSRID,
	}
}

func (s *SQL) Close() error { return s.db.Close() }

func (s *SQL) postgres() bool { return s.driver == DriverPostgres }

func (s *SQL) placeholder(n int) string {
	if s.postgres() {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// selectQuery builds the record query. Field keys are sorted so columns line
// up with the scan targets.
func (s *SQL) selectQuery(spec layers.Spec, opts LoadOptions) (string, []string, []any) {
	keys := make([]string, 0, len(spec.Fields))
	for k := range spec.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := []string{quote(spec.GeometryField)}
	for _, k := range keys {
		cols = append(cols, quote(spec.Column(k)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE %s IS NOT NULL",
		strings.Join(cols, ", "), quote(spec.Table), quote(spec.GeometryField))

	var args []any
	if opts.Bounds != nil && s.postgres() && s.EnvelopeColumn != "" {
		fmt.Fprintf(&b, " AND %s && ST_MakeEnvelope(%s, %s, %s, %s, %d)",
			quote(s.EnvelopeColumn), s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.SRID)
		args = append(args, opts.Bounds.MinX, opts.Bounds.MinY, opts.Bounds.MaxX, opts.Bounds.MaxY)
	}
	return b.String(), keys, args
}

func (s *SQL) Load(ctx context.Context, spec layers.Spec, opts LoadOptions) (Layer, error) {
	var total int
	countQuery := "SELECT COUNT(*) FROM " + quote(spec.Table)
	if err := s.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return Layer{}, fmt.Errorf("count %s: %w", spec.Table, err)
	}

	query, keys, args := s.selectQuery(spec, opts)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Layer{}, fmt.Errorf("query %s: %w", spec.Table, err)
	}
	defer rows.Close()

	records := make([]layers.Record, 0)
	values := make([]sql.NullString, len(keys)+1)
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return Layer{}, fmt.Errorf("scan %s: %w", spec.Table, err)
		}
		fields := make(map[string]string, len(keys))
		for i, k := range keys {
			fields[k] = values[i+1].String
		}
		records = append(records, layers.Record{Geometry: values[0].String, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return Layer{}, fmt.Errorf("iterate %s: %w", spec.Table, err)
	}

	logger.L().Debug("sql layer loaded",
		zap.String("table", spec.Table),
		zap.Int("records", len(records)),
		zap.Int("total", total),
		zap.Bool("bounded", len(args) > 0),
	)
	return newLayer(spec, records, total, opts), nil
}

func (s *SQL) FindParcel(ctx context.Context, spec layers.Spec, number string) (string, bool, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s LIMIT 1",
		quote(spec.GeometryField), quote(spec.Table), quote(spec.Column(layers.FieldParcelNumber)), s.placeholder(1))

	var geom sql.NullString
	err := s.db.QueryRowContext(ctx, query, number).Scan(&geom)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find parcel %s: %w", number, err)
	}
	return geom.String, geom.Valid && geom.String != "", nil
}

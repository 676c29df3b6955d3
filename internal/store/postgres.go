package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"

    _ "github.com/jackc/pgx/v5/stdlib"

    "supplygw/internal/model"
)

// Postgres backs the store with a shared database, for deployments where
// several instances serve the same supplier set.
type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil { return nil, err }
    if err := db.Ping(); err != nil { return nil, err }
    p := &Postgres{db: db}
    if err := p.migrate(context.Background()); err != nil {
        _ = db.Close()
        return nil, fmt.Errorf("migrate: %w", err)
    }
    return p, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) migrate(ctx context.Context) error {
    if _, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        version INT PRIMARY KEY,
        applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`); err != nil { return err }
    var current int
    if err := p.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
        return err
    }
    for _, m := range pgMigrations {
        if m.version <= current { continue }
        if _, err := p.db.ExecContext(ctx, m.sql); err != nil {
            return fmt.Errorf("migration %d: %w", m.version, err)
        }
        if _, err := p.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); err != nil {
            return err
        }
    }
    return nil
}

var pgMigrations = []struct {
    version int
    sql     string
}{
    {
        version: 1,
        sql: `
            CREATE TABLE branches (
                supplier_id  TEXT NOT NULL,
                branch_code  TEXT NOT NULL,
                name         TEXT NOT NULL DEFAULT '',
                nato_locode  TEXT NOT NULL DEFAULT '',
                latitude     DOUBLE PRECISION NOT NULL DEFAULT 0,
                longitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
                city         TEXT NOT NULL DEFAULT '',
                country      TEXT NOT NULL DEFAULT '',
                country_code TEXT NOT NULL DEFAULT '',
                PRIMARY KEY (supplier_id, branch_code)
            );

            CREATE TABLE locations (
                supplier_id TEXT NOT NULL,
                unlocode    TEXT NOT NULL,
                country     TEXT NOT NULL DEFAULT '',
                place       TEXT NOT NULL DEFAULT '',
                iata_code   TEXT NOT NULL DEFAULT '',
                latitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
                longitude   DOUBLE PRECISION NOT NULL DEFAULT 0,
                PRIMARY KEY (supplier_id, unlocode)
            );

            CREATE TABLE availability_samples (
                supplier_id  TEXT NOT NULL,
                criteria_key TEXT NOT NULL,
                id           TEXT NOT NULL,
                criteria     JSONB NOT NULL,
                offers       JSONB NOT NULL,
                content_hash TEXT NOT NULL,
                fetched_at   TIMESTAMPTZ NOT NULL,
                PRIMARY KEY (supplier_id, criteria_key)
            );

            CREATE TABLE verifications (
                id          TEXT PRIMARY KEY,
                supplier_id TEXT NOT NULL,
                passed      BOOLEAN NOT NULL,
                steps       JSONB NOT NULL,
                created_at  TIMESTAMPTZ NOT NULL
            );
            CREATE INDEX verifications_supplier_idx ON verifications (supplier_id, created_at DESC);

            CREATE TABLE endpoint_tests (
                supplier_id TEXT PRIMARY KEY,
                result      JSONB NOT NULL
            );

            CREATE TABLE supplier_configs (
                supplier_id TEXT PRIMARY KEY,
                config      JSONB NOT NULL
            );

            CREATE TABLE quotas (
                supplier_id TEXT PRIMARY KEY,
                subscribed  INT NOT NULL
            );
        `,
    },
}

func (p *Postgres) GetBranch(ctx context.Context, supplierID, branchCode string) (model.Branch, error) {
    var b model.Branch
    row := p.db.QueryRowContext(ctx, `SELECT branch_code, name, nato_locode, latitude, longitude, city, country, country_code
        FROM branches WHERE supplier_id=$1 AND branch_code=$2`, supplierID, branchCode)
    if err := row.Scan(&b.BranchCode, &b.Name, &b.NatoLocode, &b.Latitude, &b.Longitude, &b.City, &b.Country, &b.CountryCode); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return model.Branch{}, ErrNotFound }
        return model.Branch{}, err
    }
    return b, nil
}

func (p *Postgres) UpsertBranch(ctx context.Context, supplierID string, b model.Branch) (bool, bool, error) {
    prev, err := p.GetBranch(ctx, supplierID, b.BranchCode)
    created := errors.Is(err, ErrNotFound)
    if err != nil && !created { return false, false, err }
    if !created && prev == b { return false, false, nil }
    _, err = p.db.ExecContext(ctx, `INSERT INTO branches (supplier_id, branch_code, name, nato_locode, latitude, longitude, city, country, country_code)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (supplier_id, branch_code) DO UPDATE SET
            name=EXCLUDED.name, nato_locode=EXCLUDED.nato_locode,
            latitude=EXCLUDED.latitude, longitude=EXCLUDED.longitude,
            city=EXCLUDED.city, country=EXCLUDED.country, country_code=EXCLUDED.country_code`,
        supplierID, b.BranchCode, b.Name, b.NatoLocode, b.Latitude, b.Longitude, b.City, b.Country, b.CountryCode)
    if err != nil { return false, false, err }
    return created, true, nil
}

func (p *Postgres) ListBranches(ctx context.Context, supplierID, cursor string, limit int) ([]model.Branch, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    rows, err := p.db.QueryContext(ctx, `SELECT branch_code, name, nato_locode, latitude, longitude, city, country, country_code
        FROM branches WHERE supplier_id=$1 AND branch_code > $2 ORDER BY branch_code LIMIT $3`, supplierID, cursor, limit)
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.Branch{}
    var last string
    for rows.Next() {
        var b model.Branch
        if err := rows.Scan(&b.BranchCode, &b.Name, &b.NatoLocode, &b.Latitude, &b.Longitude, &b.City, &b.Country, &b.CountryCode); err != nil {
            return nil, "", err
        }
        out = append(out, b)
        last = b.BranchCode
    }
    var next string
    if len(out) == limit { next = last }
    return out, next, rows.Err()
}

func (p *Postgres) CountBranches(ctx context.Context, supplierID string) (int, error) {
    var n int
    err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM branches WHERE supplier_id=$1`, supplierID).Scan(&n)
    return n, err
}

func (p *Postgres) GetLocation(ctx context.Context, supplierID, unlocode string) (model.Location, error) {
    var l model.Location
    row := p.db.QueryRowContext(ctx, `SELECT unlocode, country, place, iata_code, latitude, longitude
        FROM locations WHERE supplier_id=$1 AND unlocode=$2`, supplierID, unlocode)
    if err := row.Scan(&l.Unlocode, &l.Country, &l.Place, &l.IataCode, &l.Latitude, &l.Longitude); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return model.Location{}, ErrNotFound }
        return model.Location{}, err
    }
    return l, nil
}

func (p *Postgres) UpsertLocation(ctx context.Context, supplierID string, l model.Location) (bool, bool, error) {
    prev, err := p.GetLocation(ctx, supplierID, l.Unlocode)
    created := errors.Is(err, ErrNotFound)
    if err != nil && !created { return false, false, err }
    if !created && prev == l { return false, false, nil }
    _, err = p.db.ExecContext(ctx, `INSERT INTO locations (supplier_id, unlocode, country, place, iata_code, latitude, longitude)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (supplier_id, unlocode) DO UPDATE SET
            country=EXCLUDED.country, place=EXCLUDED.place, iata_code=EXCLUDED.iata_code,
            latitude=EXCLUDED.latitude, longitude=EXCLUDED.longitude`,
        supplierID, l.Unlocode, l.Country, l.Place, l.IataCode, l.Latitude, l.Longitude)
    if err != nil { return false, false, err }
    return created, true, nil
}

func (p *Postgres) ListLocations(ctx context.Context, supplierID, cursor string, limit int) ([]model.Location, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    rows, err := p.db.QueryContext(ctx, `SELECT unlocode, country, place, iata_code, latitude, longitude
        FROM locations WHERE supplier_id=$1 AND unlocode > $2 ORDER BY unlocode LIMIT $3`, supplierID, cursor, limit)
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.Location{}
    var last string
    for rows.Next() {
        var l model.Location
        if err := rows.Scan(&l.Unlocode, &l.Country, &l.Place, &l.IataCode, &l.Latitude, &l.Longitude); err != nil {
            return nil, "", err
        }
        out = append(out, l)
        last = l.Unlocode
    }
    var next string
    if len(out) == limit { next = last }
    return out, next, rows.Err()
}

func (p *Postgres) GetSampleByKey(ctx context.Context, supplierID, key string) (model.AvailabilitySample, error) {
    var s model.AvailabilitySample
    var criteria, offers []byte
    row := p.db.QueryRowContext(ctx, `SELECT id, criteria, offers, content_hash, fetched_at
        FROM availability_samples WHERE supplier_id=$1 AND criteria_key=$2`, supplierID, key)
    if err := row.Scan(&s.ID, &criteria, &offers, &s.ContentHash, &s.FetchedAt); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return model.AvailabilitySample{}, ErrNotFound }
        return model.AvailabilitySample{}, err
    }
    if err := json.Unmarshal(criteria, &s.Criteria); err != nil { return model.AvailabilitySample{}, err }
    if err := json.Unmarshal(offers, &s.Offers); err != nil { return model.AvailabilitySample{}, err }
    return s, nil
}

func (p *Postgres) PutSample(ctx context.Context, supplierID, key string, s model.AvailabilitySample) error {
    criteria, _ := json.Marshal(s.Criteria)
    offers, _ := json.Marshal(s.Offers)
    _, err := p.db.ExecContext(ctx, `INSERT INTO availability_samples (supplier_id, criteria_key, id, criteria, offers, content_hash, fetched_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (supplier_id, criteria_key) DO UPDATE SET
            id=EXCLUDED.id, criteria=EXCLUDED.criteria, offers=EXCLUDED.offers,
            content_hash=EXCLUDED.content_hash, fetched_at=EXCLUDED.fetched_at`,
        supplierID, key, s.ID, criteria, offers, s.ContentHash, s.FetchedAt)
    return err
}

func (p *Postgres) ListSamples(ctx context.Context, supplierID, cursor string, limit int) ([]model.AvailabilitySample, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    rows, err := p.db.QueryContext(ctx, `SELECT criteria_key, id, criteria, offers, content_hash, fetched_at
        FROM availability_samples WHERE supplier_id=$1 AND criteria_key > $2 ORDER BY criteria_key LIMIT $3`, supplierID, cursor, limit)
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.AvailabilitySample{}
    var last string
    for rows.Next() {
        var s model.AvailabilitySample
        var key string
        var criteria, offers []byte
        if err := rows.Scan(&key, &s.ID, &criteria, &offers, &s.ContentHash, &s.FetchedAt); err != nil {
            return nil, "", err
        }
        if err := json.Unmarshal(criteria, &s.Criteria); err != nil { return nil, "", err }
        if err := json.Unmarshal(offers, &s.Offers); err != nil { return nil, "", err }
        out = append(out, s)
        last = key
    }
    var next string
    if len(out) == limit { next = last }
    return out, next, rows.Err()
}

func (p *Postgres) SaveVerification(ctx context.Context, supplierID string, v model.VerificationResult, cap int) error {
    steps, _ := json.Marshal(v.Steps)
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil { return err }
    defer func() { _ = tx.Rollback() }()
    if _, err := tx.ExecContext(ctx, `INSERT INTO verifications (id, supplier_id, passed, steps, created_at)
        VALUES ($1,$2,$3,$4,$5)`, v.ID, supplierID, v.Passed, steps, v.CreatedAt); err != nil {
        return err
    }
    if cap > 0 {
        if _, err := tx.ExecContext(ctx, `DELETE FROM verifications WHERE supplier_id=$1 AND id NOT IN (
            SELECT id FROM verifications WHERE supplier_id=$1 ORDER BY created_at DESC LIMIT $2)`, supplierID, cap); err != nil {
            return err
        }
    }
    return tx.Commit()
}

func (p *Postgres) ListVerifications(ctx context.Context, supplierID string, limit int) ([]model.VerificationResult, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    rows, err := p.db.QueryContext(ctx, `SELECT id, passed, steps, created_at
        FROM verifications WHERE supplier_id=$1 ORDER BY created_at DESC LIMIT $2`, supplierID, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.VerificationResult{}
    for rows.Next() {
        var v model.VerificationResult
        var steps []byte
        if err := rows.Scan(&v.ID, &v.Passed, &steps, &v.CreatedAt); err != nil { return nil, err }
        if err := json.Unmarshal(steps, &v.Steps); err != nil { return nil, err }
        out = append(out, v)
    }
    return out, rows.Err()
}

func (p *Postgres) LatestVerification(ctx context.Context, supplierID string) (model.VerificationResult, error) {
    hist, err := p.ListVerifications(ctx, supplierID, 1)
    if err != nil { return model.VerificationResult{}, err }
    if len(hist) == 0 { return model.VerificationResult{}, ErrNotFound }
    return hist[0], nil
}

func (p *Postgres) SaveEndpointTest(ctx context.Context, supplierID string, res model.EndpointTestResult) error {
    b, _ := json.Marshal(res)
    _, err := p.db.ExecContext(ctx, `INSERT INTO endpoint_tests (supplier_id, result) VALUES ($1,$2)
        ON CONFLICT (supplier_id) DO UPDATE SET result=EXCLUDED.result`, supplierID, b)
    return err
}

func (p *Postgres) LatestEndpointTest(ctx context.Context, supplierID string) (model.EndpointTestResult, error) {
    var b []byte
    err := p.db.QueryRowContext(ctx, `SELECT result FROM endpoint_tests WHERE supplier_id=$1`, supplierID).Scan(&b)
    if errors.Is(err, sql.ErrNoRows) { return model.EndpointTestResult{}, ErrNotFound }
    if err != nil { return model.EndpointTestResult{}, err }
    var res model.EndpointTestResult
    if err := json.Unmarshal(b, &res); err != nil { return model.EndpointTestResult{}, err }
    return res, nil
}

func (p *Postgres) GetSupplierConfig(ctx context.Context, supplierID string) (model.SupplierConfig, error) {
    var b []byte
    err := p.db.QueryRowContext(ctx, `SELECT config FROM supplier_configs WHERE supplier_id=$1`, supplierID).Scan(&b)
    if errors.Is(err, sql.ErrNoRows) { return model.SupplierConfig{}, ErrNotFound }
    if err != nil { return model.SupplierConfig{}, err }
    var cfg model.SupplierConfig
    if err := json.Unmarshal(b, &cfg); err != nil { return model.SupplierConfig{}, err }
    return cfg, nil
}

func (p *Postgres) SaveSupplierConfig(ctx context.Context, cfg model.SupplierConfig) error {
    b, _ := json.Marshal(cfg)
    _, err := p.db.ExecContext(ctx, `INSERT INTO supplier_configs (supplier_id, config) VALUES ($1,$2)
        ON CONFLICT (supplier_id) DO UPDATE SET config=EXCLUDED.config`, cfg.SupplierID, b)
    return err
}

func (p *Postgres) QuotaStatus(ctx context.Context, supplierID string) (int, int, error) {
    sub := defaultQuota
    err := p.db.QueryRowContext(ctx, `SELECT subscribed FROM quotas WHERE supplier_id=$1`, supplierID).Scan(&sub)
    if err != nil && !errors.Is(err, sql.ErrNoRows) { return 0, 0, err }
    used, err := p.CountBranches(ctx, supplierID)
    if err != nil { return 0, 0, err }
    return sub, used, nil
}

func (p *Postgres) IncreaseQuota(ctx context.Context, supplierID string, add int) error {
    _, err := p.db.ExecContext(ctx, `INSERT INTO quotas (supplier_id, subscribed) VALUES ($1,$2)
        ON CONFLICT (supplier_id) DO UPDATE SET subscribed = quotas.subscribed + $3`,
        supplierID, defaultQuota+add, add)
    return err
}

package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "time"

    _ "modernc.org/sqlite"

    "supplygw/internal/model"
)

// SQLite backs the store with a single local file, the default for
// operator workstations and small deployments.
type SQLite struct {
    db  *sql.DB
    log *slog.Logger
}

func NewSQLite(path string, log *slog.Logger) (*SQLite, error) {
    if log == nil { log = slog.Default() }
    db, err := sql.Open("sqlite", path)
    if err != nil { return nil, fmt.Errorf("open database: %w", err) }
    if err := db.Ping(); err != nil {
        _ = db.Close()
        return nil, fmt.Errorf("ping database: %w", err)
    }
    // modernc's driver serializes writes itself, but a single connection
    // avoids SQLITE_BUSY on concurrent writers
    db.SetMaxOpenConns(1)
    s := &SQLite{db: db, log: log}
    if err := s.migrate(); err != nil {
        _ = db.Close()
        return nil, fmt.Errorf("migrate: %w", err)
    }
    log.Info("sqlite store ready", "path", path)
    return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// fixed-width UTC timestamps so lexicographic ORDER BY is chronological
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(sqliteTimeLayout) }

func parseTime(s string) time.Time {
    t, _ := time.Parse(sqliteTimeLayout, s)
    return t
}

func (s *SQLite) migrate() error {
    if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS migrations (
        version INTEGER PRIMARY KEY,
        applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
    )`); err != nil { return err }
    var current int
    if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM migrations`).Scan(&current); err != nil {
        return err
    }
    for _, m := range sqliteMigrations {
        if m.version <= current { continue }
        if _, err := s.db.Exec(m.sql); err != nil {
            return fmt.Errorf("migration %d: %w", m.version, err)
        }
        if _, err := s.db.Exec(`INSERT INTO migrations (version) VALUES (?)`, m.version); err != nil {
            return err
        }
        s.log.Info("applied migration", "version", m.version)
    }
    return nil
}

var sqliteMigrations = []struct {
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
                latitude     REAL NOT NULL DEFAULT 0,
                longitude    REAL NOT NULL DEFAULT 0,
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
                latitude    REAL NOT NULL DEFAULT 0,
                longitude   REAL NOT NULL DEFAULT 0,
                PRIMARY KEY (supplier_id, unlocode)
            );

            CREATE TABLE availability_samples (
                supplier_id  TEXT NOT NULL,
                criteria_key TEXT NOT NULL,
                id           TEXT NOT NULL,
                criteria     TEXT NOT NULL,
                offers       TEXT NOT NULL,
                content_hash TEXT NOT NULL,
                fetched_at   DATETIME NOT NULL,
                PRIMARY KEY (supplier_id, criteria_key)
            );

            CREATE TABLE verifications (
                id          TEXT PRIMARY KEY,
                supplier_id TEXT NOT NULL,
                passed      INTEGER NOT NULL,
                steps       TEXT NOT NULL,
                created_at  DATETIME NOT NULL
            );
            CREATE INDEX verifications_supplier_idx ON verifications (supplier_id, created_at DESC);

            CREATE TABLE endpoint_tests (
                supplier_id TEXT PRIMARY KEY,
                result      TEXT NOT NULL
            );

            CREATE TABLE supplier_configs (
                supplier_id TEXT PRIMARY KEY,
                config      TEXT NOT NULL
            );

            CREATE TABLE quotas (
                supplier_id TEXT PRIMARY KEY,
                subscribed  INTEGER NOT NULL
            );
        `,
    },
}

func (s *SQLite) GetBranch(ctx context.Context, supplierID, branchCode string) (model.Branch, error) {
    var b model.Branch
    row := s.db.QueryRowContext(ctx, `SELECT branch_code, name, nato_locode, latitude, longitude, city, country, country_code
        FROM branches WHERE supplier_id=? AND branch_code=?`, supplierID, branchCode)
    if err := row.Scan(&b.BranchCode, &b.Name, &b.NatoLocode, &b.Latitude, &b.Longitude, &b.City, &b.Country, &b.CountryCode); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return model.Branch{}, ErrNotFound }
        return model.Branch{}, fmt.Errorf("get branch: %w", err)
    }
    return b, nil
}

func (s *SQLite) UpsertBranch(ctx context.Context, supplierID string, b model.Branch) (bool, bool, error) {
    prev, err := s.GetBranch(ctx, supplierID, b.BranchCode)
    created := errors.Is(err, ErrNotFound)
    if err != nil && !created { return false, false, err }
    if !created && prev == b { return false, false, nil }
    _, err = s.db.ExecContext(ctx, `INSERT INTO branches (supplier_id, branch_code, name, nato_locode, latitude, longitude, city, country, country_code)
        VALUES (?,?,?,?,?,?,?,?,?)
        ON CONFLICT (supplier_id, branch_code) DO UPDATE SET
            name=excluded.name, nato_locode=excluded.nato_locode,
            latitude=excluded.latitude, longitude=excluded.longitude,
            city=excluded.city, country=excluded.country, country_code=excluded.country_code`,
        supplierID, b.BranchCode, b.Name, b.NatoLocode, b.Latitude, b.Longitude, b.City, b.Country, b.CountryCode)
    if err != nil { return false, false, fmt.Errorf("upsert branch: %w", err) }
    return created, true, nil
}

func (s *SQLite) ListBranches(ctx context.Context, supplierID, cursor string, limit int) ([]model.Branch, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    rows, err := s.db.QueryContext(ctx, `SELECT branch_code, name, nato_locode, latitude, longitude, city, country, country_code
        FROM branches WHERE supplier_id=? AND branch_code > ? ORDER BY branch_code LIMIT ?`, supplierID, cursor, limit)
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

func (s *SQLite) CountBranches(ctx context.Context, supplierID string) (int, error) {
    var n int
    err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM branches WHERE supplier_id=?`, supplierID).Scan(&n)
    return n, err
}

func (s *SQLite) GetLocation(ctx context.Context, supplierID, unlocode string) (model.Location, error) {
    var l model.Location
    row := s.db.QueryRowContext(ctx, `SELECT unlocode, country, place, iata_code, latitude, longitude
        FROM locations WHERE supplier_id=? AND unlocode=?`, supplierID, unlocode)
    if err := row.Scan(&l.Unlocode, &l.Country, &l.Place, &l.IataCode, &l.Latitude, &l.Longitude); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return model.Location{}, ErrNotFound }
        return model.Location{}, fmt.Errorf("get location: %w", err)
    }
    return l, nil
}

func (s *SQLite) UpsertLocation(ctx context.Context, supplierID string, l model.Location) (bool, bool, error) {
    prev, err := s.GetLocation(ctx, supplierID, l.Unlocode)
    created := errors.Is(err, ErrNotFound)
    if err != nil && !created { return false, false, err }
    if !created && prev == l { return false, false, nil }
    _, err = s.db.ExecContext(ctx, `INSERT INTO locations (supplier_id, unlocode, country, place, iata_code, latitude, longitude)
        VALUES (?,?,?,?,?,?,?)
        ON CONFLICT (supplier_id, unlocode) DO UPDATE SET
            country=excluded.country, place=excluded.place, iata_code=excluded.iata_code,
            latitude=excluded.latitude, longitude=excluded.longitude`,
        supplierID, l.Unlocode, l.Country, l.Place, l.IataCode, l.Latitude, l.Longitude)
    if err != nil { return false, false, fmt.Errorf("upsert location: %w", err) }
    return created, true, nil
}

func (s *SQLite) ListLocations(ctx context.Context, supplierID, cursor string, limit int) ([]model.Location, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    rows, err := s.db.QueryContext(ctx, `SELECT unlocode, country, place, iata_code, latitude, longitude
        FROM locations WHERE supplier_id=? AND unlocode > ? ORDER BY unlocode LIMIT ?`, supplierID, cursor, limit)
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

func (s *SQLite) GetSampleByKey(ctx context.Context, supplierID, key string) (model.AvailabilitySample, error) {
    var sm model.AvailabilitySample
    var criteria, offers string
    var fetched string
    row := s.db.QueryRowContext(ctx, `SELECT id, criteria, offers, content_hash, fetched_at
        FROM availability_samples WHERE supplier_id=? AND criteria_key=?`, supplierID, key)
    if err := row.Scan(&sm.ID, &criteria, &offers, &sm.ContentHash, &fetched); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return model.AvailabilitySample{}, ErrNotFound }
        return model.AvailabilitySample{}, fmt.Errorf("get sample: %w", err)
    }
    if err := json.Unmarshal([]byte(criteria), &sm.Criteria); err != nil { return model.AvailabilitySample{}, err }
    if err := json.Unmarshal([]byte(offers), &sm.Offers); err != nil { return model.AvailabilitySample{}, err }
    sm.FetchedAt = parseTime(fetched)
    return sm, nil
}

func (s *SQLite) PutSample(ctx context.Context, supplierID, key string, sm model.AvailabilitySample) error {
    criteria, _ := json.Marshal(sm.Criteria)
    offers, _ := json.Marshal(sm.Offers)
    _, err := s.db.ExecContext(ctx, `INSERT INTO availability_samples (supplier_id, criteria_key, id, criteria, offers, content_hash, fetched_at)
        VALUES (?,?,?,?,?,?,?)
        ON CONFLICT (supplier_id, criteria_key) DO UPDATE SET
            id=excluded.id, criteria=excluded.criteria, offers=excluded.offers,
            content_hash=excluded.content_hash, fetched_at=excluded.fetched_at`,
        supplierID, key, sm.ID, string(criteria), string(offers), sm.ContentHash, formatTime(sm.FetchedAt))
    if err != nil { return fmt.Errorf("put sample: %w", err) }
    return nil
}

func (s *SQLite) ListSamples(ctx context.Context, supplierID, cursor string, limit int) ([]model.AvailabilitySample, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    rows, err := s.db.QueryContext(ctx, `SELECT criteria_key, id, criteria, offers, content_hash, fetched_at
        FROM availability_samples WHERE supplier_id=? AND criteria_key > ? ORDER BY criteria_key LIMIT ?`, supplierID, cursor, limit)
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.AvailabilitySample{}
    var last string
    for rows.Next() {
        var sm model.AvailabilitySample
        var key, criteria, offers, fetched string
        if err := rows.Scan(&key, &sm.ID, &criteria, &offers, &sm.ContentHash, &fetched); err != nil {
            return nil, "", err
        }
        if err := json.Unmarshal([]byte(criteria), &sm.Criteria); err != nil { return nil, "", err }
        if err := json.Unmarshal([]byte(offers), &sm.Offers); err != nil { return nil, "", err }
        sm.FetchedAt = parseTime(fetched)
        out = append(out, sm)
        last = key
    }
    var next string
    if len(out) == limit { next = last }
    return out, next, rows.Err()
}

func (s *SQLite) SaveVerification(ctx context.Context, supplierID string, v model.VerificationResult, cap int) error {
    steps, _ := json.Marshal(v.Steps)
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil { return err }
    defer func() { _ = tx.Rollback() }()
    if _, err := tx.ExecContext(ctx, `INSERT INTO verifications (id, supplier_id, passed, steps, created_at)
        VALUES (?,?,?,?,?)`, v.ID, supplierID, v.Passed, string(steps), formatTime(v.CreatedAt)); err != nil {
        return fmt.Errorf("save verification: %w", err)
    }
    if cap > 0 {
        if _, err := tx.ExecContext(ctx, `DELETE FROM verifications WHERE supplier_id=? AND id NOT IN (
            SELECT id FROM verifications WHERE supplier_id=? ORDER BY created_at DESC LIMIT ?)`, supplierID, supplierID, cap); err != nil {
            return err
        }
    }
    return tx.Commit()
}

func (s *SQLite) ListVerifications(ctx context.Context, supplierID string, limit int) ([]model.VerificationResult, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    rows, err := s.db.QueryContext(ctx, `SELECT id, passed, steps, created_at
        FROM verifications WHERE supplier_id=? ORDER BY created_at DESC LIMIT ?`, supplierID, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.VerificationResult{}
    for rows.Next() {
        var v model.VerificationResult
        var steps, created string
        if err := rows.Scan(&v.ID, &v.Passed, &steps, &created); err != nil { return nil, err }
        if err := json.Unmarshal([]byte(steps), &v.Steps); err != nil { return nil, err }
        v.CreatedAt = parseTime(created)
        out = append(out, v)
    }
    return out, rows.Err()
}

func (s *SQLite) LatestVerification(ctx context.Context, supplierID string) (model.VerificationResult, error) {
    hist, err := s.ListVerifications(ctx, supplierID, 1)
    if err != nil { return model.VerificationResult{}, err }
    if len(hist) == 0 { return model.VerificationResult{}, ErrNotFound }
    return hist[0], nil
}

func (s *SQLite) SaveEndpointTest(ctx context.Context, supplierID string, res model.EndpointTestResult) error {
    b, _ := json.Marshal(res)
    _, err := s.db.ExecContext(ctx, `INSERT INTO endpoint_tests (supplier_id, result) VALUES (?,?)
        ON CONFLICT (supplier_id) DO UPDATE SET result=excluded.result`, supplierID, string(b))
    return err
}

func (s *SQLite) LatestEndpointTest(ctx context.Context, supplierID string) (model.EndpointTestResult, error) {
    var b string
    err := s.db.QueryRowContext(ctx, `SELECT result FROM endpoint_tests WHERE supplier_id=?`, supplierID).Scan(&b)
    if errors.Is(err, sql.ErrNoRows) { return model.EndpointTestResult{}, ErrNotFound }
    if err != nil { return model.EndpointTestResult{}, err }
    var res model.EndpointTestResult
    if err := json.Unmarshal([]byte(b), &res); err != nil { return model.EndpointTestResult{}, err }
    return res, nil
}

func (s *SQLite) GetSupplierConfig(ctx context.Context, supplierID string) (model.SupplierConfig, error) {
    var b string
    err := s.db.QueryRowContext(ctx, `SELECT config FROM supplier_configs WHERE supplier_id=?`, supplierID).Scan(&b)
    if errors.Is(err, sql.ErrNoRows) { return model.SupplierConfig{}, ErrNotFound }
    if err != nil { return model.SupplierConfig{}, err }
    var cfg model.SupplierConfig
    if err := json.Unmarshal([]byte(b), &cfg); err != nil { return model.SupplierConfig{}, err }
    return cfg, nil
}

func (s *SQLite) SaveSupplierConfig(ctx context.Context, cfg model.SupplierConfig) error {
    b, _ := json.Marshal(cfg)
    _, err := s.db.ExecContext(ctx, `INSERT INTO supplier_configs (supplier_id, config) VALUES (?,?)
        ON CONFLICT (supplier_id) DO UPDATE SET config=excluded.config`, cfg.SupplierID, string(b))
    return err
}

func (s *SQLite) QuotaStatus(ctx context.Context, supplierID string) (int, int, error) {
    sub := defaultQuota
    err := s.db.QueryRowContext(ctx, `SELECT subscribed FROM quotas WHERE supplier_id=?`, supplierID).Scan(&sub)
    if err != nil && !errors.Is(err, sql.ErrNoRows) { return 0, 0, err }
    used, err := s.CountBranches(ctx, supplierID)
    if err != nil { return 0, 0, err }
    return sub, used, nil
}

func (s *SQLite) IncreaseQuota(ctx context.Context, supplierID string, add int) error {
    _, err := s.db.ExecContext(ctx, `INSERT INTO quotas (supplier_id, subscribed) VALUES (?,?)
        ON CONFLICT (supplier_id) DO UPDATE SET subscribed = subscribed + ?`,
        supplierID, defaultQuota+add, add)
    return err
}

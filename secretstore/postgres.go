package secretstore

import (
	"context"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"github.com/vitalvas/httphmac/hmacauth"
	"go.elastic.co/apm/module/apmpgx/v2"
)

// DefaultPostgresTable holds one row per access key:
//
//	CREATE TABLE hmac_keys (
//	    access_id  text PRIMARY KEY,
//	    secret     text NOT NULL,
//	    revoked_at timestamptz
//	);
const DefaultPostgresTable = "hmac_keys"

// RowQuerier is the subset of *pgxpool.Pool used by Postgres.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Postgres resolves secrets from a table of access keys. Revoked keys are
// reported as unknown.
type Postgres struct {
	db    RowQuerier
	query string
}

// NewPostgres returns a resolver reading from table. An empty table
// selects DefaultPostgresTable.
func NewPostgres(db RowQuerier, table string) *Postgres {
	if table == "" {
		table = DefaultPostgresTable
	}

	return &Postgres{
		db: db,
		query: "SELECT secret FROM " + pgx.Identifier{table}.Sanitize() +
			" WHERE access_id = $1 AND revoked_at IS NULL",
	}
}

// ResolveSecret implements hmacauth.SecretResolver.
func (p *Postgres) ResolveSecret(ctx context.Context, accessID string) (string, error) {
	var secret string

	if err := p.db.QueryRow(ctx, p.query, accessID).Scan(&secret); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", hmacauth.ErrUnknownAccessKey
		}

		return "", errors.Wrap(err, "query secret")
	}

	return secret, nil
}

const (
	defaultMinPoolSize           = 1
	defaultMaxPoolSize           = 8
	defaultConnectionMaxLifetime = 2 * time.Minute
	defaultConnectionMaxIdleTime = 30 * time.Second
)

// PostgresConfig configures ConnectPostgres.
type PostgresConfig struct {
	Host                  string        `mapstructure:"host" structs:"host"`
	Port                  string        `mapstructure:"port" structs:"port"`
	User                  string        `mapstructure:"user" structs:"user"`
	Password              string        `mapstructure:"password" structs:"password"`
	Database              string        `mapstructure:"database" structs:"database"`
	Table                 string        `mapstructure:"table" structs:"table"`
	SSLModeDisable        bool          `mapstructure:"ssl_mode_disable" structs:"ssl_mode_disable"`
	CertPath              string        `mapstructure:"cert_path" structs:"cert_path"`
	MinPoolSize           int32         `mapstructure:"min_pool_size" structs:"min_pool_size"`
	MaxPoolSize           int32         `mapstructure:"max_pool_size" structs:"max_pool_size"`
	ConnectionMaxLifetime time.Duration `mapstructure:"connection_max_lifetime" structs:"connection_max_lifetime"`
	ConnectionMaxIdleTime time.Duration `mapstructure:"connection_max_idle_time" structs:"connection_max_idle_time"`

	// APMTracing reports secret queries as Elastic APM spans.
	APMTracing bool `mapstructure:"apm_tracing" structs:"apm_tracing"`
}

// ConnectionString returns the postgresql:// URL for cfg. TLS is required
// unless SSLModeDisable is set; with a CertPath the server certificate is
// verified against it.
func (cfg PostgresConfig) ConnectionString() (string, error) {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == "" {
		port = "5432"
	}

	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + cfg.Database,
	}

	q := url.Values{}

	switch {
	case cfg.SSLModeDisable:
		q.Set("sslmode", "disable")
	case cfg.CertPath == "":
		q.Set("sslmode", "require")
	default:
		if _, err := os.Stat(cfg.CertPath); err != nil {
			return "", errors.Wrap(err, "ssl root cert")
		}

		q.Set("sslmode", "verify-ca")
		q.Set("sslrootcert", cfg.CertPath)
	}

	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (cfg PostgresConfig) poolConfig() (*pgxpool.Config, error) {
	connStr, err := cfg.ConnectionString()
	if err != nil {
		return nil, err
	}

	pc, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, errors.Wrap(err, "parse postgres config")
	}

	pc.MinConns = cfg.MinPoolSize
	if pc.MinConns == 0 {
		pc.MinConns = defaultMinPoolSize
	}

	pc.MaxConns = cfg.MaxPoolSize
	if pc.MaxConns == 0 {
		pc.MaxConns = defaultMaxPoolSize
	}

	pc.MaxConnLifetime = cfg.ConnectionMaxLifetime
	if pc.MaxConnLifetime == 0 {
		pc.MaxConnLifetime = defaultConnectionMaxLifetime
	}

	pc.MaxConnIdleTime = cfg.ConnectionMaxIdleTime
	if pc.MaxConnIdleTime == 0 {
		pc.MaxConnIdleTime = defaultConnectionMaxIdleTime
	}

	pc.HealthCheckPeriod = 15 * time.Second

	if cfg.APMTracing {
		apmpgx.Instrument(pc.ConnConfig)
	}

	return pc, nil
}

// ConnectPostgres opens a connection pool and pings the server.
func ConnectPostgres(ctx context.Context, cfg PostgresConfig) (*pgxpool.Pool, error) {
	pc, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.ConnectConfig(ctx, pc)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrapf(err, "ping postgres %s", pc.ConnConfig.Host)
	}

	return pool, nil
}

package database

// DatabaseConfig is a subset of the configuration focusing solely
// on database connection items. Host/credential fields are only
// used by the client-server backends, and DataDir only by the embedded
// sqlite3 backend (each database is a file inside this directory).
type DatabaseConfig struct {
	Backend         string `yaml:"backend" env:"DB_BACKEND" env-default:"sqlite3" validate:"oneof=sqlite3 postgres mysql"`
	Name            string `yaml:"name" env:"DB_NAME" env-default:"youtube_archive" validate:"required"`
	User            string `yaml:"username" env:"DB_USERNAME"`
	Password        string `yaml:"password" env:"DB_PASSWORD"`
	Host            string `yaml:"host" env:"DB_HOST" env-default:"127.0.0.1"`
	Port            string `yaml:"port" env:"DB_PORT"`
	SSLMode         string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
	DataDir         string `yaml:"data_dir" env:"DB_DATA_DIR" env-default:"./data/db"`
	LogQueries      bool   `yaml:"log_queries" env:"DB_LOG_QUERIES"`
	ConnectAttempts int    `yaml:"connect_attempts" env:"DB_CONNECT_ATTEMPTS" env-default:"1" validate:"min=1"`
}

// Backend identifies one of the supported storage engines. The value
// doubles as the database/sql driver name and the goose dialect.
type Backend string

const (
	SQLite   Backend = "sqlite3"
	Postgres Backend = "postgres"
	MySQL    Backend = "mysql"
)

// MaintenanceDatabase returns the database a client-server backend connects
// to before the configured database exists. The boolean is false for the
// embedded backend, where opening a database creates it.
func MaintenanceDatabase(backend Backend) (string, bool) {
	switch backend {
	case Postgres:
		return "postgres", true
	case MySQL:
		return "", true
	default:
		return "", false
	}
}

// Package storecfg holds the connection options every backing store accepts.
package storecfg

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverNeo4j    = "neo4j"
	DriverMongo    = "mongo"
)

// Config describes how to reach one store. Embedded SQLite stores use Path;
// networked stores use URI or Host/Port/User/Password/Database.
type Config struct {
	Driver     string `yaml:"driver"`
	URI        string `yaml:"uri"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Database   string `yaml:"database"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// Validate checks the options against the set of drivers the store supports.
func (c *Config) Validate(drivers ...string) error {
	allowed := make([]any, len(drivers))
	for i, d := range drivers {
		allowed[i] = d
	}
	embedded := c.Driver == DriverSQLite
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(allowed...)),
		validation.Field(&c.Path, validation.When(embedded, validation.Required)),
		validation.Field(&c.Host, validation.When(!embedded && c.URI == "", validation.Required)),
		validation.Field(&c.Port, validation.When(!embedded && c.URI == "", validation.Required, validation.Min(1), validation.Max(65535))),
	)
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SQLiteDSN returns the go-sqlite3 DSN for Path.
func (c *Config) SQLiteDSN() string {
	return c.Path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}

// NetworkURI returns URI if set, otherwise scheme://host:port.
func (c *Config) NetworkURI(scheme string) string {
	if c.URI != "" {
		return c.URI
	}
	return fmt.Sprintf("%s://%s", scheme, c.Addr())
}

// PostgresURL returns a postgres:// connection URL.
func (c *Config) PostgresURL() string {
	if c.URI != "" {
		return c.URI
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     c.Addr(),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=disable",
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	return u.String()
}

package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/acadworld/internal/storecfg"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	Graph       storecfg.Config   `yaml:"graph"`
	Relational  storecfg.Config   `yaml:"relational"`
	Annotations storecfg.Config   `yaml:"annotations"`
	Dataset     DatasetConfig     `yaml:"dataset"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Graph.Validate(storecfg.DriverNeo4j, storecfg.DriverSQLite); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	if err := c.Relational.Validate(storecfg.DriverMySQL, storecfg.DriverPostgres, storecfg.DriverSQLite); err != nil {
		return fmt.Errorf("relational: %w", err)
	}
	if err := c.Annotations.Validate(storecfg.DriverMongo, storecfg.DriverSQLite); err != nil {
		return fmt.Errorf("annotations: %w", err)
	}
	if err := validation.ValidateStruct(&c.Annotations,
		validation.Field(&c.Annotations.Database, validation.When(c.Annotations.Driver == storecfg.DriverMongo, validation.Required)),
	); err != nil {
		return fmt.Errorf("annotations: %w", err)
	}
	return c.Dataset.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel       slog.Level    `yaml:"log_level"`
	Log            LogConfig     `yaml:"log"`
	HTTP           HTTPConfig    `yaml:"http"`
	StoreTimeout   time.Duration `yaml:"store_timeout"`
	CoauthorLimit  int           `yaml:"coauthor_limit"`
	InstituteLimit int           `yaml:"institute_limit"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.StoreTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.CoauthorLimit, validation.Min(0), validation.Max(100)),
		validation.Field(&c.InstituteLimit, validation.Min(0), validation.Max(100)),
	)
}

// LogConfig configures the optional rotating log file. Logs always go to
// the console as well.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Validate validates the log configuration.
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxSizeMB, validation.Min(0)),
		validation.Field(&c.MaxBackups, validation.Min(0)),
		validation.Field(&c.MaxAgeDays, validation.Min(0)),
	)
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DatasetConfig points at the seed dataset. When Watch is set, serve
// re-applies the file whenever it changes.
type DatasetConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the dataset configuration.
func (c *DatasetConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Watch, validation.Required)),
	)
}

// NewDefaultConfig returns a Config pointing at local servers with the
// academicworld database.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:       slog.LevelInfo,
			HTTP:           HTTPConfig{Port: 8051},
			StoreTimeout:   5 * time.Second,
			CoauthorLimit:  5,
			InstituteLimit: 10,
			Log: LogConfig{
				MaxSizeMB:  100,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
		Graph: storecfg.Config{
			Driver: storecfg.DriverNeo4j,
			Host:   "localhost",
			Port:   7687,
			User:   "neo4j",
		},
		Relational: storecfg.Config{
			Driver:   storecfg.DriverMySQL,
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Database: "academicworld",
		},
		Annotations: storecfg.Config{
			Driver:     storecfg.DriverMongo,
			Host:       "localhost",
			Port:       27017,
			Database:   "academicworld",
			Collection: "faculty_notes",
		},
	}
}

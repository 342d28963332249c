package common

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/joho/godotenv"
	logger "github.com/kthomas/go-logger"
	"github.com/naoina/toml"
)

var (
	// Log is the configured logger
	Log *logger.Logger
)

func init() {
	godotenv.Load()

	requireLogger()
}

func requireLogger() {
	lvl := os.Getenv("LOG_LEVEL")
	if lvl == "" {
		lvl = "INFO"
	}

	var endpoint *string
	if os.Getenv("SYSLOG_ENDPOINT") != "" {
		endpt := os.Getenv("SYSLOG_ENDPOINT")
		endpoint = &endpt
	}

	Log = logger.NewLogger("oracle", lvl, endpoint)
}

// Config is the oracled runtime configuration.
type Config struct {
	ListenAddr  string
	DBPath      string
	CacheSize   int
	NATSURL     string `toml:",omitempty"`
	NATSSubject string
}

// DefaultConfig holds the values used when neither the environment nor a
// config file sets a field.
var DefaultConfig = Config{
	ListenAddr:  ":8080",
	DBPath:      "./oracle-db",
	CacheSize:   1024,
	NATSSubject: "oracle.events",
}

// TOML keys use the same names as the Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// LoadConfig resolves the configuration: defaults, then the environment,
// then file when it is non-empty.
func LoadConfig(file string) (*Config, error) {
	cfg := DefaultConfig
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("ORACLE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("ORACLE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("ORACLE_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid ORACLE_CACHE_SIZE %q", v)
		}
		cfg.CacheSize = n
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATSURL = v
	}
	if v := os.Getenv("ORACLE_NATS_SUBJECT"); v != "" {
		cfg.NATSSubject = v
	}
	return nil
}

func loadConfigFile(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// MarshalConfig renders cfg as TOML.
func MarshalConfig(cfg *Config) ([]byte, error) {
	return tomlSettings.Marshal(cfg)
}

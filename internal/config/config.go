// Package config loads the application settings.
//
// Sources are applied in increasing priority: built-in defaults, a JSON file
// (path from -c or CONFIG), environment variables (a .env file is honoured),
// and finally command line flags.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"reflect"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	ConfigFile string `env:"CONFIG" json:"-"`

	RunAddr      string `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	ShortURLBase string `env:"BASE_URL" json:"base_url" validate:"url"`
	GRPCAddr     string `env:"GRPC_ADDRESS" json:"grpc_address" validate:"omitempty,hostname_port"`
	LogLevel     string `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`

	DBFileName          string        `env:"FILE_STORAGE_PATH" json:"file_storage_path" validate:"omitempty,storagepath"`
	DatabaseDSN         string        `env:"DATABASE_DSN" json:"database_dsn"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"db_connection_timeout" validate:"gt=0"`

	AuthCookieName             string        `env:"SESSION_COOKIE_NAME" json:"session_cookie_name" validate:"required"`
	AuthCookieSigningSecretKey string        `env:"SESSION_SIGNING_KEY" json:"session_signing_key" validate:"required,base64url"`
	SessionMaxAge              time.Duration `env:"SESSION_MAX_AGE" json:"session_max_age" validate:"gt=0"`

	PasswordHashCost  int `env:"PASSWORD_HASH_COST" json:"password_hash_cost" validate:"min=4,max=31"`
	IDGenerationTries int `env:"ID_GENERATION_TRIES" json:"id_generation_tries" validate:"min=1"`

	TrustedSubnet string `env:"TRUSTED_SUBNET" json:"trusted_subnet" validate:"omitempty,cidr"`

	ChannelCapacity          int           `env:"CHANNEL_CAPACITY" json:"channel_capacity" validate:"min=1"`
	DelayBetweenQueueFetches time.Duration `env:"DELAY_BETWEEN_QUEUE_FETCHES" json:"delay_between_queue_fetches" validate:"gt=0"`
}

// DefaultAuthCookieSigningSecretKey is public. Deployments must set
// SESSION_SIGNING_KEY, otherwise anyone can forge a session.
const DefaultAuthCookieSigningSecretKey = "SW50ZXN0aW5lLVN0b21hY2gtY29va2llLXNlc3Npb24="

var defaultConfig = Config{
	RunAddr:                    ":8080",
	ShortURLBase:               "http://localhost:8080",
	LogLevel:                   "info",
	DBConnectionTimeout:        10 * time.Second,
	AuthCookieName:             "session",
	AuthCookieSigningSecretKey: DefaultAuthCookieSigningSecretKey,
	SessionMaxAge:              24 * time.Hour,
	PasswordHashCost:           10,
	IDGenerationTries:          10,
	ChannelCapacity:            100,
	DelayBetweenQueueFetches:   5 * time.Second,
}

// UsesDefaultSigningKey reports whether sessions are signed with the built-in key.
func (c *Config) UsesDefaultSigningKey() bool {
	return c.AuthCookieSigningSecretKey == DefaultAuthCookieSigningSecretKey
}

// fileConfig mirrors Config for JSON decoding; durations are given as strings like "10s".
type fileConfig struct {
	Config
	DBConnectionTimeout      string `json:"db_connection_timeout"`
	SessionMaxAge            string `json:"session_max_age"`
	DelayBetweenQueueFetches string `json:"delay_between_queue_fetches"`
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

func validateStoragePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("storagepath", validateStoragePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// applyDefaults fills every zero-valued field of values from defaults.
func applyDefaults(values *Config, defaults Config) {
	dst := reflect.ValueOf(values).Elem()
	src := reflect.ValueOf(defaults)
	for i := 0; i < dst.NumField(); i++ {
		if dst.Field(i).IsZero() {
			dst.Field(i).Set(src.Field(i))
		}
	}
}

// override copies every non-zero field of overrides into values.
func override(values *Config, overrides Config) {
	dst := reflect.ValueOf(values).Elem()
	src := reflect.ValueOf(overrides)
	for i := 0; i < dst.NumField(); i++ {
		if !src.Field(i).IsZero() {
			dst.Field(i).Set(src.Field(i))
		}
	}
}

func parseDuration(value string, target *time.Duration) error {
	if value == "" {
		return nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*target = duration

	return nil
}

func loadJSONFile(fileName string) (Config, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return Config{}, err
	}

	var fromFile fileConfig
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return Config{}, err
	}

	result := fromFile.Config
	if err := parseDuration(fromFile.DBConnectionTimeout, &result.DBConnectionTimeout); err != nil {
		return Config{}, err
	}
	if err := parseDuration(fromFile.SessionMaxAge, &result.SessionMaxAge); err != nil {
		return Config{}, err
	}
	if err := parseDuration(fromFile.DelayBetweenQueueFetches, &result.DelayBetweenQueueFetches); err != nil {
		return Config{}, err
	}

	return result, nil
}

func parseFlags() (Config, error) {
	var fromFlags Config

	flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flags.StringVar(&fromFlags.ConfigFile, "c", "", "JSON config file name")
	flags.StringVar(&fromFlags.RunAddr, "a", "", "address and port to run server")
	flags.StringVar(&fromFlags.ShortURLBase, "b", "", "base address of the resulting shortened URL")
	flags.StringVar(&fromFlags.GRPCAddr, "g", "", "address and port to run the gRPC health service")
	flags.StringVar(&fromFlags.LogLevel, "l", "", "logger level")
	flags.StringVar(&fromFlags.DBFileName, "f", "", "JSON file name with database")
	flags.StringVar(&fromFlags.DatabaseDSN, "d", "", "A string with the database connection details")
	flags.StringVar(&fromFlags.TrustedSubnet, "t", "", "CIDR of clients allowed to read internal stats")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return Config{}, err
	}

	return fromFlags, nil
}

// New builds the configuration from all sources and validates it.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	var valuesFromFlags Config
	if !options.disableFlagsParsing {
		valuesFromFlags, err = parseFlags()
		if err != nil {
			return nil, err
		}
	}

	var valuesFromEnv Config
	err = env.Parse(&valuesFromEnv)
	if err != nil {
		return nil, err
	}

	configFile := valuesFromFlags.ConfigFile
	if configFile == "" {
		configFile = valuesFromEnv.ConfigFile
	}

	values := &Config{}
	if configFile != "" {
		valuesFromFile, err := loadJSONFile(configFile)
		if err != nil {
			return nil, err
		}
		override(values, valuesFromFile)
	}
	override(values, valuesFromEnv)
	override(values, valuesFromFlags)
	applyDefaults(values, defaultConfig)

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

package config

import (
	"math"
	"time"

	"blindbox/internal/domain"
	"blindbox/internal/errs"
	"blindbox/internal/game"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Log        LogConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	Boxes      BoxesConfig
	Redemption RedemptionConfig
	Ledger     LedgerConfig
	Random     RandomConfig

	LimitsFile string `envconfig:"LIMITS_FILE"`

	// Filled from defaults and LIMITS_FILE, not from env.
	Maxima map[domain.Counter]uint64 `ignored:"true"`
	Table  game.Table                `ignored:"true"`
}

type AppConfig struct {
	Port    string `envconfig:"APP_PORT" default:"8080"`
	Version string `envconfig:"APP_VERSION" default:"dev"`
	DevMode bool   `envconfig:"DEV_MODE" default:"false"`
}

type DBConfig struct {
	// Storage selects the state backend: postgres or memory.
	Storage  string `envconfig:"STORAGE" default:"postgres"`
	URL      string `envconfig:"DATABASE_URL"`
	Migrate  bool   `envconfig:"DB_MIGRATE" default:"true"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"10"`
}

type RedisConfig struct {
	Addr          string `envconfig:"REDIS_ADDR"`
	Password      string `envconfig:"REDIS_PASSWORD"`
	DB            int    `envconfig:"REDIS_DB" default:"0"`
	EventsChannel string `envconfig:"REDIS_EVENTS_CHANNEL" default:"blindbox:events"`
}

type AuthConfig struct {
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"JWT_TTL" default:"24h"`
	BotToken  string        `envconfig:"BOT_TOKEN"`
	// AdminBotToken enables the Telegram admin bot when set.
	AdminBotToken string `envconfig:"ADMIN_BOT_TOKEN"`
	// AdminIDs are account ids allowed to call admin endpoints. Comma separated in env.
	AdminIDs []int64 `envconfig:"ADMIN_IDS"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	JSON  bool   `envconfig:"LOG_JSON" default:"false"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type RateLimitConfig struct {
	API          int           `envconfig:"API_RATE_LIMIT" default:"60"`
	APIWindow    time.Duration `envconfig:"API_RATE_WINDOW" default:"1m"`
	Auth         int           `envconfig:"AUTH_RATE_LIMIT" default:"5"`
	AuthWindow   time.Duration `envconfig:"AUTH_RATE_WINDOW" default:"1m"`
	Redeem       int           `envconfig:"REDEEM_RATE_LIMIT" default:"30"`
	RedeemWindow time.Duration `envconfig:"REDEEM_RATE_WINDOW" default:"1m"`
}

type BoxesConfig struct {
	// MaxGenerationAttempts caps draws per standard pool generation.
	MaxGenerationAttempts uint32 `envconfig:"MAX_GENERATION_ATTEMPTS" default:"50"`
	// MaxSpecialAttempts caps draws per special pool top-up.
	MaxSpecialAttempts uint32 `envconfig:"MAX_SPECIAL_ATTEMPTS" default:"1000"`
}

type RedemptionConfig struct {
	Fee uint64 `envconfig:"REDEMPTION_FEE" default:"100"`
	// ChargeBlacklisted takes the fee before the blacklist check and keeps it.
	ChargeBlacklisted bool `envconfig:"CHARGE_BLACKLISTED" default:"false"`
}

type LedgerConfig struct {
	TreasuryID         int64  `envconfig:"TREASURY_ACCOUNT_ID" default:"1"`
	ExistentialDeposit uint64 `envconfig:"EXISTENTIAL_DEPOSIT" default:"1"`
	InitialBalance     uint64 `envconfig:"INITIAL_BALANCE" default:"10000"`
}

type RandomConfig struct {
	Secret string `envconfig:"RANDOM_SECRET" required:"true"`
}

// DefaultMaxima are the per-counter ceilings an admin may set.
func DefaultMaxima() map[domain.Counter]uint64 {
	return map[domain.Counter]uint64{
		domain.CounterScarceCurrencyA:  200000,
		domain.CounterUtilityCurrencyB: 100,
		domain.CounterCollectibleAsset: 5,
		domain.CounterWearableHat:      200,
		domain.CounterWearableJacket:   200,
		domain.CounterWearablePants:    200,
		domain.CounterWearableShoes:    200,
	}
}

// Load reads .env (if present), the environment and the optional limits file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errs.Wrap(err, "process env config")
	}

	cfg.Maxima = DefaultMaxima()
	cfg.Table = game.DefaultTable()
	if cfg.LimitsFile != "" {
		if err := cfg.applyLimitsFile(cfg.LimitsFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DB.Storage {
	case "postgres":
		if c.DB.URL == "" {
			return errs.New("DATABASE_URL is not set")
		}
	case "memory":
	default:
		return errs.Newf("unknown STORAGE %q", c.DB.Storage)
	}
	if c.Table.MaxRange < 5 || c.Table.MaxRange > 1_000_000 {
		return errs.Newf("max_range %d out of range [5, 1000000]", c.Table.MaxRange)
	}
	if c.Table.UtilityUnit == 0 {
		return errs.New("utility_unit must be positive")
	}
	if c.Boxes.MaxGenerationAttempts == 0 || c.Boxes.MaxSpecialAttempts == 0 {
		return errs.New("generation attempt caps must be positive")
	}
	// Counters and amounts are stored as BIGINT.
	for _, counter := range domain.Counters {
		v, ok := c.Maxima[counter]
		if !ok {
			return errs.Newf("no maximum for counter %s", counter)
		}
		if v > math.MaxInt64 {
			return errs.Newf("maximum for counter %s exceeds %d", counter, int64(math.MaxInt64))
		}
	}
	if c.Table.ScarceAmount > math.MaxInt64 {
		return errs.Newf("scarce_amount exceeds %d", int64(math.MaxInt64))
	}
	if uint64(c.Table.MaxUtilityAmount) > math.MaxInt64/c.Table.UtilityUnit {
		return errs.New("max_utility_amount * utility_unit overflows int64")
	}
	return nil
}

// IsAdmin reports whether accountID is in ADMIN_IDS.
func (c *Config) IsAdmin(accountID int64) bool {
	for _, id := range c.Auth.AdminIDs {
		if id == accountID {
			return true
		}
	}
	return false
}

package graph

import (
	"database/sql"
	"fmt"
	stdlog "log"
	"os"
	"strconv"
	"time"

	"github.com/hjeronen/FullStackGraphQL/graph/model"
	"github.com/jackc/pgx/v4/stdlib"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/simukti/sqldb-logger/logadapter/zerologadapter"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var Models = []interface{}{&model.Author{}, &model.Book{}, &model.User{}}

type ConfigType struct {
	Port           string
	DSN            string
	TokenSecret    string
	TokenTTL       time.Duration
	LoginPassword  string
	SubscriberSize int
	Logger         bool
	SQLLog         bool
	Migrate        bool
	Seed           bool
}

var DefaultConfig = ConfigType{
	Port:           "4000",
	DSN:            "host=localhost user=demo password=password dbname=demo port=5432 sslmode=disable TimeZone=Asia/Jakarta",
	TokenTTL:       24 * time.Hour,
	LoginPassword:  "secret",
	SubscriberSize: 16,
	Migrate:        true,
	Seed:           true,
}

// LoadConfig reads .env (when present) and then the process environment.
func LoadConfig() (ConfigType, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DB_POSTGRES"); v != "" {
		cfg.DSN = v
	}
	if v := os.Getenv("LOGIN_PASSWORD"); v != "" {
		cfg.LoginPassword = v
	}
	cfg.TokenSecret = os.Getenv("JWT_SECRET")
	if cfg.TokenSecret == "" {
		return cfg, errors.New("missing required environment variable: JWT_SECRET")
	}

	var err error
	if cfg.TokenTTL, err = envDuration("TOKEN_TTL", cfg.TokenTTL); err != nil {
		return cfg, err
	}
	if v := os.Getenv("SUBSCRIBER_BUFFER"); v != "" {
		if cfg.SubscriberSize, err = strconv.Atoi(v); err != nil {
			return cfg, errors.Wrap(err, "SUBSCRIBER_BUFFER")
		}
	}
	if cfg.Migrate, err = envBool("MIGRATE", cfg.Migrate); err != nil {
		return cfg, err
	}
	if cfg.Seed, err = envBool("SEED", cfg.Seed); err != nil {
		return cfg, err
	}
	cfg.Logger = os.Getenv("LOGGER") != ""
	cfg.SQLLog = os.Getenv("SQL_LOG") != ""
	return cfg, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, errors.Wrap(err, key)
	}
	return d, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, errors.Wrap(err, key)
	}
	return b, nil
}

func Of[E any](e E) *E {
	return &e
}

// GormLogger routes gorm output through zerolog.
func GormLogger(log zerolog.Logger, verbose bool) logger.Interface {
	level := logger.Silent
	if verbose {
		level = logger.Info
	}
	return logger.New(
		stdlog.New(log, "", 0),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models...)
}

func Setup(cfg ConfigType, log zerolog.Logger) (*sql.DB, *gorm.DB, error) {
	dialector := postgres.New(postgres.Config{DSN: cfg.DSN})
	if cfg.SQLLog {
		sqlDB := sqldblogger.OpenDriver(cfg.DSN, stdlib.GetDefaultDriver(), zerologadapter.New(log))
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: GormLogger(log, cfg.Logger)})
	if err != nil {
		return nil, nil, errors.Wrap(err, "open database")
	}
	if cfg.Migrate {
		if err := Migrate(db); err != nil {
			return nil, nil, errors.Wrap(err, "migrate")
		}
	}
	if cfg.Seed {
		if err := db.Transaction(Populate); err != nil {
			return nil, nil, errors.Wrap(err, "populate")
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, db, nil
}

type seedBook struct {
	title     string
	published int
	author    string
	genres    []string
}

var seedAuthors = []model.Author{
	{Name: "Robert Martin", Born: Of(1952)},
	{Name: "Martin Fowler", Born: Of(1963)},
	{Name: "Fyodor Dostoevsky", Born: Of(1821)},
	{Name: "Joshua Kerievsky"},
	{Name: "Sandi Metz"},
}

var seedBooks = []seedBook{
	{"Clean Code", 2008, "Robert Martin", []string{"refactoring"}},
	{"Agile software development", 2002, "Robert Martin", []string{"agile", "patterns", "design"}},
	{"Refactoring, edition 2", 2018, "Martin Fowler", []string{"refactoring"}},
	{"Refactoring to patterns", 2008, "Joshua Kerievsky", []string{"refactoring", "patterns"}},
	{"Practical Object-Oriented Design, An Agile Primer Using Ruby", 2012, "Sandi Metz", []string{"refactoring", "design"}},
	{"Crime and punishment", 1866, "Fyodor Dostoevsky", []string{"classic", "crime"}},
	{"Demons", 1872, "Fyodor Dostoevsky", []string{"classic", "revolution"}},
}

// Populate seeds an empty database. It does nothing when any author or book exists.
func Populate(tx *gorm.DB) error {
	var authorCount, bookCount int64
	if result := tx.Model(&model.Author{}).Count(&authorCount); result.Error != nil {
		return result.Error
	}
	if result := tx.Model(&model.Book{}).Count(&bookCount); result.Error != nil {
		return result.Error
	}
	if authorCount > 0 || bookCount > 0 {
		return nil
	}

	ids := make(map[string]int, len(seedAuthors))
	for _, a := range seedAuthors {
		author := a
		if result := tx.Create(&author); result.Error != nil {
			return result.Error
		}
		ids[author.Name] = author.ID
	}
	for _, b := range seedBooks {
		authorID, ok := ids[b.author]
		if !ok {
			return fmt.Errorf("author with name '%s' does not exist", b.author)
		}
		book := model.Book{
			Title:     b.title,
			Published: b.published,
			Genres:    b.genres,
			AuthorID:  authorID,
		}
		if result := tx.Create(&book); result.Error != nil {
			return result.Error
		}
	}
	return nil
}

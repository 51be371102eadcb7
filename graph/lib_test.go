package graph_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"log"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/graphql-go/graphql"
	"github.com/hjeronen/FullStackGraphQL/graph"
	"github.com/hjeronen/FullStackGraphQL/graph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSecret   = "test-secret"
	sharedSecret = "secret"
)

var NoArgs = []driver.Value{}

var (
	authorColumns = []string{"id", "name", "born"}
	bookColumns   = []string{"id", "title", "published", "genres", "author_id"}
	userColumns   = []string{"id", "username", "favorite_genre", "password_hash"}
)

func JsonMatch(t *testing.T, expected interface{}, resp interface{}) {
	rJSON, _ := json.MarshalIndent(resp, "", "\t")
	eJSON, _ := json.MarshalIndent(expected, "", "\t")

	assert.Equal(t, string(eJSON), string(rJSON))
}

func Setup() (*sql.DB, *gorm.DB, sqlmock.Sqlmock, error) {
	level := logger.Silent
	if os.Getenv("LOGGER") != "" {
		level = logger.Info
	}
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		return sqlDB, nil, mock, err
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return sqlDB, db, mock, err
	}
	return sqlDB, db, mock, nil
}

func QuoteMeta(r string) string {
	r = strings.Join(strings.Fields(r), " ")
	r = strings.ReplaceAll(r, "( ", "(")
	r = strings.ReplaceAll(r, " )", ")")
	return "^" + regexp.QuoteMeta(r) + "$"
}

type testEnv struct {
	exec *graph.Executor
	bus  *graph.EventBus
	ds   *graph.DataSource
	mock sqlmock.Sqlmock
}

func newTestEnv(t *testing.T) *testEnv {
	sqlDB, db, mock, err := Setup()
	if err != nil {
		t.Fatalf("setup database error %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	bus := graph.NewEventBus(4)
	t.Cleanup(bus.Close)
	ds := graph.NewDataSource(db)
	exec, err := graph.NewExecutor(&graph.Resolver{
		DS:  ds,
		Bus: bus,
		Auth: graph.AuthConfig{
			Secret:         testSecret,
			TTL:            time.Hour,
			SharedPassword: sharedSecret,
		},
	})
	require.NoError(t, err)
	return &testEnv{exec: exec, bus: bus, ds: ds, mock: mock}
}

func (e *testEnv) do(t *testing.T, user *model.User, query string, vars map[string]interface{}) *graphql.Result {
	return e.exec.Execute(context.Background(), user, graph.Request{Query: query, Variables: vars})
}

func (e *testEnv) verify(t *testing.T) {
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func errorMessages(r *graphql.Result) []string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return msgs
}

func expectAuthorByName(mock sqlmock.Sqlmock, name string, rows *sqlmock.Rows) {
	mock.ExpectQuery(QuoteMeta(`SELECT * FROM "authors" WHERE name = $1 LIMIT 1`)).
		WithArgs(name).
		WillReturnRows(rows)
}

func expectBookAuthors(mock sqlmock.Sqlmock, authorIDs ...int) {
	rows := sqlmock.NewRows([]string{"author_id"})
	for _, id := range authorIDs {
		rows.AddRow(id)
	}
	mock.ExpectQuery(QuoteMeta(`SELECT "author_id" FROM "books"`)).
		WithArgs(NoArgs...).
		WillReturnRows(rows)
}

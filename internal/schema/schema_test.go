package schema

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudbind/internal/dsl"
	"crudbind/internal/store"
)

const tablesDSL = `
table sites:
  id: serial pk
  name: string required unique

table users:
  id: serial pk
  first_name: string required
  site: int ref=sites.id
  role: string default='user'

table visits:
  user_id: int pk
  site_id: int pk
  note: text
`

func tables(t *testing.T) map[string]*dsl.Table {
	t.Helper()
	doc, err := dsl.Parse(strings.NewReader(tablesDSL), "tables.dsl")
	require.NoError(t, err)
	return doc.Tables
}

func TestGenerateDDLPostgres(t *testing.T) {
	ddl, err := GenerateDDL(tables(t), store.DialectPostgres)
	require.NoError(t, err)

	assert.Equal(t, `create table if not exists "sites" (
  "id" bigserial primary key,
  "name" text not null
);
create unique index if not exists "sites_name_uq" on "sites"("name");
`, ddl["100_sites"])

	assert.Equal(t, `create table if not exists "users" (
  "id" bigserial primary key,
  "first_name" text not null,
  "site" bigint,
  "role" text default 'user'
);
`, ddl["100_users"])

	assert.Equal(t, `create table if not exists "visits" (
  "user_id" bigint not null,
  "site_id" bigint not null,
  "note" text,
  primary key ("user_id", "site_id")
);
`, ddl["100_visits"])

	assert.Equal(t, `alter table "users" add constraint "users_site_fk" foreign key ("site") references "sites"("id") on delete restrict;
`, ddl["200_foreign_keys"])
}

func TestGenerateDDLSQLite(t *testing.T) {
	ddl, err := GenerateDDL(tables(t), store.DialectSQLite)
	require.NoError(t, err)
	assert.NotContains(t, ddl, "200_foreign_keys")
	assert.Contains(t, ddl["100_sites"], `"id" integer primary key autoincrement`)
	assert.Contains(t, ddl["100_users"], `"site" integer references "sites"("id")`)
}

func TestGenerateDDLNoPK(t *testing.T) {
	_, err := GenerateDDL(map[string]*dsl.Table{"t": {Name: "t", Columns: []dsl.Column{{Name: "a", Type: "int"}}}}, store.DialectPostgres)
	assert.Error(t, err)
}

func TestApplySQLiteTwice(t *testing.T) {
	st, err := store.Open("")
	require.NoError(t, err)
	defer st.Close()

	ddl, err := GenerateDDL(tables(t), store.DialectSQLite)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, Apply(ctx, st.DB(), ddl))
	require.NoError(t, Apply(ctx, st.DB(), ddl))

	_, err = st.DB().Exec(`INSERT INTO sites (name) VALUES ('HQ')`)
	require.NoError(t, err)
	_, err = st.DB().Exec(`INSERT INTO sites (name) VALUES ('HQ')`)
	assert.Error(t, err, "unique index")
}

func TestApplyPostgresDuplicates(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	ddl := map[string]string{
		"100_a":            "create table if not exists \"a\" (\n  \"id\" bigint primary key\n);\n",
		"200_foreign_keys": "alter table \"a\" add constraint \"a_b_fk\" foreign key (\"b\") references \"b\"(\"id\") on delete restrict;\nalter table \"a\" add constraint \"a_c_fk\" foreign key (\"c\") references \"c\"(\"id\") on delete restrict;\n",
	}
	mock.ExpectExec("create table if not exists \"a\" (\n  \"id\" bigint primary key\n)").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`alter table "a" add constraint "a_b_fk" foreign key ("b") references "b"("id") on delete restrict`).
		WillReturnError(&pgconn.PgError{Code: "42710", ConstraintName: "a_b_fk"})
	mock.ExpectExec(`alter table "a" add constraint "a_c_fk" foreign key ("c") references "c"("id") on delete restrict`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Apply(context.Background(), db, ddl))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyFails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("permission denied for schema public")
	mock.ExpectExec(`create table if not exists "a" ("id" bigint primary key)`).WillReturnError(boom)

	err = Apply(context.Background(), db, map[string]string{"100_a": `create table if not exists "a" ("id" bigint primary key);`})
	assert.ErrorIs(t, err, boom)
}

package mqueue

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/dbqueue/pkg/sqldb"
)

// Statements is the SQL used by a Queue. Every dialect runs the same
// operations with the same argument order, so an override must accept:
//
//	Insert   queue, lease_until, payload, enqueued_at
//	Reserve  owner, lease_until, queue, now
//	Get      queue, owner, lease_until
//	Delete   id, queue
//
// Get must select id, queue, owner, lease_until, payload, enqueued_at in that order.
type Statements struct {
	Insert  string `env:"SQL_INSERT"`
	Reserve string `env:"SQL_RESERVE"`
	Get     string `env:"SQL_GET"`
	Delete  string `env:"SQL_DELETE"`
}

// merge returns s with every empty statement taken from base.
func (s Statements) merge(base Statements) Statements {
	if s.Insert == "" {
		s.Insert = base.Insert
	}
	if s.Reserve == "" {
		s.Reserve = base.Reserve
	}
	if s.Get == "" {
		s.Get = base.Get
	}
	if s.Delete == "" {
		s.Delete = base.Delete
	}
	return s
}

// identityMode is how a dialect hands back the id generated by Insert.
type identityMode int

const (
	identityLastInsertID identityMode = iota // sql.Result.LastInsertId
	identityReturning                        // INSERT returns a row with the id
	identityOutParam                         // RETURNING ... INTO a trailing sql.Out argument
)

type statementSet struct {
	Statements
	identity identityMode
}

const selectColumns = "id, queue, owner, lease_until, payload, enqueued_at"

// statementSets holds the literal statements per dialect. The reserve
// statement is the only one whose shape really differs: each dialect has its
// own way of limiting an UPDATE to one matching row.
var statementSets = map[sqldb.Dialect]statementSet{
	sqldb.ANSI: {
		Statements: Statements{
			Insert: "INSERT INTO mqueue (queue, owner, lease_until, payload, enqueued_at) VALUES (?, NULL, ?, ?, ?)",
			Reserve: "UPDATE mqueue SET owner = ?, lease_until = ? WHERE id IN (" +
				"SELECT * FROM (SELECT id FROM mqueue WHERE queue = ? AND lease_until < ? ORDER BY id FETCH NEXT 1 ROWS ONLY) AS t)",
			Get:    "SELECT " + selectColumns + " FROM mqueue WHERE queue = ? AND owner = ? AND lease_until = ? ORDER BY id FETCH NEXT 1 ROWS ONLY",
			Delete: "DELETE FROM mqueue WHERE id = ? AND queue = ?",
		},
		identity: identityLastInsertID,
	},
	sqldb.MySQL: {
		Statements: Statements{
			Insert:  "INSERT INTO mqueue (queue, owner, lease_until, payload, enqueued_at) VALUES (?, NULL, ?, ?, ?)",
			Reserve: "UPDATE mqueue SET owner = ?, lease_until = ? WHERE queue = ? AND lease_until < ? ORDER BY id LIMIT 1",
			Get:     "SELECT " + selectColumns + " FROM mqueue WHERE queue = ? AND owner = ? AND lease_until = ? ORDER BY id LIMIT 1",
			Delete:  "DELETE FROM mqueue WHERE id = ? AND queue = ?",
		},
		identity: identityLastInsertID,
	},
	sqldb.PostgreSQL: {
		Statements: Statements{
			Insert: "INSERT INTO mqueue (queue, owner, lease_until, payload, enqueued_at) VALUES ($1, NULL, $2, $3, $4) RETURNING id",
			Reserve: "UPDATE mqueue SET owner = $1, lease_until = $2 WHERE id = (" +
				"SELECT id FROM mqueue WHERE queue = $3 AND lease_until < $4 ORDER BY id LIMIT 1 FOR UPDATE SKIP LOCKED)",
			Get:    "SELECT " + selectColumns + " FROM mqueue WHERE queue = $1 AND owner = $2 AND lease_until = $3 ORDER BY id LIMIT 1",
			Delete: "DELETE FROM mqueue WHERE id = $1 AND queue = $2",
		},
		identity: identityReturning,
	},
	sqldb.SQLServer: {
		Statements: Statements{
			Insert:  "INSERT INTO mqueue (queue, owner, lease_until, payload, enqueued_at) OUTPUT INSERTED.id VALUES (@p1, NULL, @p2, @p3, @p4)",
			Reserve: "UPDATE TOP (1) mqueue WITH (UPDLOCK, READPAST, ROWLOCK) SET owner = @p1, lease_until = @p2 WHERE queue = @p3 AND lease_until < @p4",
			Get:     "SELECT TOP 1 " + selectColumns + " FROM mqueue WHERE queue = @p1 AND owner = @p2 AND lease_until = @p3 ORDER BY id",
			Delete:  "DELETE FROM mqueue WHERE id = @p1 AND queue = @p2",
		},
		identity: identityReturning,
	},
	sqldb.Oracle: {
		Statements: Statements{
			Insert: "INSERT INTO mqueue (queue, owner, lease_until, payload, enqueued_at) VALUES (:1, NULL, :2, :3, :4) RETURNING id INTO :5",
			Reserve: "UPDATE mqueue SET owner = :1, lease_until = :2 WHERE id IN (" +
				"SELECT id FROM mqueue WHERE queue = :3 AND lease_until < :4 ORDER BY id FETCH NEXT 1 ROWS ONLY)",
			Get:    "SELECT " + selectColumns + " FROM mqueue WHERE queue = :1 AND owner = :2 AND lease_until = :3 ORDER BY id FETCH NEXT 1 ROWS ONLY",
			Delete: "DELETE FROM mqueue WHERE id = :1 AND queue = :2",
		},
		identity: identityOutParam,
	},
	sqldb.SQLite: {
		Statements: Statements{
			Insert: "INSERT INTO mqueue (queue, owner, lease_until, payload, enqueued_at) VALUES (?, NULL, ?, ?, ?)",
			Reserve: "UPDATE mqueue SET owner = ?, lease_until = ? WHERE id IN (" +
				"SELECT id FROM mqueue WHERE queue = ? AND lease_until < ? ORDER BY id LIMIT 1)",
			Get:    "SELECT " + selectColumns + " FROM mqueue WHERE queue = ? AND owner = ? AND lease_until = ? ORDER BY id LIMIT 1",
			Delete: "DELETE FROM mqueue WHERE id = ? AND queue = ?",
		},
		identity: identityLastInsertID,
	},
}

// resolveStatements picks the statement set for d and applies overrides.
func resolveStatements(d sqldb.Dialect, overrides Statements) (statementSet, error) {
	set, ok := statementSets[d]
	if !ok {
		return statementSet{}, errors.Join(ErrConfig, sqldb.ErrUnknownDialect, fmt.Errorf("dialect %q", d))
	}
	set.Statements = overrides.merge(set.Statements)
	return set, nil
}

// DefaultStatements returns the built-in statements for d.
func DefaultStatements(d sqldb.Dialect) (Statements, bool) {
	set, ok := statementSets[d]
	return set.Statements, ok
}

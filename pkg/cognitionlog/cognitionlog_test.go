package cognitionlog

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *SQLLog {
	t.Helper()
	l, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestSQLLog_AppendAndOpenTwiceIsIdempotentSchema(t *testing.T) {
	l := openTestLog(t)

	now := time.Now()
	err := l.Append(context.Background(), Entry{
		CognitionID:      "c1",
		AgentID:          "agent-1",
		Operation:        "EXECUTE",
		InputSerialized:  "(EXECUTE [shell] [\"echo hi\"])",
		ResultSerialized: "true",
		Success:          true,
		StartedAt:        now,
		FinishedAt:       now.Add(time.Millisecond),
	})
	require.NoError(t, err)

	// Creating the schema a second time over the existing table succeeds.
	require.NoError(t, l.initSchema())
}

func TestSQLLog_AppendWithParent(t *testing.T) {
	l := openTestLog(t)

	now := time.Now()
	err := l.Append(context.Background(), Entry{
		CognitionID: "child-1",
		AgentID:     "agent-1",
		Operation:   "EXECUTE",
		Success:     false,
		StartedAt:   now,
		FinishedAt:  now,
		ParentID:    "root-1",
	})
	require.NoError(t, err)
}

// sqlite accepts "$N" bind parameters as one of its native named-
// parameter forms, so forcing dialect="postgres" over a sqlite
// connection is enough to prove Append emits the $N-placeholder query
// on that branch rather than the default "?" one.
func TestSQLLog_AppendUsesDollarPlaceholdersForPostgresDialect(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	l, err := NewWithDB(db, "postgres")
	require.NoError(t, err)

	now := time.Now()
	err = l.Append(context.Background(), Entry{
		CognitionID:      "pg-1",
		AgentID:          "agent-1",
		Operation:        "EXECUTE",
		InputSerialized:  "(EXECUTE [shell] [\"echo hi\"])",
		ResultSerialized: "true",
		Success:          true,
		StartedAt:        now,
		FinishedAt:       now,
		ParentID:         "root-1",
	})
	require.NoError(t, err)

	var agentID string
	row := db.QueryRowContext(context.Background(),
		`SELECT agent_id FROM cognition_log WHERE cognition_id = ?`, "pg-1")
	require.NoError(t, row.Scan(&agentID))
	assert.Equal(t, "agent-1", agentID)
}

func TestOpen_RejectsUnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	require.Error(t, err)
}

func TestOpen_DuplicateCognitionIDRejected(t *testing.T) {
	l := openTestLog(t)
	now := time.Now()
	e := Entry{CognitionID: "dup", AgentID: "a", Operation: "QUERY", StartedAt: now, FinishedAt: now}

	require.NoError(t, l.Append(context.Background(), e))
	err := l.Append(context.Background(), e)
	assert.Error(t, err)
}

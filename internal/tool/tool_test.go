package tool

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"sheetsql/internal/logging"
)

func newToolSet(t *testing.T) map[string]Tool {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.sqlite3")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range []string{
		`CREATE TABLE orders (orderID INTEGER, customerID TEXT)`,
		`INSERT INTO orders VALUES (10248, 'VINET')`,
		`INSERT INTO orders VALUES (10249, 'TOMSP')`,
		`CREATE VIEW first_order AS SELECT * FROM orders LIMIT 1`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	tools := Tools(dbPath, logging.New(io.Discard, "ERROR"))
	byName := make(map[string]Tool, len(tools))
	for _, tl := range tools {
		byName[tl.Name] = tl
	}
	return byName
}

func TestTools(t *testing.T) {
	t.Parallel()

	tools := newToolSet(t)
	require.Len(t, tools, 4)
	for _, name := range []string{
		"list_tables_and_views",
		"get_object_columns",
		"get_object_summary",
		"get_view_definition",
	} {
		tl, ok := tools[name]
		require.True(t, ok, "missing tool %s", name)
		assert.NotEmpty(t, tl.Description)
		assert.NotNil(t, tl.InputSchema)
		assert.NotNil(t, tl.Handler)
	}
}

func TestListTablesAndViewsTool(t *testing.T) {
	t.Parallel()

	tools := newToolSet(t)
	result, err := tools["list_tables_and_views"].Handler(context.Background(), "{}")
	require.NoError(t, err)

	var payload struct {
		Tables []string `json:"tables"`
		Views  []string `json:"views"`
	}
	require.NoError(t, json.Unmarshal([]byte(result), &payload))
	assert.Equal(t, []string{"orders"}, payload.Tables)
	assert.Equal(t, []string{"first_order"}, payload.Views)
}

func TestGetObjectColumnsTool(t *testing.T) {
	t.Parallel()

	t.Run("existing table", func(t *testing.T) {
		t.Parallel()

		tools := newToolSet(t)
		result, err := tools["get_object_columns"].Handler(context.Background(),
			`{"object_name": "orders"}`)
		require.NoError(t, err)

		var columns []map[string]string
		require.NoError(t, json.Unmarshal([]byte(result), &columns))
		require.Len(t, columns, 2)
		assert.Equal(t, "orderID", columns[0]["name"])
		assert.Equal(t, "INTEGER", columns[0]["type"])
	})

	t.Run("unknown object yields single-element error payload", func(t *testing.T) {
		t.Parallel()

		tools := newToolSet(t)
		result, err := tools["get_object_columns"].Handler(context.Background(),
			`{"object_name": "nonexistent"}`)
		require.NoError(t, err, "catalog misses must not surface as Go errors")
		assert.JSONEq(t, `[{"error": "Object 'nonexistent' not found."}]`, result)
	})

	t.Run("malformed arguments", func(t *testing.T) {
		t.Parallel()

		tools := newToolSet(t)
		_, err := tools["get_object_columns"].Handler(context.Background(), "{not json")
		require.Error(t, err)
	})
}

func TestGetObjectSummaryTool(t *testing.T) {
	t.Parallel()

	t.Run("existing table", func(t *testing.T) {
		t.Parallel()

		tools := newToolSet(t)
		result, err := tools["get_object_summary"].Handler(context.Background(),
			`{"object_name": "orders"}`)
		require.NoError(t, err)

		var payload struct {
			RowCount   int64            `json:"row_count"`
			SampleRows []map[string]any `json:"sample_rows"`
		}
		require.NoError(t, json.Unmarshal([]byte(result), &payload))
		assert.Equal(t, int64(2), payload.RowCount)
		require.Len(t, payload.SampleRows, 2)
		assert.Equal(t, "VINET", payload.SampleRows[0]["customerID"])
	})

	t.Run("unknown object yields error payload", func(t *testing.T) {
		t.Parallel()

		tools := newToolSet(t)
		result, err := tools["get_object_summary"].Handler(context.Background(),
			`{"object_name": "ghost"}`)
		require.NoError(t, err)
		assert.JSONEq(t, `{"error": "Object 'ghost' not found."}`, result)
	})
}

func TestToolsStoreFailure(t *testing.T) {
	t.Parallel()

	// A directory is not a database file, so every query fails at the driver
	// level once the lazily opened connection is first used. The dispatcher
	// must receive a payload, not a Go error.
	newBrokenToolSet := func(t *testing.T) map[string]Tool {
		t.Helper()
		tools := Tools(t.TempDir(), logging.New(io.Discard, "ERROR"))
		byName := make(map[string]Tool, len(tools))
		for _, tl := range tools {
			byName[tl.Name] = tl
		}
		return byName
	}

	t.Run("list_tables_and_views returns error payload", func(t *testing.T) {
		t.Parallel()

		tools := newBrokenToolSet(t)
		result, err := tools["list_tables_and_views"].Handler(context.Background(), "{}")
		require.NoError(t, err, "store failures must not surface as Go errors")

		var payload map[string]any
		require.NoError(t, json.Unmarshal([]byte(result), &payload))
		assert.NotEmpty(t, payload["error"])
	})

	t.Run("get_object_columns returns single-element error payload", func(t *testing.T) {
		t.Parallel()

		tools := newBrokenToolSet(t)
		result, err := tools["get_object_columns"].Handler(context.Background(),
			`{"object_name": "orders"}`)
		require.NoError(t, err, "store failures must not surface as Go errors")

		var payload []map[string]any
		require.NoError(t, json.Unmarshal([]byte(result), &payload))
		require.Len(t, payload, 1)
		assert.NotEmpty(t, payload[0]["error"])
	})

	t.Run("get_object_summary returns error payload", func(t *testing.T) {
		t.Parallel()

		tools := newBrokenToolSet(t)
		result, err := tools["get_object_summary"].Handler(context.Background(),
			`{"object_name": "orders"}`)
		require.NoError(t, err, "store failures must not surface as Go errors")

		var payload map[string]any
		require.NoError(t, json.Unmarshal([]byte(result), &payload))
		assert.NotEmpty(t, payload["error"])
	})

	t.Run("get_view_definition returns error text", func(t *testing.T) {
		t.Parallel()

		tools := newBrokenToolSet(t)
		result, err := tools["get_view_definition"].Handler(context.Background(),
			`{"view_name": "first_order"}`)
		require.NoError(t, err, "store failures must not surface as Go errors")
		assert.NotEmpty(t, result)
		assert.NotEqual(t, "View 'first_order' not found.", result,
			"a store failure is not a missing view")
	})
}

func TestGetViewDefinitionTool(t *testing.T) {
	t.Parallel()

	t.Run("existing view returns SQL text", func(t *testing.T) {
		t.Parallel()

		tools := newToolSet(t)
		result, err := tools["get_view_definition"].Handler(context.Background(),
			`{"view_name": "first_order"}`)
		require.NoError(t, err)
		assert.Equal(t, `CREATE VIEW first_order AS SELECT * FROM orders LIMIT 1`, result)
	})

	t.Run("unknown view returns the literal not-found string", func(t *testing.T) {
		t.Parallel()

		tools := newToolSet(t)
		result, err := tools["get_view_definition"].Handler(context.Background(),
			`{"view_name": "no_such_view"}`)
		require.NoError(t, err)
		// Plain string, not a JSON error object. Historical contract.
		assert.Equal(t, "View 'no_such_view' not found.", result)
	})
}

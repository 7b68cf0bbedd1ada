package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_AppliesOverlayAndLowering(t *testing.T) {
	query := `{"filter":[{"field":"age","hi":65,"lo":18,"op":"range"}],"sort":[{"dir":"desc","field":"age"}]}`

	out, err := execute(t, query, "compile", "users", "--filter", "-", "--size", "10", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	find := resp.Data.Find.SQL
	assert.Contains(t, find, `SELECT * FROM "users" WHERE`)
	assert.Contains(t, find, `"age" >= ?`)
	assert.Contains(t, find, `"age" <= ?`)
	assert.Contains(t, find, `"deleted"`)
	assert.True(t, strings.HasSuffix(find, `ORDER BY "age" DESC, "id" ASC LIMIT 10`), find)
	assert.NotContains(t, find, "range")

	assert.Contains(t, resp.Data.Count.SQL, `SELECT COUNT(*) FROM "users" WHERE`)
	assert.Len(t, resp.Data.Fingerprint, 64)
}

func TestCompile_ExcludeNeedsColumns(t *testing.T) {
	query := `{"exclude":["secret"]}`

	_, err := execute(t, query, "compile", "users", "--filter", "-")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err := execute(t, query, "compile", "users", "--filter", "-", "--columns", "id,name,secret,deleted")
	require.NoError(t, err)
	assert.Contains(t, out, `SELECT "id", "name", "deleted" FROM "users"`)
}

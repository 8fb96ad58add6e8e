package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	godbf "github.com/Ulysses-Xu/dbfcodec"
)

var orderFields = []godbf.Field{
	{Name: "ORDER_TYPE", Type: godbf.TypeCharacter, Length: 4},
	{Name: "PRICE", Type: godbf.TypeNumeric, Length: 8, Decimal: 2},
	{Name: "VOLUME", Type: godbf.TypeInteger, Length: 4},
	{Name: "ACTIVE", Type: godbf.TypeLogical, Length: 1},
	{Name: "PLACED", Type: godbf.TypeDate, Length: 8},
}

func writeOrders(t *testing.T) string {
	t.Helper()
	buf, err := godbf.Encode(&godbf.Table{
		Header: godbf.Header{Version: 0x03, Fields: orderFields},
		Rows: []godbf.Row{
			{
				{Name: "ORDER_TYPE", Value: godbf.Text("23")},
				{Name: "PRICE", Value: godbf.Number(2.35)},
				{Name: "VOLUME", Value: godbf.Number(100)},
				{Name: "ACTIVE", Value: godbf.Boolean(true)},
				{Name: "PLACED", Value: godbf.DateText("2024-05-06")},
			},
		},
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "orders.dbf")
	require.NoError(t, os.WriteFile(path, buf, 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config", writeConfig(t)))
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("codec:\n  workers: 1\n"), 0o600))
	return path
}

func TestInspectCommand(t *testing.T) {
	path := writeOrders(t)

	out, err := run(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "orders.dbf")
	assert.Contains(t, out, "Records:")
	assert.Contains(t, out, "1 (1 active)")
	assert.Regexp(t, `PRICE\s+N\s+8\s+2`, out)
}

func TestRowsCommand(t *testing.T) {
	path := writeOrders(t)

	out, err := run(t, "rows", path)
	require.NoError(t, err)
	assert.Regexp(t, `ORDER_TYPE\s+PRICE\s+VOLUME\s+ACTIVE\s+PLACED`, out)
	assert.Regexp(t, `23\s+2.35\s+100\s+T\s+2024-05-06`, out)

	out, err = run(t, "rows", path, "--offset", "5")
	require.NoError(t, err)
	assert.NotContains(t, out, "2024-05-06")
}

func TestAppendAndRewriteCommands(t *testing.T) {
	path := writeOrders(t)

	_, err := run(t, "append", path, "order_type=49", "PRICE=10.5", "ACTIVE=F", "PLACED=2024-06-01")
	require.NoError(t, err)

	table, err := godbf.NewDBFFromFile(path, nil)
	require.NoError(t, err)
	require.Len(t, table.Table().Rows, 2)
	row := table.Table().Rows[1]
	assert.Equal(t, godbf.Text("49"), row.Get("ORDER_TYPE"))
	assert.Equal(t, godbf.Number(10.5), row.Get("PRICE"))
	assert.Equal(t, godbf.Number(0), row.Get("VOLUME"))
	assert.Equal(t, godbf.Boolean(false), row.Get("ACTIVE"))

	out := filepath.Join(t.TempDir(), "copy.dbf")
	msg, err := run(t, "rewrite", path, out)
	require.NoError(t, err)
	assert.Contains(t, msg, "Wrote 2 of 2 records")

	copied, err := godbf.NewDBFFromFile(out, nil)
	require.NoError(t, err)
	require.Len(t, copied.Table().Rows, 2)
	for i := range copied.Table().Rows {
		assert.True(t, table.Table().Rows[i].Equal(copied.Table().Rows[i]))
	}
}

func TestAppendCommandErrors(t *testing.T) {
	path := writeOrders(t)

	_, err := run(t, "append", path, "NOPE=1")
	assert.ErrorContains(t, err, "unknown field")

	_, err = run(t, "append", path, "PRICE")
	assert.ErrorContains(t, err, "expected NAME=value")

	_, err = run(t, "append", path, "PRICE=cheap")
	assert.ErrorContains(t, err, "not a number")
}

func TestStrictFlag(t *testing.T) {
	path := writeOrders(t)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// cut the only record short
	require.NoError(t, os.WriteFile(path, data[:len(data)-5], 0o600))

	_, err = run(t, "rows", path)
	require.NoError(t, err)

	_, err = run(t, "rows", path, "--strict")
	var formatErr *godbf.FormatError
	assert.ErrorAs(t, err, &formatErr)
}

func TestUnknownEncodingFlag(t *testing.T) {
	path := writeOrders(t)
	_, err := run(t, "inspect", path, "--encoding", "klingon")
	assert.ErrorIs(t, err, godbf.ErrUnknownEncoding)
}

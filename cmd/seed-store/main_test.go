package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/flatshop/internal/storage/textfile"
)

const testSeed = `{
  "products": [
    {"id": 1, "name": "Keyboard", "price": "49.90", "stock": 3},
    {"id": 2, "name": "Mouse", "price": 19.99, "stock": 10, "color": "black"}
  ],
  "promotions": [
    {"id": 1, "description": "Mouse week", "discount": 10, "products": [2]}
  ],
  "users": [{"username": "alice", "password": "secret"}],
  "version": 1
}`

func TestDecodeSeed(t *testing.T) {
	s, err := decodeSeed([]byte(testSeed))
	require.NoError(t, err)

	require.Len(t, s.Products, 2)
	assert.Equal(t, "Keyboard", s.Products[0].Name)
	assert.True(t, decimal.RequireFromString("49.90").Equal(s.Products[0].Price))
	assert.True(t, decimal.RequireFromString("19.99").Equal(s.Products[1].Price))
	assert.Equal(t, 10, s.Products[1].Stock)

	require.Len(t, s.Promotions, 1)
	assert.Equal(t, []int{2}, s.Promotions[0].ProductIDs)
	assert.True(t, decimal.NewFromInt(10).Equal(s.Promotions[0].DiscountPercent))

	assert.Equal(t, []textfile.Credential{{Username: "alice", Password: "secret"}}, s.Users)
}

func TestDecodeSeed_Invalid(t *testing.T) {
	for _, input := range []string{
		`{"products": [{"id": "one"}]}`,
		`{"products": [{"price": "cheap"}]}`,
		`[1, 2]`,
	} {
		_, err := decodeSeed([]byte(input))
		assert.Error(t, err, input)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	seedFile := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(seedFile, []byte(testSeed), 0o644))
	dataDir := filepath.Join(dir, "data")

	require.NoError(t, run(context.Background(), dataDir, seedFile, false))

	products, err := textfile.LoadCatalog(filepath.Join(dataDir, "products.txt"))
	require.NoError(t, err)
	require.Len(t, products, 2)

	promotions, err := textfile.LoadPromotions(filepath.Join(dataDir, "promotions.txt"))
	require.NoError(t, err)
	require.Len(t, promotions, 1)

	// Existing files are kept without -force.
	require.NoError(t, os.WriteFile(seedFile, []byte(`{"products": []}`), 0o644))
	require.NoError(t, run(context.Background(), dataDir, seedFile, false))
	products, err = textfile.LoadCatalog(filepath.Join(dataDir, "products.txt"))
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestRun_RejectsInvalidProduct(t *testing.T) {
	dir := t.TempDir()
	seedFile := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(seedFile,
		[]byte(`{"products": [{"id": 1, "name": "Pens, blue", "price": 1, "stock": 1}]}`), 0o644))

	require.Error(t, run(context.Background(), filepath.Join(dir, "data"), seedFile, false))
	_, err := os.Stat(filepath.Join(dir, "data", "products.txt"))
	assert.True(t, os.IsNotExist(err))
}

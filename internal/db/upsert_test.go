package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "restaurants",
		Columns:      []string{"chef_id", "name"},
		ConflictKeys: []string{"chef_id", "name"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "restaurants",
		ConflictKeys: []string{"chef_id", "name"},
	}, [][]any{{1, "Le Galopin"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "restaurants",
		Columns: []string{"chef_id", "name"},
	}, [][]any{{1, "Le Galopin"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"chef_id", "name", "address"})
	assert.Equal(t, `"chef_id", "name", "address"`, result)
}

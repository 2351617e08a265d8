package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bichon_errors "github.com/therolffr/bichon/errors"
)

func items(n int) []string {
	result := make([]string, n)
	for i := range result {
		result[i] = fmt.Sprintf("item_%d", i)
	}
	return result
}

func TestPaginate_ZeroPageFails(t *testing.T) {
	_, err := Paginate(items(10), 0, 5)
	require.Error(t, err)
	assert.Equal(t, bichon_errors.InvalidParameter, bichon_errors.CodeOf(err))
}

func TestPaginate_ZeroPageSizeFails(t *testing.T) {
	_, err := Paginate(items(10), 1, 0)
	require.Error(t, err)
	assert.Equal(t, bichon_errors.InvalidParameter, bichon_errors.CodeOf(err))
}

func TestPaginate_FirstPage(t *testing.T) {
	page, err := Paginate(items(10), 1, 3)
	require.NoError(t, err)

	assert.Equal(t, uint64(10), page.TotalItems)
	assert.Equal(t, uint64(4), page.TotalPages)
	assert.Equal(t, []string{"item_0", "item_1", "item_2"}, page.Data)
}

func TestPaginate_LastPartialPage(t *testing.T) {
	page, err := Paginate(items(10), 4, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"item_9"}, page.Data)
}

func TestPaginate_OffsetPastEnd(t *testing.T) {
	page, err := Paginate(items(10), 5, 3)
	require.NoError(t, err)

	assert.Empty(t, page.Data)
	assert.Equal(t, uint64(4), page.TotalPages)
}

func TestPaginate_Boundary101Items(t *testing.T) {
	all := items(101)

	page11, err := Paginate(all, 11, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), page11.TotalPages)
	assert.Equal(t, []string{"item_100"}, page11.Data)

	page12, err := Paginate(all, 12, 10)
	require.NoError(t, err)
	assert.Empty(t, page12.Data)
	assert.Equal(t, uint64(11), page12.TotalPages)
}

func TestPaginate_EmptyInput(t *testing.T) {
	page, err := Paginate([]string{}, 1, 10)
	require.NoError(t, err)

	assert.Zero(t, page.TotalItems)
	assert.Zero(t, page.TotalPages)
	assert.Empty(t, page.Data)
}

func TestPaginate_ExactMultiple(t *testing.T) {
	page, err := Paginate(items(20), 2, 10)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), page.TotalPages)
	assert.Len(t, page.Data, 10)
	assert.Equal(t, "item_10", page.Data[0])
}

package layer_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowscan/optset/layer"
)

func TestSQLNeedsDatabase(t *testing.T) {
	_, err := layer.NewSQL[int, Permission](layer.SQLConfig{})
	assert.NotNil(t, err)
}

func TestSQLEmptyBatch(t *testing.T) {
	// the handle doesn't connect until a query runs, an empty batch must
	// return before touching the database
	db, err := sql.Open("mysql", "user:password@tcp(localhost:3306)/masks")
	assert.Nil(t, err)

	l, err := layer.NewSQL[int, Permission](layer.SQLConfig{DB: db})
	assert.Nil(t, err)
	assert.Equal(t, "sql", l.Identifier())

	masks, errs := l.Get(nil)
	assert.Empty(t, masks)
	assert.Empty(t, errs)

	assert.Nil(t, l.Set(nil, nil))
}

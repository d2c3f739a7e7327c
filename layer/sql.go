package layer

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/flowscan/optset"
)

// Configuration for the SQL mask layer
type SQLConfig struct {
	// Database handle, the table is expected to have a unique key column and an
	// unsigned integer mask column (BIGINT UNSIGNED covers every storage width)
	DB *sql.DB

	// Table holding the masks, defaults to "masks"
	Table string

	// Name of the key column, defaults to "id"
	KeyColumn string

	// Name of the mask column, defaults to "mask"
	MaskColumn string
}

const (
	SQLConfigDefaultTable      = "masks"
	SQLConfigDefaultKeyColumn  = "id"
	SQLConfigDefaultMaskColumn = "mask"
)

func (c *SQLConfig) Validate() error {
	if c.DB == nil {
		return fmt.Errorf("sql layer needs a database handle")
	}
	if c.Table == "" {
		c.Table = SQLConfigDefaultTable
	}
	if c.KeyColumn == "" {
		c.KeyColumn = SQLConfigDefaultKeyColumn
	}
	if c.MaskColumn == "" {
		c.MaskColumn = SQLConfigDefaultMaskColumn
	}
	return nil
}

// SQL layer persists masks in a two-column table, MySQL dialect. It is meant to
// be the last (authoritative) layer of a store with caches in front of it.
type SQL[TKey comparable, TFlag optset.Flag] struct {
	config      SQLConfig
	selectOne   string
	selectMany  string // with the IN list appended per batch
	upsertOne   string
	upsertParam string
}

// Create a new SQL mask layer
func NewSQL[TKey comparable, TFlag optset.Flag](config SQLConfig) (*SQL[TKey, TFlag], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	l := &SQL[TKey, TFlag]{config: config}
	l.selectOne = fmt.Sprintf(
		"SELECT `%s` FROM `%s` WHERE `%s` = ?",
		config.MaskColumn, config.Table, config.KeyColumn,
	)
	l.selectMany = fmt.Sprintf(
		"SELECT `%s`, `%s` FROM `%s` WHERE `%s` IN ",
		config.KeyColumn, config.MaskColumn, config.Table, config.KeyColumn,
	)
	l.upsertOne = fmt.Sprintf(
		"INSERT INTO `%s` (`%s`, `%s`) VALUES (?, ?) ON DUPLICATE KEY UPDATE `%s` = VALUES(`%s`)",
		config.Table, config.KeyColumn, config.MaskColumn, config.MaskColumn, config.MaskColumn,
	)
	l.upsertParam = "(?, ?)"
	return l, nil
}

// Unique identifier for this layer used for logging and metric purposes
func (l *SQL[TKey, TFlag]) Identifier() string { return "sql" }

// The function that will be used to resolve a set of keys
func (l *SQL[TKey, TFlag]) Get(keys []TKey) ([]TFlag, []error) {
	result := make([]TFlag, len(keys))
	errors := make([]error, len(keys))

	if len(keys) == 0 {
		return result, errors
	}

	if len(keys) == 1 {
		var mask uint64
		err := l.config.DB.QueryRow(l.selectOne, keys[0]).Scan(&mask)
		if isNoRowsError(err) {
			errors[0] = optset.NewErrNotFound(keys[0])
		} else if err != nil {
			errors[0] = err
		} else {
			result[0] = TFlag(mask)
		}
		return result, errors
	}

	query := l.selectMany + placeholderList(len(keys))
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	rows, err := l.config.DB.Query(query, args...)
	if err != nil {
		return result, fillArray(errors, err)
	}
	defer rows.Close()

	found := make(map[TKey]uint64, len(keys))
	for rows.Next() {
		var key TKey
		var mask uint64
		if err := rows.Scan(&key, &mask); err != nil {
			return result, fillArray(errors, err)
		}
		found[key] = mask
	}
	if err := rows.Err(); err != nil {
		return result, fillArray(errors, err)
	}

	for i, k := range keys {
		if mask, ok := found[k]; ok {
			result[i] = TFlag(mask)
		} else {
			errors[i] = optset.NewErrNotFound(k)
		}
	}
	return result, errors
}

// The function that will be called on saves and cache priming
func (l *SQL[TKey, TFlag]) Set(keys []TKey, masks []TFlag) []error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := make([]string, len(keys))
	args := make([]interface{}, 0, 2*len(keys))
	for i, k := range keys {
		placeholders[i] = l.upsertParam
		args = append(args, k, uint64(masks[i]))
	}
	query := fmt.Sprintf(
		"INSERT INTO `%s` (`%s`, `%s`) VALUES %s ON DUPLICATE KEY UPDATE `%s` = VALUES(`%s`)",
		l.config.Table, l.config.KeyColumn, l.config.MaskColumn,
		strings.Join(placeholders, ", "),
		l.config.MaskColumn, l.config.MaskColumn,
	)

	if _, err := l.config.DB.Exec(query, args...); err != nil {
		// concurrent upserts on the same new key can still trip the unique
		// index, retry row by row so only the losing keys report errors
		if isDuplicateKeyError(err) {
			return l.setSequential(keys, masks)
		}
		return fillArray(make([]error, len(keys)), err)
	}
	return nil
}

func (l *SQL[TKey, TFlag]) setSequential(keys []TKey, masks []TFlag) []error {
	errors := make([]error, len(keys))
	for i, k := range keys {
		if _, err := l.config.DB.Exec(l.upsertOne, k, uint64(masks[i])); err != nil {
			errors[i] = err
		}
	}
	return errors
}

func placeholderList(count int) string {
	return "(?" + strings.Repeat(", ?", count-1) + ")"
}

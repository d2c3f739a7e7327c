package layer

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

func isDuplicateKeyError(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}

func isNoRowsError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

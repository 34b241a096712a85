package services

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// Error taxonomy surfaced by the service layer. Handlers map these to
// HTTP statuses; nothing here is fatal to the process.
var (
	// ErrNotFound: the referenced user or file id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName: username or filename already taken.
	ErrDuplicateName = errors.New("name already exists")
	// ErrPermissionDenied: caller lacks a grant for the operation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrPasswordMismatch: signup password confirmation differs.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrInvalidCredentials: login with unknown user or wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a unique-constraint violation.
// GORM translates these to ErrDuplicatedKey for most dialects; the raw
// MySQL error code is checked as well since translation depends on
// driver version.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	return false
}

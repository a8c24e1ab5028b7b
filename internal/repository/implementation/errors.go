package implementation

import (
	"errors"
	"strings"

	"premarket-access-be/internal/repository/contract"

	"gorm.io/gorm"
)

// translateError maps driver errors onto repository sentinels. TranslateError
// covers postgres and sqlite; the string check catches drivers that do not
// implement the translator.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique constraint") {
		return contract.ErrDuplicate
	}
	return err
}

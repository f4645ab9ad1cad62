package service

import "github.com/ignatzorin/dispute-backend/internal/pkg/apperror"

// invalid переводит ошибку проверки ввода в VALIDATION_ERROR.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
}

package common

import (
	"errors"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// UniqueViolation сообщает, что запрос нарушил уникальный индекс, и возвращает его имя.
func UniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

// MapUniqueViolation заменяет нарушение указанного индекса доменной ошибкой.
func MapUniqueViolation(err error, constraint string, domainErr error) error {
	if name, ok := UniqueViolation(err); ok && name == constraint {
		return domainErr
	}
	return err
}

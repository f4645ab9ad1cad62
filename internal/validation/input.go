package validation

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MaxDescriptionLength  = 5000
	MaxMessageLength      = 5000
	MaxReasonLength       = 2000
	MaxFileNameLength     = 255
	MaxExternalLinkLength = 500
	MaxAmount             = 100000000.0 // 100 миллионов
)

// localFilePrefix префикс файлов, сохранённых самим сервисом.
const localFilePrefix = "/files/evidence/"

// ValidateLength проверяет длину строки в символах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// RequiredText обрезает пробелы и проверяет, что текст не пуст и укладывается в max символов.
func RequiredText(fieldName, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s обязательно", fieldName)
	}
	return value, ValidateLength(fieldName, value, 0, max)
}

// OptionalText обрезает пробелы и проверяет только верхнюю границу.
func OptionalText(fieldName, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	return value, ValidateLength(fieldName, value, 0, max)
}

// ValidateAmount проверяет сумму возврата.
func ValidateAmount(fieldName string, amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("%s должна быть положительной", fieldName)
	}
	if amount > MaxAmount {
		return fmt.Errorf("%s не может превышать %.0f", fieldName, MaxAmount)
	}
	return nil
}

// ValidateExternalLink принимает только внешнюю http(s) ссылку.
// Пути файлового хранилища сервиса сюда не проходят.
func ValidateExternalLink(link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return fmt.Errorf("ссылка на файл обязательна")
	}
	if err := ValidateLength("ссылка на файл", link, 0, MaxExternalLinkLength); err != nil {
		return err
	}
	if strings.HasPrefix(link, localFilePrefix) {
		return fmt.Errorf("файлы хранилища прикладываются только загрузкой")
	}

	parsedURL, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("некорректный формат URL")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("ссылка должна начинаться с http:// или https://")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("ссылка должна содержать доменное имя")
	}
	return nil
}

// ValidateStoredPath проверяет, что сохранённый файл лежит в каталоге своего спора.
func ValidateStoredPath(link string, disputeID int64) error {
	prefix := localFilePrefix + strconv.FormatInt(disputeID, 10) + "/"
	name, ok := strings.CutPrefix(link, prefix)
	if !ok || name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return fmt.Errorf("некорректный путь к файлу")
	}
	return nil
}

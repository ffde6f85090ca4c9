package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия
	// (например, скачивание чужого инвойса).
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния
	// (дубликат email, повторное создание товара с тем же catalog id).
	ErrConflict = errors.New("resource state conflict")

	// ErrRateLimited используется для 429-х ответов: кулдаун повторной отправки OTP
	// или активная блокировка после исчерпания попыток. Обработчик добавляет
	// retry_after_seconds в тело ответа.
	ErrRateLimited = errors.New("rate limited")
)

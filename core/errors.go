// Package core предоставляет систему ошибок ядра.
package core

import (
	"fmt"
	"runtime"
	"strings"
)

// Коды ошибок ядра
const (
	ErrNotFound            = "NOT_FOUND"
	ErrAlreadyExists       = "ALREADY_EXISTS"
	ErrInvalidTransition   = "INVALID_TRANSITION"
	ErrStepExecutionFailed = "STEP_EXECUTION_FAILED"
	ErrReplayDelivery      = "REPLAY_DELIVERY_FAILED"
	ErrInvalidConfig       = "INVALID_CONFIG"
)

// CoreError базовый тип ошибки ядра
type CoreError struct {
	Code       string
	Message    string
	Cause      error
	StackTrace string
}

// Error реализует интерфейс error
func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap возвращает причину ошибки
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is проверяет, соответствует ли ошибка коду
func (e *CoreError) Is(target error) bool {
	if t, ok := target.(*CoreError); ok {
		return e.Code == t.Code
	}
	return false
}

// NewError создает новую ошибку ядра
func NewError(code, message string) *CoreError {
	return &CoreError{
		Code:       code,
		Message:    message,
		StackTrace: captureStackTrace(),
	}
}

// Wrap оборачивает существующую ошибку
func Wrap(err error, code, message string) *CoreError {
	if err == nil {
		return nil
	}
	return &CoreError{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStackTrace(),
	}
}

// IsCode проверяет, имеет ли ошибка (или любая в цепочке) указанный код
func IsCode(err error, code string) bool {
	for err != nil {
		if coreErr, ok := err.(*CoreError); ok && coreErr.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// captureStackTrace захватывает stack trace
func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	stack := string(buf[:n])

	// Убираем первые несколько строк (сама функция captureStackTrace)
	lines := strings.Split(stack, "\n")
	if len(lines) > 4 {
		lines = lines[4:]
	}
	return strings.Join(lines, "\n")
}

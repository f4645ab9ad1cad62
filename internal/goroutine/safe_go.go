package goroutine

import (
	"context"
	"runtime/debug"
	"sync"
)

// Logger интерфейс для логирования ошибок
type Logger interface {
	Errorf(format string, args ...interface{})
}

// Launcher запускает фоновую работу после фиксации транзакции.
type Launcher interface {
	Go(fn func())
}

// RecoveryHandler обрабатывает panic в горутинах и ждёт их при остановке.
type RecoveryHandler struct {
	logger Logger
	wg     sync.WaitGroup
}

// NewRecoveryHandler создает новый обработчик
func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// Go запускает горутину с обработкой panic
func (rh *RecoveryHandler) Go(fn func()) {
	rh.wg.Add(1)
	go func() {
		defer rh.wg.Done()
		rh.run(fn)
	}()
}

// GoWithContext запускает горутину с контекстом и обработкой panic
func (rh *RecoveryHandler) GoWithContext(ctx context.Context, fn func(context.Context)) {
	rh.Go(func() { fn(ctx) })
}

// Wait дожидается завершения запущенных горутин.
func (rh *RecoveryHandler) Wait() {
	rh.wg.Wait()
}

func (rh *RecoveryHandler) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			rh.logger.Errorf("Panic in goroutine: %v\nStack trace:\n%s", r, debug.Stack())
		}
	}()
	fn()
}

// Inline выполняет работу в вызывающей горутине. Используется в одноразовых командах и тестах.
type Inline struct {
	Logger Logger
}

func (i Inline) Go(fn func()) {
	defer func() {
		if r := recover(); r != nil && i.Logger != nil {
			i.Logger.Errorf("Panic in inline task: %v\nStack trace:\n%s", r, debug.Stack())
		}
	}()
	fn()
}

// Package fabric определяет границу с удалённой фабрикой выполнения.
//
// Ядро оркестрации взаимодействует с фабрикой только через интерфейс
// Fabric: submit/poll/cancel. Это позволяет тестировать планировщик с
// детерминированной фальшивой фабрикой и подключать реальную (RabbitMQ,
// internal/mq) без изменения контроллера.
package fabric

import (
	"context"
	"errors"

	"github.com/shaiso/Conveyor/internal/domain"
)

// Handle — непрозрачная ссылка на instance, принятый фабрикой.
type Handle string

// Status — статус выполнения на фабрике.
type Status string

// Статусы, которые фабрика сообщает при poll.
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal возвращает true для финальных статусов фабрики.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Report — результат poll одного handle.
type Report struct {
	// Status — текущий статус выполнения.
	Status Status

	// Outputs — плоский набор выходных значений (для завершённых instances).
	Outputs map[string]string

	// Error — текст ошибки при статусе failed.
	Error string
}

// ErrUnknownHandle — фабрика не знает такой handle.
var ErrUnknownHandle = errors.New("unknown remote handle")

// Fabric — возможность удалённого выполнения instances.
//
// Submit — fire-and-forget: не блокируется до завершения на фабрике.
// Poll обязан быть неблокирующим или ограниченным по времени — event loop
// опрашивает все handles за один тик и не должен зависать на одном.
type Fabric interface {
	Submit(ctx context.Context, inst *domain.Instance, queue string) (Handle, error)
	Poll(ctx context.Context, h Handle) (*Report, error)
	Cancel(ctx context.Context, h Handle) error
}

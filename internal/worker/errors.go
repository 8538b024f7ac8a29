package worker

import "errors"

// Ошибки воркера.
var (
	// ErrUnknownExecutor — для instance не зарегистрирован executor.
	ErrUnknownExecutor = errors.New("unknown executor")

	// ErrMissingEntryPoint — у instance нет параметра General/entry_point.
	ErrMissingEntryPoint = errors.New("instance has no entry point")
)

package engine

import "errors"

// Ошибки определения pipeline (definition errors).
// Возникают синхронно при AddStep/построении и фатальны для конструирования.
var (
	// ErrEmptyStepName — шаг не имеет имени.
	ErrEmptyStepName = errors.New("step has empty name")

	// ErrDuplicateStep — шаг с таким именем уже зарегистрирован.
	ErrDuplicateStep = errors.New("duplicate step name")

	// ErrUnknownParent — родитель ссылается на незарегистрированный шаг.
	ErrUnknownParent = errors.New("unknown parent step")

	// ErrCyclicDependency — добавление шага создало бы цикл.
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrNoQueue — ни шаг, ни pipeline не задают очередь выполнения.
	ErrNoQueue = errors.New("no execution queue configured")

	// ErrEmptySteps — pipeline не содержит шагов.
	ErrEmptySteps = errors.New("pipeline has no steps")
)

// Ошибки резолвинга reference-выражений (resolution errors).
// Возникают в event loop при инстанцировании шага и приводят к FAILED
// только этого шага и SKIPPED его потомков.
var (
	// ErrUnresolvedReference — выражение ссылается на неизвестный шаг.
	ErrUnresolvedReference = errors.New("reference to unknown step")

	// ErrReferenceNotReady — шаг из выражения ещё не COMPLETED.
	// При корректном планировании не должно возникать никогда:
	// это внутренняя проверка инварианта, а не пользовательский retry.
	ErrReferenceNotReady = errors.New("referenced step is not completed")

	// ErrMissingField — поле отсутствует в outputs завершённого шага.
	ErrMissingField = errors.New("field missing in step outputs")

	// ErrTemplateNotFound — шаблон не найден в реестре.
	ErrTemplateNotFound = errors.New("template not found")
)

// DefinitionError — ошибка определения pipeline с контекстом.
type DefinitionError struct {
	Step    string // имя шага, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *DefinitionError) Error() string {
	if e.Step != "" {
		return "step " + e.Step + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *DefinitionError) Unwrap() error {
	return e.Err
}

// NewDefinitionError создаёт новую ошибку определения.
func NewDefinitionError(step, field, message string, err error) *DefinitionError {
	return &DefinitionError{
		Step:    step,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

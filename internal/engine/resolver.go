package engine

import (
	"fmt"
	"regexp"
	"strings"
)

// refPattern — синтаксис reference-выражения: ${<step-name>.<field>}.
// Выражение может быть вложено в произвольный литерал, например
// "[${T1.id}, ${T2.id}]" — окружающий текст сохраняется при подстановке.
var refPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_\- ]+)\.([A-Za-z0-9_\-]+)\}`)

// FieldInstanceID — специальное поле, резолвящееся в идентификатор instance.
const FieldInstanceID = "id"

// StepResult — терминальный результат одного шага для резолвинга ссылок.
type StepResult struct {
	// InstanceID — идентификатор instance (поле "id").
	InstanceID string

	// Outputs — плоский набор выходных значений, опубликованный фабрикой.
	Outputs map[string]string
}

// ResultSet — живой набор результатов шагов pipeline.
//
// Шаг регистрируется при AddStep и становится резолвимым только после
// Complete. Резолвер различает "шаг неизвестен" (ошибка определения)
// и "шаг ещё не завершён" (нарушение инварианта планирования).
type ResultSet struct {
	known   map[string]bool
	results map[string]*StepResult
}

// NewResultSet создаёт пустой ResultSet.
func NewResultSet() *ResultSet {
	return &ResultSet{
		known:   make(map[string]bool),
		results: make(map[string]*StepResult),
	}
}

// Register объявляет имя шага известным (но ещё не завершённым).
func (rs *ResultSet) Register(step string) {
	rs.known[step] = true
}

// Complete фиксирует терминальный результат шага.
func (rs *ResultSet) Complete(step, instanceID string, outputs map[string]string) {
	rs.known[step] = true
	if outputs == nil {
		outputs = make(map[string]string)
	}
	rs.results[step] = &StepResult{
		InstanceID: instanceID,
		Outputs:    outputs,
	}
}

// Result возвращает результат шага, если он завершён.
func (rs *ResultSet) Result(step string) (*StepResult, bool) {
	r, ok := rs.results[step]
	return r, ok
}

// HasReference возвращает true, если значение содержит reference-выражение.
func HasReference(value string) bool {
	return strings.Contains(value, "${") && refPattern.MatchString(value)
}

// Resolve подставляет все reference-выражения в значении.
//
// Литералы проходят без изменений. Каждое выражение резолвится независимо,
// окружающий текст сохраняется (string-template подстановка, а не замена
// значения целиком).
//
// Ошибки:
//   - ErrUnresolvedReference — имя шага не зарегистрировано
//   - ErrReferenceNotReady — шаг не завершён (нарушение инварианта)
//   - ErrMissingField — поля нет в outputs шага
func (rs *ResultSet) Resolve(value string) (string, error) {
	if !strings.Contains(value, "${") {
		return value, nil
	}

	matches := refPattern.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return value, nil
	}

	var sb strings.Builder
	last := 0

	for _, m := range matches {
		// m: [начало выражения, конец, начало имени, конец, начало поля, конец]
		step := value[m[2]:m[3]]
		field := value[m[4]:m[5]]

		resolved, err := rs.resolveField(step, field)
		if err != nil {
			return "", err
		}

		sb.WriteString(value[last:m[0]])
		sb.WriteString(resolved)
		last = m[1]
	}
	sb.WriteString(value[last:])

	return sb.String(), nil
}

// resolveField резолвит одно поле одного шага.
func (rs *ResultSet) resolveField(step, field string) (string, error) {
	if !rs.known[step] {
		return "", fmt.Errorf("%w: %s", ErrUnresolvedReference, step)
	}

	result, done := rs.results[step]
	if !done {
		return "", fmt.Errorf("%w: %s", ErrReferenceNotReady, step)
	}

	if field == FieldInstanceID {
		return result.InstanceID, nil
	}

	out, ok := result.Outputs[field]
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", ErrMissingField, step, field)
	}
	return out, nil
}

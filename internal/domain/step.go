package domain

import "strings"

// DefaultSection — секция конфигурации, в которую попадают overrides без явной секции.
const DefaultSection = "General"

// Override — один параметр override шага.
//
// Key задаёт путь "секция/ключ"; ключ без секции относится к DefaultSection.
// Value — литерал либо строка с reference-выражениями вида ${step.field},
// которые резолвятся лениво по результатам завершённых родителей.
//
// Overrides хранятся срезом, а не map: порядок объявления значим —
// при коллизии путей побеждает более поздний override.
type Override struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Path разбирает Key на секцию и ключ.
func (o Override) Path() (section, key string) {
	if idx := strings.Index(o.Key, "/"); idx >= 0 {
		return o.Key[:idx], o.Key[idx+1:]
	}
	return DefaultSection, o.Key
}

// Step — узел DAG pipeline.
//
// Step создаётся вызовом Controller.AddStep и мутируется только event loop'ом
// контроллера. Родители адресуются по имени, а не по ссылке на объект —
// граф остаётся тривиально сериализуемым и проверяемым на циклы.
type Step struct {
	// Name — имя шага, уникальное в рамках pipeline.
	// Используется в reference-выражениях: ${name.field}.
	Name string `json:"name"`

	// Template — адрес базового шаблона в реестре.
	Template TemplateRef `json:"template"`

	// Overrides — параметры, применяемые поверх шаблона в порядке объявления.
	Overrides []Override `json:"overrides,omitempty"`

	// Parents — имена шагов, от которых зависит этот шаг.
	Parents []string `json:"parents,omitempty"`

	// Queue — очередь выполнения. Пустая строка — очередь по умолчанию pipeline.
	Queue string `json:"queue,omitempty"`

	// Status — текущий статус шага.
	Status StepStatus `json:"status"`

	// Error — текст ошибки, если шаг FAILED.
	Error string `json:"error,omitempty"`
}

// MarkReady переводит шаг в статус READY.
func (s *Step) MarkReady() {
	s.Status = StepStatusReady
}

// MarkDispatched переводит шаг в статус DISPATCHED.
func (s *Step) MarkDispatched() {
	s.Status = StepStatusDispatched
}

// MarkRunning переводит шаг в статус RUNNING.
func (s *Step) MarkRunning() {
	s.Status = StepStatusRunning
}

// MarkCompleted переводит шаг в статус COMPLETED.
func (s *Step) MarkCompleted() {
	s.Status = StepStatusCompleted
}

// MarkFailed переводит шаг в статус FAILED с текстом ошибки.
func (s *Step) MarkFailed(err string) {
	s.Status = StepStatusFailed
	s.Error = err
}

// MarkSkipped переводит шаг в статус SKIPPED.
// Разрешено только из нестартовавших состояний (PENDING/READY).
func (s *Step) MarkSkipped() {
	s.Status = StepStatusSkipped
}

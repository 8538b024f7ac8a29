package domain

import "time"

// Configuration — конфигурация шага: именованные секции пар ключ/значение.
//
// Например, секция "General" с ключами "epochs", "dataset_url".
type Configuration map[string]map[string]string

// Clone возвращает глубокую копию конфигурации.
// Instances никогда не разделяют изменяемое состояние с шаблоном или друг с другом.
func (c Configuration) Clone() Configuration {
	if c == nil {
		return make(Configuration)
	}

	out := make(Configuration, len(c))
	for section, values := range c {
		copied := make(map[string]string, len(values))
		for k, v := range values {
			copied[k] = v
		}
		out[section] = copied
	}
	return out
}

// Get возвращает значение по пути "секция/ключ".
// Второе возвращаемое значение — false, если путь отсутствует.
func (c Configuration) Get(section, key string) (string, bool) {
	values, ok := c[section]
	if !ok {
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

// Set записывает значение по пути "секция/ключ", создавая секцию при необходимости.
func (c Configuration) Set(section, key, value string) {
	values, ok := c[section]
	if !ok {
		values = make(map[string]string)
		c[section] = values
	}
	values[key] = value
}

// TemplateRef — адрес шаблона в реестре: проект + имя.
type TemplateRef struct {
	// Project — проект, в котором опубликован шаблон.
	Project string `json:"project"`

	// Name — имя шаблона внутри проекта.
	Name string `json:"name"`
}

// String возвращает представление вида "project/name".
func (r TemplateRef) String() string {
	return r.Project + "/" + r.Name
}

// Template — именованный неизменяемый шаблон шага.
//
// Template хранится в реестре и никогда не мутируется после публикации.
// Шаг клонирует его базовую конфигурацию и применяет свои overrides.
type Template struct {
	// Project — проект, которому принадлежит шаблон.
	Project string `json:"project"`

	// Name — имя шаблона (уникально в рамках проекта).
	Name string `json:"name"`

	// Config — базовая конфигурация (значения по умолчанию).
	Config Configuration `json:"config"`

	// CreatedAt — время публикации шаблона.
	CreatedAt time.Time `json:"created_at"`
}

// Ref возвращает адрес шаблона.
func (t *Template) Ref() TemplateRef {
	return TemplateRef{Project: t.Project, Name: t.Name}
}

// Snapshot возвращает копию шаблона с клонированной конфигурацией.
// Используется реестром, чтобы вызывающий код не мог изменить оригинал.
func (t *Template) Snapshot() *Template {
	return &Template{
		Project:   t.Project,
		Name:      t.Name,
		Config:    t.Config.Clone(),
		CreatedAt: t.CreatedAt,
	}
}

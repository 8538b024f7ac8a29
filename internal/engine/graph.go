package engine

import (
	"fmt"

	"github.com/shaiso/Conveyor/internal/domain"
)

// Node — узел графа зависимостей.
type Node struct {
	// Name — имя шага.
	Name string

	// Parents — имена шагов, от которых зависит узел.
	Parents []string

	// Children — имена шагов, зависящих от этого узла.
	Children []string
}

// Graph — граф зависимостей шагов pipeline.
//
// Узлы добавляются по одному через AddNode; родители обязаны существовать
// к моменту добавления. Проверка на циклы выполняется инкрементально при
// каждом AddNode, поэтому ошибки авторинга всплывают сразу, а не при запуске.
type Graph struct {
	nodes map[string]*Node

	// order — имена узлов в порядке добавления.
	// Даёт стабильный порядок обхода (map в Go его не гарантирует).
	order []string
}

// NewGraph создаёт пустой граф.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
	}
}

// AddNode добавляет узел с рёбрами от родителей.
//
// Ошибки (граф при этом остаётся неизменным):
//   - ErrEmptyStepName — пустое имя
//   - ErrDuplicateStep — имя уже зарегистрировано
//   - ErrUnknownParent — родитель не зарегистрирован
//   - ErrCyclicDependency — добавление создало бы цикл
func (g *Graph) AddNode(name string, parents []string) error {
	if name == "" {
		return NewDefinitionError("", "name", "step has empty name", ErrEmptyStepName)
	}

	if _, exists := g.nodes[name]; exists {
		return NewDefinitionError(name, "name",
			fmt.Sprintf("duplicate step name: %s", name), ErrDuplicateStep)
	}

	for _, parent := range parents {
		if _, exists := g.nodes[parent]; !exists && parent != name {
			return NewDefinitionError(name, "parents",
				fmt.Sprintf("depends on unknown step: %s", parent), ErrUnknownParent)
		}
	}

	if g.wouldCycle(name, parents) {
		return NewDefinitionError(name, "parents",
			fmt.Sprintf("adding step %s would create a cycle", name), ErrCyclicDependency)
	}

	node := &Node{
		Name:    name,
		Parents: append([]string(nil), parents...),
	}
	g.nodes[name] = node
	g.order = append(g.order, name)

	for _, parent := range parents {
		p := g.nodes[parent]
		p.Children = append(p.Children, name)
	}

	return nil
}

// wouldCycle проверяет DFS'ом, достижим ли name из любого из parents.
// Ребро parent→name замкнёт цикл ровно тогда, когда name лежит на пути к parent.
func (g *Graph) wouldCycle(name string, parents []string) bool {
	visited := make(map[string]bool, len(g.nodes))

	var reaches func(from string) bool
	reaches = func(from string) bool {
		if from == name {
			return true
		}
		if visited[from] {
			return false
		}
		visited[from] = true

		node, exists := g.nodes[from]
		if !exists {
			return false
		}
		for _, parent := range node.Parents {
			if reaches(parent) {
				return true
			}
		}
		return false
	}

	for _, parent := range parents {
		if reaches(parent) {
			return true
		}
	}
	return false
}

// Node возвращает узел по имени.
func (g *Graph) Node(name string) *Node {
	return g.nodes[name]
}

// Names возвращает имена узлов в порядке добавления.
func (g *Graph) Names() []string {
	return append([]string(nil), g.order...)
}

// Size возвращает количество узлов.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// Ready возвращает в порядке добавления все PENDING шаги,
// у которых каждый родитель COMPLETED.
// Шаг без родителей готов сразу.
func (g *Graph) Ready(statuses map[string]domain.StepStatus) []string {
	ready := make([]string, 0)

	for _, name := range g.order {
		if statuses[name] != domain.StepStatusPending {
			continue
		}

		allDone := true
		for _, parent := range g.nodes[name].Parents {
			if statuses[parent] != domain.StepStatusCompleted {
				allDone = false
				break
			}
		}

		if allDone {
			ready = append(ready, name)
		}
	}

	return ready
}

// Descendants возвращает все транзитивно зависящие от name шаги.
// Используется для каскадного SKIPPED при падении родителя.
func (g *Graph) Descendants(name string) []string {
	node, exists := g.nodes[name]
	if !exists {
		return nil
	}

	seen := make(map[string]bool)
	queue := append([]string(nil), node.Children...)
	result := make([]string, 0)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if seen[current] {
			continue
		}
		seen[current] = true
		result = append(result, current)

		queue = append(queue, g.nodes[current].Children...)
	}

	return result
}

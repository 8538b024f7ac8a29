package domain

import (
	"strconv"
	"strings"
)

// BumpVersion возвращает следующую версию по детерминированному правилу:
// версия разбивается по точкам, последний числовой компонент инкрементируется.
// Если последний компонент нечисловой, он не меняется — добавляется новый
// минорный сегмент ".1".
//
//	"3"        → "4"
//	"1.2"      → "1.3"
//	"2.0.11"   → "2.0.12"
//	"1.0beta"  → "1.0beta.1"
//	""         → "1"
func BumpVersion(version string) string {
	if version == "" {
		return "1"
	}

	parts := strings.Split(version, ".")
	last := parts[len(parts)-1]

	n, err := strconv.Atoi(last)
	if err != nil {
		return version + ".1"
	}

	parts[len(parts)-1] = strconv.Itoa(n + 1)
	return strings.Join(parts, ".")
}

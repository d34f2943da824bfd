// Package emitter concatenates linked modules into one bundle.
package emitter

import (
	"strings"

	"github.com/Sumatoshi-tech/jsbundle/pkg/linker"
)

// Emit joins every unit's statements with "\n", units in order, each
// unit's namespace objects after its statements. Blank statements are
// dropped. Nothing else is added to the output.
func Emit(units []linker.Unit) string {
	var sb strings.Builder

	write := func(text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}

		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}

		sb.WriteString(text)
	}

	for _, u := range units {
		for _, st := range u.Statements {
			write(st)
		}

		for _, ns := range u.Namespaces {
			write(ns)
		}
	}

	return sb.String()
}

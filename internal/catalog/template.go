package catalog

import "strings"

// Expand substitutes {name} placeholders from vars. Unknown placeholders are
// left untouched.
func Expand(template string, vars map[string]string) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(template, '{')
		if open < 0 {
			b.WriteString(template)
			return b.String()
		}
		closing := strings.IndexByte(template[open:], '}')
		if closing < 0 {
			b.WriteString(template)
			return b.String()
		}
		closing += open
		b.WriteString(template[:open])
		if value, ok := vars[template[open+1:closing]]; ok {
			b.WriteString(value)
		} else {
			b.WriteString(template[open : closing+1])
		}
		template = template[closing+1:]
	}
}

package procexec

import "strings"

// ParseCommandLine splits a command line into arguments. Double quotes group
// words, \" yields a literal quote and \\ a literal backslash; other
// backslashes are kept. Unquoted whitespace separates arguments and empty
// arguments are dropped.
func ParseCommandLine(line string) []string {
	var (
		args     []string
		current  strings.Builder
		inQuotes bool
	)
	flush := func() {
		if current.Len() > 0 {
			args = append(args, current.String())
			current.Reset()
		}
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line) && (line[i+1] == '"' || line[i+1] == '\\'):
			current.WriteByte(line[i+1])
			i++
		case c == '"':
			inQuotes = !inQuotes
		case !inQuotes && (c == ' ' || c == '\t' || c == '\n' || c == '\r'):
			flush()
		default:
			current.WriteByte(c)
		}
	}
	flush()
	return args
}

// Quote wraps value in double quotes, escaping backslashes and quotes so
// ParseCommandLine returns it unchanged.
func Quote(value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	return `"` + escaped + `"`
}

package persist

import "strings"

// Property strings are sequences of "ident:value;" items.

func CreateProperty(ident, value string) string {
	return ident + ":" + value + ";"
}

// ExtractValue returns the value of the first item named ident, or "".
func ExtractValue(props, ident string) string {
	i := strings.Index(props, ident+":")
	if i < 0 {
		return ""
	}
	rest := props[i+len(ident)+1:]
	if end := strings.IndexByte(rest, ';'); end >= 0 {
		return rest[:end]
	}
	return rest
}

// toLines renders a property string one item per line.
func toLines(props string) string {
	var b strings.Builder
	for _, item := range strings.Split(props, ";") {
		if item == "" {
			continue
		}
		b.WriteString(item)
		b.WriteByte('\n')
	}
	return b.String()
}

// fromLines is the inverse of toLines.
func fromLines(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte(';')
	}
	return b.String()
}

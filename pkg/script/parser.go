package script

import "strings"

// CommandScript is a resolved command script split into structural
// references and literal solver commands.
type CommandScript struct {
	// Body holds every line that is not a model or data directive,
	// verbatim and in order.
	Body []string

	// ModelPaths lists model files in encounter order.
	ModelPaths []string

	// DataPaths lists data files in encounter order. Order matters: later
	// data files may override parameters set by earlier ones.
	DataPaths []string
}

// Commands returns the body as a single string.
func (c *CommandScript) Commands() string {
	return strings.Join(c.Body, "")
}

// Parse scans resolved command-script lines once, without recursion.
//
// model and data arguments are resolved relative to the directory of
// basePath (the command script itself). All other lines, including
// comments and lines that merely start with a directive word inside a
// comment, are kept in Body.
func Parse(basePath string, lines []string) (*CommandScript, error) {
	cs := &CommandScript{
		Body: make([]string, 0, len(lines)),
	}
	for i, line := range lines {
		keyword, rest, ok := splitDirective(line)
		if !ok || (keyword != KeywordModel && keyword != KeywordData) {
			cs.Body = append(cs.Body, line)
			continue
		}

		arg := cleanArgument(rest)
		if arg == "" {
			return nil, &DirectiveError{
				Path:    basePath,
				Line:    i + 1,
				Keyword: keyword,
				Text:    strings.TrimRight(line, "\r\n"),
			}
		}

		full := joinRelative(basePath, arg)
		if keyword == KeywordModel {
			cs.ModelPaths = append(cs.ModelPaths, full)
		} else {
			cs.DataPaths = append(cs.DataPaths, full)
		}
	}
	return cs, nil
}

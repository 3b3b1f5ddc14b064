package shell

import (
	"strings"

	"github.com/kballard/go-shellquote"
)

// ShellCompleter provides context-aware autocomplete for shell commands
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

// CommandMetadata holds autocomplete information for a command
type CommandMetadata struct {
	Options []string
	Args    []string
}

var commandMetadata = map[string]CommandMetadata{
	"autoplay": {Options: []string{"-moves"}},
	"book":     {Args: []string{"load", "lookup"}},
	"set":      {Args: optionNames},
	"help": {
		Args: []string{"play", "solve", "analyze", "autoplay", "book", "set", "script"},
	},
}

var commandNames = []string{
	"help", "new", "play", "undo", "show", "solve", "best", "analyze",
	"autoplay", "stop", "book", "set", "script", "exit",
}

var onOffValues = []string{"on", "off"}

// Do implements the readline.AutoComplete interface
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])

	fields, err := shellquote.Split(text)
	if err != nil {
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string

	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		cmdName := fields[0]
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}
		// the argument being completed, counting from 1
		argPos := len(fields) - 1
		if endsWithSpace {
			argPos++
		}
		switch {
		case cmdName == "set" && argPos == 2:
			if fields[1] == "ttable" || fields[1] == "book" {
				completions = onOffValues
			}
		case argPos == 1:
			if metadata, exists := commandMetadata[cmdName]; exists {
				if strings.HasPrefix(prefix, "-") || len(metadata.Args) == 0 {
					completions = metadata.Options
				} else {
					completions = metadata.Args
				}
			}
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}
	return matches, len(prefix)
}

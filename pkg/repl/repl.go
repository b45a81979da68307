// Package repl implements qsh, the interactive conversion shell.
package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	qerrors "github.com/sambeau/quantities/pkg/errors"
)

const PROMPT = "q> "

// HistoryFile is where the shell keeps its command history.
var HistoryFile = filepath.Join(os.TempDir(), ".qsh_history")

// Start runs the shell with line editing, history, and tab completion
// until exit or Ctrl+D.
func Start(out io.Writer, version string, session *Session) {
	line := liner.NewLiner()
	defer line.Close()

	// Enable Ctrl+C to abort current line
	line.SetCtrlCAborts(true)

	words := session.completions()
	line.SetCompleter(func(input string) []string {
		return filterCompletions(input, words)
	})

	if f, err := os.Open(HistoryFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(HistoryFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintln(out, "qsh", version)
	fmt.Fprintln(out, "Type 'help' for commands, 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "")

	for {
		input, err := line.Prompt(PROMPT)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(out, "^C")
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		quit, err := session.Eval(out, input)
		if err != nil {
			printError(out, err)
		}
		if quit {
			fmt.Fprintln(out, "Goodbye!")
			return
		}
	}
}

func printError(out io.Writer, err error) {
	var qe *qerrors.QuantityError
	if errors.As(err, &qe) {
		fmt.Fprintln(out, qe.PrettyString())
		return
	}
	fmt.Fprintf(out, "Error: %v\n", err)
}

// filterCompletions completes the last word of input.
func filterCompletions(input string, words []string) []string {
	i := strings.LastIndexAny(input, " \t")
	prefix, word := input[:i+1], input[i+1:]
	if word == "" {
		return nil
	}

	var out []string
	lower := strings.ToLower(word)
	for _, w := range words {
		if strings.HasPrefix(strings.ToLower(w), lower) {
			out = append(out, prefix+w)
		}
	}
	return out
}

// Package console runs the interpreter on a local terminal, as an
// alternative to the websocket server. Line editing and history come from
// the liner package.
package console

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/danswartzendruber/liner"

	"github.com/antibyte/basicterm/pkg/basic"
)

// termIO writes interpreter output straight to stdout.
type termIO struct {
	prompt string
}

func (t *termIO) Write(text string) {
	fmt.Print(text)
}

func (t *termIO) Clear() {
	// ANSI clear plus cursor home.
	fmt.Print("\x1b[2J\x1b[H")
}

func (t *termIO) SetPrompt(text string) {
	t.prompt = text
}

// Run drives a read-eval loop until EOF (Ctrl-D). The store may be nil;
// LOAD and SAVE then report that no storage is available.
func Run(store basic.SourceStore) error {
	l := liner.NewLiner()
	defer l.Close()
	l.SetMultiLineMode(true)

	term := &termIO{prompt: "> "}
	interp := basic.New(term, store)

	// Ctrl-C during a run stops the program, not the process.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	go func() {
		for range interrupts {
			interp.Interrupt()
		}
	}()

	fmt.Println("Ready!")
	for {
		prompt := "> "
		if interp.State() == basic.StateAwaitingInput {
			prompt = term.prompt
		}

		text, err := l.Prompt(prompt)
		if err == io.EOF {
			fmt.Println()
			return nil
		}
		if err == liner.ErrPromptAborted {
			if interp.State() == basic.StateAwaitingInput {
				interp.Abort()
				fmt.Println("INTERRUPTED")
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		if interp.State() == basic.StateAwaitingInput {
			if err := interp.ProvideInput(text); err != nil {
				// Invalid input keeps the suspension; the next loop pass
				// re-prompts for the same variable.
				fmt.Println(err)
			}
			continue
		}

		if strings.TrimSpace(text) == "" {
			continue
		}
		l.AppendHistory(text)

		if err := interp.Execute(text); err != nil {
			fmt.Println(err)
		}
	}
}

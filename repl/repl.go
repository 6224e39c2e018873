// Package repl provides a line-at-a-time parse/compile/step loop: each
// line is compiled as its own program and run to its first suspension
// point, printing the task's resulting status.
package repl

import (
	"bufio"
	"fmt"
	"io"

	"spek/internal/compiler"
	"spek/internal/engine"
)

const PROMPT = ">> "

func Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	u := engine.NewUniverse()

	for {
		fmt.Fprint(out, PROMPT)
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		entry, err := compiler.Compile(u, "<repl>", line)
		if err != nil {
			fmt.Fprintf(out, "error: %s\n", err)
			continue
		}

		m := engine.NewMachineState()
		task, err := m.AddTask(func(id int) engine.Task {
			return engine.NewStackState(id, entry, nil)
		})
		if err != nil {
			fmt.Fprintf(out, "error: %s\n", err)
			continue
		}
		st := task.(*engine.StackState)
		if err := st.Run(u, m); err != nil {
			fmt.Fprintf(out, "error: %s\n", err)
			continue
		}
		fmt.Fprintf(out, "status: %v\n", st.GetStatus())
	}
}

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"spek/internal/compiler"
	"spek/internal/engine"
	"spek/internal/engine/explorer"
)

func main() {
	verbose := flag.Bool("v", false, "print exploration progress")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Usage: spek-cli [-v] <file.spek>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read %s: %s", path, err)
		os.Exit(1)
	}

	u := engine.NewUniverse()
	entry, err := compiler.Compile(u, path, string(source))
	if err != nil {
		color.Red("compile error: %s", err)
		os.Exit(1)
	}

	m := engine.NewMachineState()
	if _, err := m.AddTask(func(id int) engine.Task {
		return engine.NewStackState(id, entry, nil)
	}); err != nil {
		color.Red("failed to seed task: %s", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "exploring %s...\n", path)
	}

	lts, err := explorer.BuildLTS(u, m, engine.ScheduleAll)
	if err != nil {
		color.Red("exploration failed: %s", err)
		os.Exit(1)
	}
	lts.RunID = uuid.NewString()

	transitions := 0
	for _, s := range lts.States {
		transitions += len(s.Transitions)
	}

	color.Green("✅ explored %s", path)
	fmt.Printf("run:         %s\n", lts.RunID)
	fmt.Printf("states:      %d\n", len(lts.States))
	fmt.Printf("transitions: %d\n", transitions)
}

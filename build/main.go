package main

import (
	"os"
	"os/exec"

	"github.com/goyek/goyek/v2"
)

func run(a *goyek.A, name string, args ...string) {
	a.Helper()
	cmd := exec.CommandContext(a.Context(), name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		a.Error(err)
	}
}

var vet = goyek.Define(goyek.Task{
	Name:  "vet",
	Usage: "Run go vet on all packages",
	Action: func(a *goyek.A) {
		run(a, "go", "vet", "./...")
	},
})

var test = goyek.Define(goyek.Task{
	Name:  "test",
	Usage: "Run unit tests (integration tests skipped)",
	Deps:  goyek.Deps{vet},
	Action: func(a *goyek.A) {
		run(a, "go", "test", "-short", "./...")
	},
})

var readme = goyek.Define(goyek.Task{
	Name:  "readme",
	Usage: "Regenerate the notebook index README",
	Action: func(a *goyek.A) {
		run(a, "go", "run", "./cmd/nbsmoke", "readme")
	},
})

var smoke = goyek.Define(goyek.Task{
	Name:  "smoke",
	Usage: "Execute every notebook with papermill",
	Action: func(a *goyek.A) {
		run(a, "go", "run", "./cmd/nbsmoke", "test")
	},
})

func main() {
	goyek.SetDefault(test)
	goyek.Main(os.Args[1:])
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/inject"
)

func main() {
	c := inject.MustNew(inject.WithModules(Module))
	app, err := inject.Get[*App](context.Background(), c)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(app.Greeter.Greet(strings.Join(os.Args[1:], " ")) + app.Suffix)
	fmt.Println(NewApp(echoGreeter{}, "?").Greeter.Greet("direct"))
}

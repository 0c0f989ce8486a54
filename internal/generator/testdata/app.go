package main

import (
	"context"
	"strings"

	"github.com/alecthomas/inject"
)

type Config struct {
	Greeting string
}

//inject:provider singleton
func NewConfig() *Config {
	return &Config{Greeting: "Hello"}
}

type Greeter interface {
	Greet(name string) string
}

type echoGreeter struct{}

func (echoGreeter) Greet(name string) string { return name }

//inject:provider weak
func NewEchoGreeter() Greeter {
	return echoGreeter{}
}

type configGreeter struct {
	config *Config
}

func (g *configGreeter) Greet(name string) string {
	return g.config.Greeting + ", " + name
}

//inject:provider
func NewGreeter(ctx context.Context, config *Config) (Greeter, error) {
	return &configGreeter{config: config}, ctx.Err()
}

//inject:provider name=suffix
func NewSuffix(c *inject.Container) string {
	return strings.Repeat("!", c.Len()-2)
}

//inject:injectable constructor
type App struct {
	Greeter Greeter
	Suffix  string `inject:"suffix"`
	Skipped int    `inject:"-"`
}

// Package buildtesting provides a pool of Go build environments for use in tests.
//
// Each environment is a throwaway module named "test" inside a Go workspace
// that also contains this repository, so test code can import
// github.com/alecthomas/inject without a published version.
package buildtesting

import (
	"context"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/errors"
	"golang.org/x/mod/modfile"
)

const modulePath = "github.com/alecthomas/inject"

type Env struct {
	dir string
}

func newEnv(repoDir, dir string) Env {
	err := os.MkdirAll(dir, 0750)
	if err != nil {
		log.Fatalln(err)
	}
	poolExecIn(dir, "go", "mod", "init", "test")
	poolExecIn(dir, "go", "work", "init", dir, repoDir)
	return Env{dir: dir}
}

type Pool struct {
	repoDir   string
	available chan Env
}

// Run should be called from TestMain.
//
//	func TestMain(m *testing.M) { buildtesting.Run(m) }
//
// Then use Prepare() to retrieve an environment.
func Run(m *testing.M) {
	repoDir, err := findRepoRoot()
	if err != nil {
		log.Fatalln(err)
	}

	dir, err := os.MkdirTemp("", "inject-buildtesting-")
	if err != nil {
		log.Fatal(err)
	}
	count := runtime.NumCPU() * 2
	pool = &Pool{
		repoDir:   repoDir,
		available: make(chan Env, count),
	}
	// Fill the pool with new environments.
	for i := range count {
		pool.available <- newEnv(repoDir, filepath.Join(dir, strconv.Itoa(i)))
	}
	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

var pool *Pool

// Prepare a new test environment containing main.go, returning the path.
func Prepare(t *testing.T, main string) string {
	t.Helper()
	return pool.Prepare(t, main)
}

// Prepare a new test environment, returning the path.
//
// When the test completes the environment will be returned to the pool.
func (p *Pool) Prepare(t *testing.T, main string) string {
	t.Helper()
	env := <-p.available
	t.Cleanup(func() { p.returnEnv(t, env) })
	err := os.WriteFile(filepath.Join(env.dir, "main.go"), []byte(main), 0600)
	assert.NoError(t, err)
	return env.dir
}

// returnEnv returns a test environment to the pool, removing any Go source
// files a test created.
func (p *Pool) returnEnv(t *testing.T, env Env) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(env.dir, "*.go"))
	assert.NoError(t, err)
	for _, match := range matches {
		assert.NoError(t, os.Remove(match))
	}
	p.available <- env
}

// Exec runs a command inside a prepared environment, failing the test on error.
func Exec(t *testing.T, dir string, cmd ...string) string {
	t.Helper()
	c := exec.CommandContext(t.Context(), cmd[0], cmd[1:]...)
	c.Dir = dir
	out, err := c.CombinedOutput()
	assert.NoError(t, err, "%s", out)
	return string(out)
}

// findRepoRoot searches upwards from the working directory for this
// repository's go.mod.
func findRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", errors.WithStack(err)
	}
	for {
		data, err := os.ReadFile(filepath.Join(dir, "go.mod")) //nolint
		if err == nil && modfile.ModulePath(data) == modulePath {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.Errorf("could not find the %s module above the working directory", modulePath)
		}
		dir = parent
	}
}

func poolExecIn(dir string, cmd ...string) {
	c := exec.CommandContext(context.Background(), cmd[0], cmd[1:]...)
	b := &strings.Builder{}
	c.Stdout = b
	c.Stderr = b
	c.Dir = dir
	err := c.Run()
	if err != nil {
		log.Fatalln(err, b.String())
	}
}

// Package goldentest runs golden data tests: tests that produce a text
// output which is compared against checked-in expected results. A test
// fails if its output doesn't match the golden file's contents, or if the
// golden file doesn't exist. On failure the actual output is written next
// to the expected file with an ".actual" suffix, so results can be diffed
// and, when acceptable, copied over the golden data.
package goldentest

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Config is shared by the tests of one suite.
type Config struct {
	// RelativePath points at the golden data files, relative to the
	// package directory. Keep golden data in a separate subfolder from
	// source files, e.g. "testdata".
	RelativePath string
}

// Context accumulates one test's output and verifies it on test cleanup.
type Context struct {
	t    *testing.T
	cfg  Config
	name string
	out  bytes.Buffer
}

// NewContext returns a context whose output is verified against
// <RelativePath>/<test name>.golden when the test finishes.
func NewContext(t *testing.T, cfg Config) *Context {
	c := &Context{
		t:    t,
		cfg:  cfg,
		name: strings.ReplaceAll(t.Name(), "/", "_"),
	}
	t.Cleanup(c.verify)
	return c
}

// Out is the stream the test writes its output to.
func (c *Context) Out() io.Writer {
	return &c.out
}

func (c *Context) verify() {
	if c.t.Failed() {
		return
	}
	goldenPath := filepath.Join(c.cfg.RelativePath, c.name+".golden")
	expected, err := os.ReadFile(goldenPath)
	if err != nil {
		c.storeActual()
		c.t.Errorf("cannot read golden file %s: %v", goldenPath, err)
		return
	}
	if !bytes.Equal(expected, c.out.Bytes()) {
		actualPath := c.storeActual()
		c.t.Errorf("output does not match golden file %s, actual output stored in %s", goldenPath, actualPath)
	}
}

func (c *Context) storeActual() string {
	path := filepath.Join(c.cfg.RelativePath, c.name+".actual")
	if err := os.WriteFile(path, c.out.Bytes(), 0o644); err != nil {
		c.t.Logf("cannot store actual output %s: %v", path, err)
	}
	return path
}

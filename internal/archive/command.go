package archive

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"

	"github.com/pkg/errors"
)

// DefaultCommand is the zip program used when none is configured.
const DefaultCommand = "zip"

// Command stages entries in a temporary directory and packs them with an
// external zip program when the archive is finished.
type Command struct {
	// Program is the zip executable, looked up in PATH.
	Program string
	// TempDir is the parent of the staging directory; empty means os.TempDir.
	TempDir string

	out     io.Writer
	staging string
	runs    []commandRun
}

// commandRun is a sequence of entries sharing one compression setting, packed
// with a single invocation.
type commandRun struct {
	compress bool
	names    []string
}

// NewCommand returns a backend running program, or DefaultCommand when
// program is empty.
func NewCommand(program string) *Command {
	if program == "" {
		program = DefaultCommand
	}
	return &Command{Program: program}
}

// Probe checks that the program can be executed.
func (c *Command) Probe() error {
	out, err := exec.Command(c.Program, "-v").CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "running %s -v: %s", c.Program, bytes.TrimSpace(firstLine(out)))
	}
	return nil
}

func (c *Command) Begin(w io.Writer) error {
	if c.staging != "" {
		return ErrAlreadyStarted
	}
	dir, err := os.MkdirTemp(c.TempDir, "epubbuilder-")
	if err != nil {
		return errors.Wrap(err, "creating staging directory")
	}
	if err := os.Mkdir(filepath.Join(dir, "root"), 0o755); err != nil {
		os.RemoveAll(dir)
		return errors.Wrap(err, "creating staging directory")
	}
	c.out = w
	c.staging = dir
	c.runs = nil
	return nil
}

func (c *Command) WriteEntry(name string, data []byte, compress bool) error {
	if c.staging == "" {
		return ErrNotStarted
	}
	if err := checkName(name); err != nil {
		return err
	}

	dest := filepath.Join(c.root(), filepath.FromSlash(path.Clean(name)))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrapf(err, "staging %s", name)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return errors.Wrapf(err, "staging %s", name)
	}

	if n := len(c.runs); n > 0 && c.runs[n-1].compress == compress {
		c.runs[n-1].names = append(c.runs[n-1].names, name)
	} else {
		c.runs = append(c.runs, commandRun{compress: compress, names: []string{name}})
	}
	return nil
}

// Finish runs the zip program once per run, in order, and copies the result
// to the writer given to Begin. The staging directory is always removed.
func (c *Command) Finish() error {
	if c.staging == "" {
		return ErrNotStarted
	}
	defer c.cleanup()

	archive := filepath.Join(c.staging, "book.zip")
	for _, run := range c.runs {
		level := "-0"
		if run.compress {
			level = "-9"
		}
		args := append([]string{"-X", level, "-q", archive}, run.names...)
		cmd := exec.Command(c.Program, args...)
		cmd.Dir = c.root()
		if out, err := cmd.CombinedOutput(); err != nil {
			return errors.Wrapf(err, "running %s: %s", c.Program, bytes.TrimSpace(out))
		}
	}

	f, err := os.Open(archive)
	if err != nil {
		return errors.Wrap(err, "opening packed archive")
	}
	defer f.Close()
	if _, err := io.Copy(c.out, f); err != nil {
		return errors.Wrap(err, "copying packed archive")
	}
	return nil
}

func (c *Command) root() string {
	return filepath.Join(c.staging, "root")
}

func (c *Command) cleanup() {
	os.RemoveAll(c.staging)
	c.staging = ""
	c.out = nil
	c.runs = nil
}

func firstLine(b []byte) []byte {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i]
	}
	return b
}

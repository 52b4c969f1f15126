package model

import (
	"strings"
	"time"
)

// Command is an external program invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string // appended to the parent environment
	// Check makes a non-zero exit an error instead of a result.
	Check bool
}

// String renders the command line for logs and check output.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// CommandResult captures a finished process.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// OK reports a zero exit status.
func (r CommandResult) OK() bool { return r.ExitCode == 0 }

// Combined returns stdout followed by stderr.
func (r CommandResult) Combined() string {
	switch {
	case r.Stdout == "":
		return r.Stderr
	case r.Stderr == "":
		return r.Stdout
	}
	return r.Stdout + "\n" + r.Stderr
}

// Package exec runs external helper binaries with captured output.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	osexec "os/exec"
	"strings"
	"time"

	"github.com/flanksource/commons/logger"
)

type Process struct {
	Bin      string
	Args     []string
	Env      map[string]string
	Cwd      string
	Log      logger.Logger
	Started  *time.Time
	Duration time.Duration
	Err      error
	Stderr   bytes.Buffer
	Stdout   bytes.Buffer
}

func New(bin string, args ...string) *Process {
	return &Process{Bin: bin, Args: args, Log: logger.GetLogger("exec")}
}

// Available reports whether bin can be found on PATH.
func Available(bin string) bool {
	_, err := osexec.LookPath(bin)
	return err == nil
}

func (p *Process) WithEnv(env map[string]string) *Process {
	p.Env = env
	return p
}

func (p *Process) WithCwd(cwd string) *Process {
	p.Cwd = cwd
	return p
}

func (p *Process) WithLogger(log logger.Logger) *Process {
	p.Log = log
	return p
}

func (p *Process) Name() string {
	return p.Bin
}

func (p *Process) String() string {
	return strings.TrimSpace(p.Bin + " " + strings.Join(p.Args, " "))
}

// Out is stderr followed by stdout.
func (p *Process) Out() string {
	return p.Stderr.String() + p.Stdout.String()
}

// Run starts the process and waits for it; ctx cancellation kills it.
func (p *Process) Run(ctx context.Context) error {
	cmd := osexec.CommandContext(ctx, p.Bin, p.Args...)
	cmd.Dir = p.Cwd
	cmd.Stdout = &p.Stdout
	cmd.Stderr = &p.Stderr
	if len(p.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range p.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	now := time.Now()
	p.Started = &now
	if p.Log != nil {
		p.Log.Debugf("running %s", p)
	}
	p.Err = cmd.Run()
	p.Duration = time.Since(now)
	if p.Err != nil {
		p.Err = fmt.Errorf("%s failed after %s: %w: %s", p.Bin, p.Duration.Round(time.Millisecond), p.Err, strings.TrimSpace(p.Out()))
	}
	return p.Err
}

func (p *Process) IsOK() bool {
	return p.Started != nil && p.Err == nil
}

package llm

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// spawn starts llama-server for the model and waits until it is healthy.
func (e *serverEngine) spawn(ctx context.Context, sopts ServerOptions, opts LoadOptions) error {
	port, err := pickPort(sopts.Host, sopts.PortStart, sopts.PortEnd)
	if err != nil {
		return err
	}
	e.baseURL = fmt.Sprintf("http://%s:%d", sopts.Host, port)

	args := serverArgs(sopts, opts, port)
	cmd := exec.Command(sopts.Bin, args...)
	// Captured stderr; the tail is included on early exit.
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return ErrDependencyUnavailable(fmt.Sprintf("start llama-server: %v", err))
	}
	proc := &serverProc{cmd: cmd, done: make(chan struct{})}
	go func() {
		proc.err = cmd.Wait()
		close(proc.done)
	}()
	e.log.Info().Str("bin", sopts.Bin).Int("pid", cmd.Process.Pid).Str("url", e.baseURL).Msg("llama-server spawned")

	if err := e.waitReady(ctx, proc, sopts.ReadyTimeout); err != nil {
		_ = proc.stop(e.log)
		tail := stderr.String()
		if len(tail) > 4096 {
			tail = tail[len(tail)-4096:]
		}
		if tail != "" {
			return fmt.Errorf("%w; stderr tail: %s", err, tail)
		}
		return err
	}
	e.proc = proc
	e.log.Info().Int("pid", cmd.Process.Pid).Msg("llama-server ready")
	return nil
}

func serverArgs(sopts ServerOptions, opts LoadOptions, port int) []string {
	args := []string{
		"-m", opts.ModelPath,
		"--host", sopts.Host,
		"--port", strconv.Itoa(port),
	}
	if opts.ContextSize > 0 {
		args = append(args, "-c", strconv.Itoa(opts.ContextSize))
	}
	if opts.GPULayers > 0 {
		args = append(args, "-ngl", strconv.Itoa(opts.GPULayers))
	}
	if opts.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(opts.Threads))
	}
	return append(args, sopts.ExtraArgs...)
}

// stop sends SIGTERM and falls back to SIGKILL after two seconds.
func (p *serverProc) stop(log zerolog.Logger) error {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	select {
	case <-p.done:
		return nil
	default:
	}
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		log.Warn().Int("pid", p.cmd.Process.Pid).Msg("llama-server did not exit, killing")
		_ = p.cmd.Process.Kill()
		<-p.done
	}
	return nil
}

// pickPort returns a free port in [start,end], or any free port when no
// range is configured.
func pickPort(host string, start, end int) (int, error) {
	if start > 0 && end >= start {
		for p := start; p <= end; p++ {
			l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
			if err != nil {
				continue
			}
			_ = l.Close()
			return p, nil
		}
		return 0, fmt.Errorf("no free port in range %d-%d", start, end)
	}
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

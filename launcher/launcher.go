package launcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"

	"sc2runtime/config"
	"sc2runtime/logging"
)

// process wraps the spawned child and the goroutine that supervises it
// (spec.md §5: "A separate OS thread supervises each child process ...
// communicating back to the loop via a one-shot notification").
type process struct {
	cmd *exec.Cmd
}

// Launch starts a game-engine child process with a deterministic endpoint
// (spec.md §4.1): flags -listen 127.0.0.1 -port <port> -displayMode 0 and
// the window geometry flags. The instance is not yet Ready; call AwaitReady
// to block until its port accepts connections.
func Launch(exe string, port uint16, window config.Rect, wine bool) (*Instance, error) {
	if _, err := os.Stat(exe); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrExeMissing, exe)
		}
		return nil, fmt.Errorf("launcher: stat %s: %w", exe, err)
	}

	args := []string{
		"-listen", "127.0.0.1",
		"-port", strconv.Itoa(int(port)),
		"-displayMode", "0",
		"-windowx", strconv.Itoa(int(window.X)),
		"-windowy", strconv.Itoa(int(window.Y)),
		"-windowWidth", strconv.Itoa(int(window.W)),
		"-windowHeight", strconv.Itoa(int(window.H)),
	}

	command := exe
	if wine {
		args = append([]string{exe}, args...)
		command = "wine"
	}

	cmd := exec.Command(command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawnFailed, exe, err)
	}

	inst := &Instance{
		PID:   cmd.Process.Pid,
		Port:  port,
		State: StateStarting,
		proc:  &process{cmd: cmd},
		done:  make(chan struct{}),
	}

	go func() {
		err := cmd.Wait()
		inst.mu.Lock()
		inst.exitErr = err
		inst.mu.Unlock()
		close(inst.done)
	}()

	logging.With("launcher").Info().Int("port", int(port)).Int("pid", cmd.Process.Pid).Msg("engine instance launched")

	return inst, nil
}

// AwaitReady polls a TCP connect to the instance's port until it accepts a
// connection or deadline elapses (spec.md §4.1), returning the websocket URL.
func AwaitReady(ctx context.Context, inst *Instance, deadline time.Duration) (string, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", inst.Port)
	cutoff := time.Now().Add(deadline)

	for {
		if err, exited := inst.Exited(); exited {
			return "", fmt.Errorf("launcher: instance exited before ready: %v", err)
		}

		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			inst.State = StateReady
			inst.URL = fmt.Sprintf("ws://127.0.0.1:%d/sc2api", inst.Port)
			return inst.URL, nil
		}

		if time.Now().After(cutoff) {
			return "", fmt.Errorf("%w: %s after %s", ErrTimeout, addr, deadline)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("launcher: await ready cancelled: %w", ctx.Err())
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// Terminate runs closeFn if it is non-nil (Participant.Cleanup passes its
// transport's Close, having already sent Quit over it), then waits for
// exit bounded by grace, then kills (spec.md §4.1).
func Terminate(inst *Instance, closeFn func() error, grace time.Duration) {
	if inst.State == StateClosed {
		return
	}
	log := logging.With("launcher")

	if closeFn != nil {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("orderly quit failed, will kill")
		}
	}

	if !inst.waitExit(time.After(grace)) {
		if inst.proc != nil && inst.proc.cmd.Process != nil {
			_ = inst.proc.cmd.Process.Kill()
		}
		<-inst.done
	}
	inst.State = StateClosed
}

// ProbePorts finds numPorts free ports at or above base, by binding and
// immediately releasing a TCP listener on each candidate
// (spec.md §4.1: "the Launcher increments until N successful bind-probes
// succeed"). Ports that fail to bind are skipped, so the result is
// contiguous only when none in the range is already taken; running past
// 65535 returns ErrPortExhaustion.
func ProbePorts(base uint16, numPorts int) ([]uint16, error) {
	ports := make([]uint16, 0, numPorts)
	port := int(base)
	for len(ports) < numPorts {
		if port > 65535 {
			return nil, ErrPortExhaustion
		}
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			port++
			continue
		}
		ln.Close()
		ports = append(ports, uint16(port))
		port++
	}
	return ports, nil
}

package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"voicechat/core"
	"voicechat/utils/audio"
)

var ErrMicrophoneClosed = errors.New("microphone is not capturing")

// wavHeaderLimit bounds how far into the capture stream the data chunk of
// a WAV header is searched for.
const wavHeaderLimit = 4096

// Microphone reads PCM from a capture command. The command only runs
// between Start and Stop, so no stale audio is buffered while idle.
// Commands writing WAV (arecord -t wav) are accepted; the header is
// dropped before the first sample is returned.
type Microphone struct {
	command []string
	logger  *core.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser

	// owned by the reader
	headerRead bool
	pending    []byte
}

func NewMicrophone(config Config, logger *core.Logger) *Microphone {
	config = config.WithDefaults()
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Microphone{
		command: expandCommand(config.CaptureCommand, config.CaptureSampleRate),
		logger:  logger.With(map[string]interface{}{"component": "microphone"}),
	}
}

// Start launches the capture command. Starting an already running
// microphone is a no-op.
func (m *Microphone) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd != nil {
		return nil
	}

	cmd := exec.CommandContext(ctx, m.command[0], m.command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start capture %q: %w", m.command[0], err)
	}
	m.cmd, m.stdout = cmd, stdout
	m.headerRead, m.pending = false, nil
	m.logger.Debug("capture started", "command", m.command[0], "pid", cmd.Process.Pid)
	return nil
}

// Read returns raw PCM. It must not be called concurrently with Start.
func (m *Microphone) Read(p []byte) (int, error) {
	m.mu.Lock()
	stdout := m.stdout
	m.mu.Unlock()
	if stdout == nil {
		return 0, ErrMicrophoneClosed
	}

	if !m.headerRead {
		data, err := readCaptureHeader(stdout)
		if err != nil {
			return 0, err
		}
		m.headerRead, m.pending = true, data
	}
	if len(m.pending) > 0 {
		n := copy(p, m.pending)
		m.pending = m.pending[n:]
		return n, nil
	}
	return stdout.Read(p)
}

// readCaptureHeader consumes a leading WAV header, if any, and returns the
// audio bytes read past it.
func readCaptureHeader(r io.Reader) ([]byte, error) {
	head := make([]byte, 12)
	n, err := io.ReadFull(r, head)
	head = head[:n]
	for {
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return nil, err
		}
		data, stripErr := audio.StripWAVHeaderIfPresent(head)
		if stripErr == nil {
			return data, nil
		}
		if err != nil || len(head) >= wavHeaderLimit {
			return nil, fmt.Errorf("capture stream: %w", stripErr)
		}
		more := make([]byte, 8)
		n, err = io.ReadFull(r, more)
		head = append(head, more[:n]...)
	}
}

// Stop terminates the capture command and waits for it to exit.
func (m *Microphone) Stop() error {
	m.mu.Lock()
	cmd := m.cmd
	m.cmd, m.stdout = nil, nil
	m.mu.Unlock()
	if cmd == nil {
		return nil
	}

	_ = cmd.Process.Kill()
	err := cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// killed here, by the context, or the command ended on its own
		err = nil
	}
	m.logger.Debug("capture stopped")
	return err
}

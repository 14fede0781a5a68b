package local

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"voicechat/core"
)

// Player plays PCM by piping it into a player command.
type Player struct {
	command []string
	logger  *core.Logger
}

func NewPlayer(config Config, logger *core.Logger) *Player {
	config = config.WithDefaults()
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Player{
		command: config.PlayerCommand,
		logger:  logger.With(map[string]interface{}{"component": "player"}),
	}
}

// Start launches one player process for a stream at sampleRate.
func (p *Player) Start(ctx context.Context, sampleRate int) (io.WriteCloser, error) {
	args := expandCommand(p.command, sampleRate)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start player %q: %w", args[0], err)
	}
	p.logger.Debug("playback started", "command", args[0], "sample_rate", sampleRate)
	return &playback{cmd: cmd, stdin: stdin, stderr: stderr}, nil
}

type playback struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
}

func (pb *playback) Write(data []byte) (int, error) {
	return pb.stdin.Write(data)
}

// Close ends the input and waits for the player to drain it.
func (pb *playback) Close() error {
	closeErr := pb.stdin.Close()
	if err := pb.cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(pb.stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return closeErr
}

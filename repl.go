package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"voicechat/core"
	"voicechat/handlers/session"
)

const replHelp = `Commands:
  <text>              send a message
  /voice              speak a message
  /key <api key>      set the OpenAI API key for this session
  /voice-input on|off
  /voice-output on|off
  /questions          list ice breaker questions
  /ask <n>            send ice breaker question n
  /history            show the conversation
  /clear              clear the conversation
  /help               show this help
  /quit               leave`

// repl is the terminal front-end for one session.
type repl struct {
	ctrl *session.Controller
	in   io.Reader
	out  io.Writer
}

func newREPL(ctrl *session.Controller, in io.Reader, out io.Writer) *repl {
	return &repl{ctrl: ctrl, in: in, out: out}
}

// Run reads lines until /quit, end of input or ctx is cancelled.
func (r *repl) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(r.out, "Voice Chat Bot. Type /help for commands.")
	if !r.ctrl.HasCredential() {
		fmt.Fprintln(r.out, promptFor(session.ErrMissingCredential))
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(r.out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out)
				return <-scanErr
			}
			if quit := r.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// handle runs one input line and reports whether the user asked to quit.
func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		if line != "" {
			r.submitText(ctx, line)
		}
		return false
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(r.out, replHelp)
	case "/key":
		r.ctrl.SetCredential(arg)
		if r.ctrl.HasCredential() {
			fmt.Fprintln(r.out, "API key set.")
		} else {
			fmt.Fprintln(r.out, promptFor(session.ErrMissingCredential))
		}
	case "/voice":
		fmt.Fprintln(r.out, "Listening... Speak now!")
		out, err := r.ctrl.SubmitVoice(ctx)
		if err != nil {
			fmt.Fprintln(r.out, promptFor(err))
			return false
		}
		fmt.Fprintf(r.out, "you: %s\n", out.Transcript)
		r.printOutcome(out)
	case "/voice-input":
		r.toggle(arg, "Voice input", r.ctrl.SetVoiceInput)
	case "/voice-output":
		r.toggle(arg, "Voice output", r.ctrl.SetVoiceOutput)
	case "/questions":
		printQuestions(r.out)
	case "/ask":
		questions := session.SampleQuestions()
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(questions) {
			fmt.Fprintf(r.out, "Pick a question between 1 and %d.\n", len(questions))
			return false
		}
		fmt.Fprintf(r.out, "you: %s\n", questions[n-1])
		r.submitText(ctx, questions[n-1])
	case "/history":
		printHistory(r.out, r.ctrl.Messages())
	case "/clear":
		r.ctrl.Clear()
		fmt.Fprintln(r.out, "Conversation cleared.")
	default:
		fmt.Fprintf(r.out, "Unknown command %s. Type /help for commands.\n", command)
	}
	return false
}

func (r *repl) submitText(ctx context.Context, text string) {
	out, err := r.ctrl.SubmitText(ctx, text)
	if err != nil {
		fmt.Fprintln(r.out, promptFor(err))
		return
	}
	r.printOutcome(out)
}

func (r *repl) printOutcome(out session.Outcome) {
	fmt.Fprintf(r.out, "assistant: %s\n", out.Reply.Display())
	if out.SpeechErr != nil {
		fmt.Fprintf(r.out, "Speech synthesis error: %v\n", out.SpeechErr)
	}
}

func (r *repl) toggle(arg, name string, set func(bool) bool) {
	var want bool
	switch arg {
	case "on":
		want = true
	case "off":
		want = false
	default:
		fmt.Fprintf(r.out, "Usage: %s on|off\n", strings.ToLower(name))
		return
	}
	if got := set(want); got != want {
		fmt.Fprintf(r.out, "%s is not available: the service key is not configured.\n", name)
		return
	}
	fmt.Fprintf(r.out, "%s %s.\n", name, arg)
}

func printQuestions(w io.Writer) {
	for i, q := range session.SampleQuestions() {
		fmt.Fprintf(w, "%d. %s\n", i+1, q)
	}
}

func printHistory(w io.Writer, messages []core.Message) {
	if len(messages) == 0 {
		fmt.Fprintln(w, "(no messages yet)")
		return
	}
	for _, m := range messages {
		fmt.Fprintf(w, "%s: %s\n", m.Role, m.Content)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"voicechat/core"
	"voicechat/factories"
	"voicechat/handlers/session"

	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	voiceInput  bool
	voiceOutput bool
	logFormat   string
	logLevel    string
	logDir      string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "voicechat",
		Short: "Voice-enabled chat with a hosted language model",
		Long: "voicechat relays typed or spoken questions to a chat completion API, " +
			"keeps the conversation in memory and can read replies aloud.",
		// Running voicechat with no subcommand starts chat mode.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "settings file, .json or .yaml (default $SETTINGS_PATH or ./settings.json)")
	rootCmd.PersistentFlags().BoolVar(&voiceInput, "voice-input", true, "enable voice input")
	rootCmd.PersistentFlags().BoolVar(&voiceOutput, "voice-output", false, "read replies aloud")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: dev, console or json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "write a JSONL log per session into this directory")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd)
		},
	})
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "questions",
		Short: "List the ice breaker questions",
		Run: func(cmd *cobra.Command, args []string) {
			printQuestions(cmd.OutOrStdout())
		},
	})
	return rootCmd
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ask <question>",
		Short:   "Ask a single question and print the reply",
		Example: `  voicechat ask "Tell me about yourself"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess, credential, err := startSession(ctx, cmd)
			if err != nil {
				return err
			}
			defer sess.Close()
			sess.Controller.SetCredential(credential)

			out, err := sess.Controller.SubmitText(ctx, strings.Join(args, " "))
			if err != nil {
				return errors.New(promptFor(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Reply.Display())
			if out.SpeechErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Speech synthesis error: %v\n", out.SpeechErr)
			}
			if !out.Reply.OK() {
				return fmt.Errorf("completion failed (%s)", out.Reply.Err)
			}
			return nil
		},
	}
}

func runChat(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, credential, err := startSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	sess.Controller.SetCredential(credential)

	if sess.LogPath != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "session log: %s\n", sess.LogPath)
	}
	return newREPL(sess.Controller, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
}

// startSession loads environment and settings, applies flag overrides and
// builds the session. The OpenAI key is returned separately: it is the
// session credential and never enters the settings.
func startSession(ctx context.Context, cmd *cobra.Command) (*factories.Session, string, error) {
	if err := factories.LoadEnvFile(".env.local"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		core.GetLogger().Warn("failed to load .env.local", "error", err)
	}

	settings, err := loadSettings()
	if err != nil {
		return nil, "", err
	}

	flags := cmd.Flags()
	if flags.Changed("voice-input") {
		settings.Session.VoiceInput = voiceInput
	}
	if flags.Changed("voice-output") {
		settings.Session.VoiceOutput = voiceOutput
	}
	if logFormat != "" {
		settings.Log.Format = logFormat
	}
	if logLevel != "" {
		settings.Log.Level = logLevel
	}
	if logDir != "" {
		settings.Log.Dir = logDir
	}

	logger, err := factories.BuildLogger(settings.Log)
	if err != nil {
		return nil, "", err
	}
	core.SetLogger(logger)

	keys := factories.APIKeysFromEnv()
	settings.InjectAPIKeys(keys)

	sess, err := factories.BuildSession(ctx, settings, logger)
	if err != nil {
		return nil, "", err
	}
	return sess, keys.OpenAI, nil
}

// loadSettings reads the settings file. A missing default file means
// defaults; a missing file the user named is an error.
func loadSettings() (factories.Settings, error) {
	path := cfgFile
	explicit := path != ""
	if !explicit {
		path = os.Getenv("SETTINGS_PATH")
		explicit = path != ""
	}
	if !explicit {
		path = "./settings.json"
	}

	settings, err := factories.SettingsFromFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return settings, nil
		}
		return factories.Settings{}, err
	}
	return settings, nil
}

// promptFor turns controller gate errors into the text shown to the user.
func promptFor(err error) string {
	var (
		rerr     *core.RecognitionError
		rejected *session.RejectedTranscriptError
	)
	switch {
	case errors.Is(err, session.ErrMissingCredential):
		return "Please enter your OpenAI API key (/key <key> or OPENAI_API_KEY) to start chatting!"
	case errors.Is(err, session.ErrEmptyInput):
		return "Type a message, or /voice to speak."
	case errors.Is(err, session.ErrVoiceInputDisabled):
		return "Voice input is off. Enable it with /voice-input on (needs DEEPGRAM_API_KEY)."
	case errors.Is(err, core.ErrNoSpeech), errors.Is(err, core.ErrUnintelligible),
		errors.As(err, &rerr), errors.As(err, &rejected):
		return "Voice input failed: " + err.Error()
	default:
		return err.Error()
	}
}

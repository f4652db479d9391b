// Command interpreter is a terminal client for the translation service.
// Typed lines stand in for speech recognition results and are committed
// after a silence timeout; with -fallback, Enter starts and stops a
// microphone recording that is translated as audio.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/workerpool"

	"github.com/carelingo/carelingo/config"
	"github.com/carelingo/carelingo/internal/capture"
	"github.com/carelingo/carelingo/internal/capture/adapters"
	"github.com/carelingo/carelingo/internal/connectutil"
	"github.com/carelingo/carelingo/internal/language"
	"github.com/carelingo/carelingo/internal/translate/handler"
	"github.com/carelingo/carelingo/pkg/events"
)

const help = `commands:
  /stop              commit the current utterance now
  /to <code>         set the target language
  /from <code>       set the input language (speech locale follows)
  /offline on|off    use the local model
  /simplify on|off   plain-language output
  /languages         list supported languages
  /quit              exit`

func main() {
	env, err := config.LoadInterpreter()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	url := flag.String("url", env.ServiceURL, "translation service base URL")
	to := flag.String("to", env.TargetLanguage, "target language code")
	from := flag.String("from", env.InputLanguage, "input language code")
	locale := flag.String("locale", "", "speech locale (defaults to the input language's)")
	offline := flag.Bool("offline", env.UseOffline, "use the local model")
	simplify := flag.Bool("simplify", env.Simplify, "plain-language output")
	dialect := flag.String("dialect", env.Dialect, "target dialect")
	silence := flag.Duration("silence", env.SilenceTimeout(), "silence before an utterance is committed")
	fallback := flag.Bool("fallback", false, "record microphone audio with ffmpeg instead of typed lines")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, srv := frame.NewService(
		frame.WithName("interpreter"),
		frame.WithWorkerPoolOptions(
			workerpool.WithPoolCount(1),
			workerpool.WithSinglePoolCapacity(8),
		),
	)
	defer srv.Stop(ctx)

	pool, err := srv.WorkManager().GetPool()
	if err != nil {
		log.Fatalf("getting worker pool: %v", err)
	}

	client := handler.NewHTTPClient(*url, connectutil.DefaultClientOptions()...)
	translator := adapters.NewServiceTranslator(client, adapters.ServiceSettings{
		TargetLanguage: *to,
		InputLanguage:  *from,
		UseOffline:     *offline,
		Simplify:       *simplify,
		Dialect:        *dialect,
	})

	term := newTerminal(os.Stdout)
	dispatcher := capture.NewDispatcher(ctx, translator, term, pool)
	pub := events.NewLocalPublisher("interpreter")
	defer func() {
		if n := pub.Dropped(); n > 0 {
			slog.Warn("capture events dropped by slow subscribers", slog.Int64("count", n))
		}
		pub.Close()
	}()
	go logEvents(pub.Subscribe("log", 16, events.CaptureFinalized, events.CaptureError))

	sh := &shell{
		ctx:        ctx,
		client:     client,
		catalog:    language.Default(),
		translator: translator,
		term:       term,
		lines:      readLines(ctx),
	}

	if *fallback {
		sh.runRecorder(dispatcher, pub, env)
	} else {
		sh.runSpeech(dispatcher, pub, *locale, *silence)
	}

	dispatcher.Wait()
}

type shell struct {
	ctx        context.Context
	client     *handler.Client
	catalog    *language.Catalog
	translator *adapters.ServiceTranslator
	term       *terminal
	lines      <-chan string

	stop func()
	// setLocale rebinds speech recognition; nil in fallback mode.
	setLocale func(string) error
}

func (s *shell) runSpeech(dispatcher *capture.Dispatcher, pub *events.Publisher, locale string, silence time.Duration) {
	if locale == "" {
		locale = s.speechLocale(s.translator.Settings().InputLanguage)
	}

	input := adapters.NewLineInput(64)
	machine, err := capture.NewMachine(input.Factory, dispatcher, s.term, capture.MachineOptions{
		Locale:         locale,
		SilenceTimeout: silence,
		Emitter:        pub,
	})
	if err != nil {
		log.Fatalf("creating capture session: %v", err)
	}
	go machine.Consume(s.ctx, input.Events())
	s.setLocale = machine.SetLocale

	s.stop = func() { _ = machine.Stop() }
	defer s.stop()

	fmt.Printf("type to speak (%s); a pause of %s commits. /help for commands\n", machine.Locale(), silence)
	for {
		line, ok := s.next()
		if !ok {
			return
		}
		if strings.HasPrefix(line, "/") {
			if s.command(line) {
				return
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if notice := captureLine(machine, input.Feed, line); notice != "" {
			s.term.printf("! %s\n", notice)
		}
	}
}

// speechSession is the part of capture.Machine that typed input drives.
type speechSession interface {
	State() capture.State
	Start() error
}

// captureLine opens a session when idle and feeds the line to it. A non-empty
// notice means the line was not captured.
func captureLine(session speechSession, feed func(string) bool, line string) string {
	if session.State() == capture.Idle {
		if err := session.Start(); err != nil {
			slog.Debug("listening not started", slog.String("error", err.Error()))
			return "line not captured; the microphone did not start"
		}
	}
	if !feed(line) {
		return "still finishing the last utterance; line not captured, type it again"
	}
	return ""
}

func (s *shell) runRecorder(dispatcher *capture.Dispatcher, pub *events.Publisher, env config.InterpreterConfig) {
	source := adapters.NewFFmpegSource(adapters.FFmpegConfig{
		Command:     env.FFmpegCommand,
		InputFormat: env.FFmpegFormat,
		InputDevice: env.FFmpegDevice,
	})
	recorder := capture.NewRecorder(source, dispatcher, s.term, capture.RecorderOptions{Emitter: pub})
	defer recorder.Abort()

	s.stop = func() { _ = recorder.Stop(s.ctx) }

	fmt.Println("press Enter to start and stop recording. /help for commands")
	for {
		line, ok := s.next()
		if !ok {
			return
		}
		if strings.HasPrefix(line, "/") {
			if s.command(line) {
				return
			}
			continue
		}
		if recorder.State() == capture.Recording {
			s.stop()
			continue
		}
		if err := recorder.Start(s.ctx); err != nil {
			slog.Debug("recording not started", slog.String("error", err.Error()))
		}
	}
}

// next returns the next input line, or false once input ends or the process
// is interrupted.
func (s *shell) next() (string, bool) {
	select {
	case <-s.ctx.Done():
		return "", false
	case line, ok := <-s.lines:
		return line, ok
	}
}

// command handles a slash command and reports whether to quit.
func (s *shell) command(line string) bool {
	if !strings.HasPrefix(line, "/") {
		return false
	}
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "quit", "exit":
		return true
	case "help":
		fmt.Println(help)
	case "stop":
		if s.stop != nil {
			s.stop()
		}
	case "to":
		if arg == "" {
			fmt.Println(s.translator.Settings().TargetLanguage)
			return false
		}
		s.translator.Update(func(st *adapters.ServiceSettings) { st.TargetLanguage = arg })
		fmt.Printf("target: %s\n", s.catalog.DisplayName(arg))
	case "from":
		if arg == "" {
			fmt.Println(s.translator.Settings().InputLanguage)
			return false
		}
		if s.setLocale != nil {
			if err := s.setLocale(s.speechLocale(arg)); err != nil {
				fmt.Printf("! cannot change language now: %v\n", err)
				return false
			}
		}
		s.translator.Update(func(st *adapters.ServiceSettings) { st.InputLanguage = arg })
		fmt.Printf("input: %s\n", s.catalog.DisplayName(arg))
	case "offline":
		on := parseToggle(arg)
		s.translator.Update(func(st *adapters.ServiceSettings) { st.UseOffline = on })
		fmt.Printf("offline: %v\n", on)
	case "simplify":
		on := parseToggle(arg)
		s.translator.Update(func(st *adapters.ServiceSettings) { st.Simplify = on })
		fmt.Printf("simplify: %v\n", on)
	case "languages":
		s.printLanguages()
	default:
		fmt.Printf("unknown command /%s\n", name)
	}
	return false
}

// speechLocale prefers the service's catalog and falls back to the built-in
// one when the service is unreachable.
func (s *shell) speechLocale(code string) string {
	ctx, cancel := context.WithTimeout(s.ctx, 3*time.Second)
	defer cancel()
	langs, err := s.client.ListLanguages(ctx)
	if err == nil {
		for _, l := range langs {
			if l.Code == code && l.SpeechLocale != "" {
				return l.SpeechLocale
			}
		}
	}
	return s.catalog.SpeechLocale(code)
}

func (s *shell) printLanguages() {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	langs, err := s.client.ListLanguages(ctx)
	if err != nil {
		fmt.Printf("! %s\n", handler.ErrorMessage(err))
		return
	}
	for _, l := range langs {
		fmt.Printf("  %-4s %-20s %s\n", l.Code, l.Name, l.SpeechLocale)
	}
}

func logEvents(ch <-chan events.Envelope) {
	for env := range ch {
		slog.Debug("capture event",
			slog.String("type", string(env.Type)),
			slog.String("session_id", env.SessionID),
			slog.String("data", string(env.Data)),
		)
	}
}

func parseToggle(s string) bool {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true
	}
	return false
}

func readLines(ctx context.Context) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Command chasqui is an interactive terminal client for the chasqui chat relay.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/chasqui-chat/chasqui/internal/chat"
	"github.com/chasqui-chat/chasqui/internal/config"
	"github.com/chasqui-chat/chasqui/internal/errs"
	"github.com/chasqui-chat/chasqui/internal/model"
	"github.com/chasqui-chat/chasqui/internal/prefs"
	"github.com/chasqui-chat/chasqui/internal/session"
	"github.com/chasqui-chat/chasqui/internal/storage"
	"github.com/chasqui-chat/chasqui/internal/transport"
	"github.com/chasqui-chat/chasqui/internal/vault"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// bellNotifier is the stand-in for the external sound player: the reconciler
// makes the "should notify" decision, we ring the terminal bell.
type bellNotifier struct{}

func (bellNotifier) Notify() { fmt.Print("\a") }

type app struct {
	log      *zap.Logger
	sessions *session.Store
	prefs    *prefs.Store
	dialer   transport.Dialer
	reader   *bufio.Reader
}

func main() {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()
	logger.Debug("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
	)

	v, err := vault.New(config.VaultKey())
	if err != nil {
		fail(err)
	}

	kv := openStore(logger)
	defer kv.Close()

	a := &app{
		log:      logger,
		sessions: session.NewStore(kv, v, logger),
		prefs:    prefs.NewStore(kv),
		dialer:   &transport.WebsocketDialer{RawEvent: config.RoomEvent, Log: logger},
		reader:   bufio.NewReader(os.Stdin),
	}
	if err := a.run(context.Background()); err != nil {
		fail(err)
	}
}

// newLogger is quiet by default; CHASQUI_DEBUG=1 turns on full logging.
func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	if os.Getenv("CHASQUI_DEBUG") == "" {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		fail(err)
	}
	return logger
}

// openStore prefers the sqlite store and falls back to the JSON file store
// when the database cannot be opened.
func openStore(log *zap.Logger) storage.KV {
	dir := storage.DefaultDir()
	kv, err := storage.NewSQLiteStore(filepath.Join(dir, "chasqui.db"))
	if err == nil {
		return kv
	}
	log.Warn("sqlite store unavailable, using file store", zap.Error(err))
	fs, ferr := storage.NewFileStore(filepath.Join(dir, "store.json"))
	if ferr != nil {
		fail(ferr)
	}
	return fs
}

// run loops login -> chat until the user quits.
func (a *app) run(ctx context.Context) error {
	for {
		id, err := a.sessions.Load()
		if err != nil {
			return err
		}
		if id == nil {
			id, err = a.login()
			if err != nil {
				return err
			}
			if id == nil {
				return nil // EOF at the login prompt
			}
		}

		quit, err := a.chatLoop(ctx, *id)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
		// logged out; back to the login prompt
	}
}

// login prompts for nickname and password and persists the identity. Returns
// nil on EOF.
func (a *app) login() (*model.Identity, error) {
	fmt.Println("Welcome to Batman Chat")
	for {
		fmt.Print("nickname: ")
		nick, err := a.reader.ReadString('\n')
		if err != nil {
			return nil, nil
		}
		nick = strings.TrimSpace(nick)

		pw, err := a.readPassword()
		if err != nil {
			return nil, err
		}
		if nick == "" || strings.TrimSpace(pw) == "" {
			fmt.Println("nickname and password must not be empty")
			continue
		}

		id := model.Identity{Username: nick, Secret: pw}
		if err := a.sessions.Save(id); err != nil {
			// a failed save is transient: the session still works, it just
			// won't survive a restart
			fmt.Println("warning: could not save login:", err)
			a.log.Warn("save identity failed", zap.Error(err))
		}
		return &id, nil
	}
}

func (a *app) readPassword() (string, error) {
	fmt.Print("password: ")
	if term.IsTerminal(int(syscall.Stdin)) {
		b, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	// non-tty (pipes): read a plain line
	line, err := a.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// chatLoop drives one session. Returns quit=true when the user exits the
// program, quit=false after a logout.
func (a *app) chatLoop(ctx context.Context, id model.Identity) (bool, error) {
	sess := chat.NewSession(id, a.dialer, chat.SessionConfig{
		RelayURL:  config.RelayURL,
		RelayPath: config.RelayPath,
		RoomEvent: config.RoomEvent,
		Notifier:  bellNotifier{},
		Log:       a.log,
	})
	defer sess.Close()

	sess.OnAppend(func(m model.Message, o chat.Origin) {
		if o == chat.OriginLocal {
			fmt.Printf("you: %s\n", m.Body)
			return
		}
		fmt.Printf("%s: %s\n", m.Sender, m.Body)
	})

	if err := sess.Start(ctx); err != nil {
		// not fatal: messages soft-fail until the next login reconnects
		fmt.Println("could not reach the relay, running offline:", err)
		a.log.Warn("relay dial failed", zap.Error(err))
	}
	fmt.Printf("logged in as %s (theme: %s). /help for commands\n",
		id.Username, a.prefs.Get())

	for {
		line, err := a.reader.ReadString('\n')
		if err != nil {
			return true, nil // EOF
		}
		line = strings.TrimRight(line, "\n")

		switch {
		case line == "/quit" || line == "/exit":
			return true, nil

		case line == "/logout":
			if err := a.sessions.Clear(); err != nil {
				fmt.Println("warning: could not clear saved login:", err)
			}
			return false, nil

		case line == "/theme":
			p, err := a.prefs.Toggle()
			if err != nil {
				fmt.Println("warning: could not save theme:", err)
			}
			fmt.Println("theme:", p)

		case line == "/status":
			fmt.Println("connection:", sess.State())

		case line == "/help":
			fmt.Println("commands: /logout /theme /status /quit; anything else is sent to the room")

		default:
			if err := sess.Submit(line); err != nil {
				if errors.Is(err, errs.ErrNotConnected) {
					fmt.Println("offline, message not sent")
					continue
				}
				fmt.Println("send failed:", err)
			}
		}
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// Package main runs the AuthMatrix command-line client: an interactive
// shell over the login, email verification, and password reset flows.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"github.com/amolsr/authmatrix-client/internal/client/events"
	"github.com/amolsr/authmatrix-client/internal/client/flows"
	"github.com/amolsr/authmatrix-client/internal/client/gateway"
	"github.com/amolsr/authmatrix-client/internal/client/session"
	"github.com/amolsr/authmatrix-client/internal/config"
	"github.com/amolsr/authmatrix-client/internal/logger"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// shell wires the flow controllers to the interactive loop.
type shell struct {
	gw      *gateway.Client
	store   *session.Store
	log     *zap.Logger
	scanner *bufio.Scanner
	timeout time.Duration
	eof     bool

	// chrome is the session-aware navigation controller carrying the
	// resend-code side action.
	chrome *flows.VerifyController
}

func main() {
	options := config.Parse()

	fmt.Printf("AuthMatrix client\nBuild version: %s\n", orDefault(version, "N/A"))
	fmt.Printf("Build date: %s\n", orDefault(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Println("failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	// The cookie jar carries the backend session cookie; the bearer token
	// rides alongside it from the session store.
	jar, err := cookiejar.New(nil)
	if err != nil {
		zapLogger.Fatal("cannot create cookie jar", zap.Error(err))
	}
	timeout := time.Duration(options.TimeoutSeconds) * time.Second
	httpClient := &http.Client{Jar: jar, Timeout: timeout}

	// Gateway and store reference each other: the gateway reads the
	// store's token, the store's Clear handles the gateway's 401s.
	var store *session.Store
	gw := gateway.New(options.BaseURL, httpClient,
		gateway.CredentialFunc(func() string { return store.Token() }), zapLogger)
	store = session.New(gw, session.NewTokenFile(options.TokenFile), zapLogger)
	gw.SetUnauthorizedHook(store.Clear)

	// Session lifecycle events go over an in-process pub/sub; the shell
	// drains them into notifications.
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer func() { _ = bus.Close() }()
	store.SetEventPublisher(events.NewWatermillPublisher(bus))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchSessionEvents(ctx, bus, session.TopicAuthenticated, "session established")
	watchSessionEvents(ctx, bus, session.TopicCleared, "session ended")

	// Hydrate the session from the persisted credential.
	initCtx, initCancel := context.WithTimeout(ctx, timeout)
	if err := store.Initialize(initCtx); err != nil {
		// Not fatal: the shell starts logged out.
		fmt.Println("Could not check the stored session:", err)
		zapLogger.Warn("session check failed", zap.Error(err))
	}
	initCancel()

	s := &shell{
		gw:      gw,
		store:   store,
		log:     zapLogger,
		scanner: bufio.NewScanner(os.Stdin),
		timeout: timeout,
		chrome:  flows.NewVerify(gw, store, zapLogger),
	}
	s.repl()
}

// orDefault returns v, or fallback if v is empty. It stands in for
// cmp.Or, which needs a Go 1.22+ toolchain.
func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// watchSessionEvents prints a notice for every message on topic.
func watchSessionEvents(ctx context.Context, bus *gochannel.GoChannel, topic, notice string) {
	msgs, err := bus.Subscribe(ctx, topic)
	if err != nil {
		return
	}
	go func() {
		for msg := range msgs {
			fmt.Printf("\n[%s]\n", notice)
			msg.Ack()
		}
	}()
}

// repl runs the interactive loop, dispatching auth commands.
func (s *shell) repl() {
	for {
		fmt.Print(s.prompt())
		if !s.scanner.Scan() {
			break
		}
		line := strings.TrimSpace(s.scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, login, register, logout, profile, verify, resend, reset, exit")
		case "login":
			s.login(flows.ModeLogin)
		case "register":
			s.login(flows.ModeRegister)
		case "logout":
			s.logout()
		case "profile":
			s.profile()
		case "verify":
			s.verify()
		case "resend":
			s.resend()
		case "reset":
			s.reset()
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

// prompt reflects the current authentication state.
func (s *shell) prompt() string {
	st := s.store.State()
	if !st.Authenticated {
		return "authmatrix> "
	}
	if st.Profile != nil {
		badge := ""
		if st.Profile.IsAccountVerified {
			badge = "*"
		}
		return fmt.Sprintf("%s%s> ", st.Profile.Email, badge)
	}
	return "authmatrix (signed in)> "
}

func (s *shell) readLine(label string) string {
	fmt.Print(label)
	if !s.scanner.Scan() {
		s.eof = true
		return ""
	}
	return strings.TrimSpace(s.scanner.Text())
}

func (s *shell) callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *shell) login(mode flows.Mode) {
	lc := flows.NewLogin(s.gw, s.store, s.log)
	lc.SetMode(mode)
	if mode == flows.ModeRegister {
		lc.Name = s.readLine("Full name: ")
	}
	lc.Email = s.readLine("Email: ")
	lc.Password = s.readLine("Password: ")

	ctx, cancel := s.callCtx()
	defer cancel()
	dest, err := lc.Submit(ctx)
	if err != nil {
		fmt.Println(lc.Err())
		return
	}
	if dest == flows.DestLanding {
		if mode == flows.ModeRegister {
			fmt.Println("Account created successfully! You can now log in.")
		} else {
			fmt.Println("Logged in.")
		}
	}
}

func (s *shell) logout() {
	ctx, cancel := s.callCtx()
	defer cancel()
	if err := s.gw.Logout(ctx); err != nil {
		// The backend session may already be gone; drop local state anyway.
		s.log.Warn("logout call failed", zap.Error(err))
	}
	s.store.Clear()
	fmt.Println("Logged out.")
}

func (s *shell) profile() {
	ctx, cancel := s.callCtx()
	defer cancel()
	if err := s.store.FetchProfile(ctx); err != nil {
		fmt.Println("Could not fetch profile:", err)
		return
	}
	st := s.store.State()
	if st.Profile == nil {
		fmt.Println("Not logged in.")
		return
	}
	verified := "no"
	if st.Profile.IsAccountVerified {
		verified = "yes"
	}
	fmt.Printf("Name: %s\nEmail: %s\nVerified: %s\n", st.Profile.Name, st.Profile.Email, verified)
}

func (s *shell) verify() {
	vc := flows.NewVerify(s.gw, s.store, s.log)
	defer vc.Close()
	if vc.Mount() == flows.DestLanding {
		fmt.Println("Your email is already verified.")
		return
	}

	code := s.readLine("Enter the 6-digit code from your email: ")
	vc.Challenge.OnPaste(code)

	ctx, cancel := s.callCtx()
	defer cancel()
	dest, err := vc.Submit(ctx)
	if err != nil {
		fmt.Println(vc.Err())
		return
	}
	if dest == flows.DestLanding {
		fmt.Println("Email verified successfully!")
	}
}

func (s *shell) resend() {
	ctx, cancel := s.callCtx()
	defer cancel()
	dest, err := s.chrome.ResendCode(ctx)
	if dest == flows.DestLogin {
		fmt.Println("Your session expired, please log in again.")
		return
	}
	if err != nil {
		fmt.Println("Could not send the code:", err)
		return
	}
	fmt.Println("Verification code sent, check your inbox.")
}

func (s *shell) reset() {
	rc := flows.NewReset(s.gw, s.log)
	defer rc.Close()

	email := s.readLine("Registered email address: ")
	ctx, cancel := s.callCtx()
	err := rc.SubmitEmail(ctx, email)
	cancel()
	if err != nil {
		fmt.Println(rc.Err())
		return
	}
	fmt.Println("Password reset code sent successfully!")

	for rc.Stage() == flows.StageCode && !s.eof {
		code := s.readLine("Enter the 6-digit reset code: ")
		rc.Challenge.OnPaste(code)
		if err := rc.ConfirmCode(context.Background()); err != nil {
			fmt.Println(rc.Err())
		}
	}

	for rc.Stage() == flows.StagePassword && !s.eof {
		password := s.readLine("New password: ")
		ctx, cancel := s.callCtx()
		dest, err := rc.SubmitPassword(ctx, password)
		cancel()
		if err != nil {
			fmt.Println(rc.Err())
			continue
		}
		if dest == flows.DestLogin {
			fmt.Println("Password reset successfully! Please log in.")
		}
	}
}

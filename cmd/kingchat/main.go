package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kingchat/kingchat/internal/app"
	"github.com/kingchat/kingchat/internal/config"
	"github.com/kingchat/kingchat/internal/lock"
	"github.com/kingchat/kingchat/internal/session"
	"github.com/kingchat/kingchat/internal/tui"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	apiFlag := flag.String("api", "", "API base URL (overrides config)")
	offlineFlag := flag.Bool("offline", false, "use the local backend even if the API is reachable")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadOrDefault(session.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *apiFlag != "" {
		cfg.APIURL = *apiFlag
	}
	if *offlineFlag {
		cfg.Offline = true
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	client, stop, err := app.Start(startCtx, app.Params{SessionName: sessionName, Command: "kingchat", Config: cfg})
	cancel()
	if err != nil {
		var held *lock.HeldError
		if errors.As(err, &held) {
			fmt.Fprintf(os.Stderr, "session %q is already open (PID %d, %s)\n", sessionName, held.Holder.PID, held.Holder.Command)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}

	runErr := tui.New(client).Run()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kingchat/kingchat/internal/app"
	"github.com/kingchat/kingchat/internal/bus"
	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/config"
	"github.com/kingchat/kingchat/internal/outbox"
	"github.com/kingchat/kingchat/internal/session"
	"github.com/kingchat/kingchat/internal/status"
)

type options struct {
	json   bool
	folder string
	search string
	limit  int
	public bool
	about  string
	chat   string
}

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	apiFlag := flag.String("api", "", "API base URL (overrides config)")
	offlineFlag := flag.Bool("offline", false, "use the local backend even if the API is reachable")
	verbose := flag.Bool("v", false, "log to stderr")
	var opts options
	flag.BoolVar(&opts.json, "json", false, "output in JSON format")
	flag.StringVar(&opts.folder, "folder", "all", "folder for chats: all, unread, channels, bots, groups")
	flag.StringVar(&opts.search, "search", "", "filter chats by name or last message")
	flag.IntVar(&opts.limit, "limit", 20, "number of messages to print")
	flag.BoolVar(&opts.public, "public", false, "create: let anyone join the conversation")
	flag.StringVar(&opts.about, "description", "", "create: conversation description")
	flag.StringVar(&opts.chat, "chat", "", "search: only look in this conversation")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fatal(err)
	}
	cfg, err := config.LoadOrDefault(session.ConfigPath())
	if err != nil {
		fatal(err)
	}
	if *apiFlag != "" {
		cfg.APIURL = *apiFlag
	}
	if *offlineFlag {
		cfg.Offline = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, stop, err := app.Start(ctx, app.Params{SessionName: sessionName, Command: "kingchatctl", Config: cfg, Console: *verbose})
	if err != nil {
		fatal(err)
	}
	err = run(ctx, c, args, opts)
	if stopErr := stop(context.Background()); err == nil {
		err = stopErr
	}
	if err != nil {
		fatal(err)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: kingchatctl [--session <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                          Show session status")
	fmt.Fprintln(os.Stderr, "  login                           Sign in with the demo account")
	fmt.Fprintln(os.Stderr, "  logout                          Forget the stored session")
	fmt.Fprintln(os.Stderr, "  chats [--folder f] [--search q] List conversations")
	fmt.Fprintln(os.Stderr, "  messages <chat-id> [--limit n]  Print the newest messages")
	fmt.Fprintln(os.Stderr, "  send <chat-id> <text>           Send a message")
	fmt.Fprintln(os.Stderr, "  edit <msg-id> <text>            Edit one of your messages")
	fmt.Fprintln(os.Stderr, "  delete <msg-id>                 Delete one of your messages")
	fmt.Fprintln(os.Stderr, "  forward <msg-id> <chat-id>...   Forward a message")
	fmt.Fprintln(os.Stderr, "  react <msg-id> <emoji>          Toggle a reaction")
	fmt.Fprintln(os.Stderr, "  unreact <msg-id> <emoji>        Remove your reaction")
	fmt.Fprintln(os.Stderr, "  search [--chat id] <text>       Search message text")
	fmt.Fprintln(os.Stderr, "  create [--public] <group|channel|private> <name> [member-id]...")
	fmt.Fprintln(os.Stderr, "                                  Create a conversation")
	fmt.Fprintln(os.Stderr, "  delete-chat <chat-id>           Delete a conversation you own")
	fmt.Fprintln(os.Stderr, "  join <chat-id>                  Join a public conversation")
	fmt.Fprintln(os.Stderr, "  leave <chat-id>                 Leave a conversation")
	fmt.Fprintln(os.Stderr, "  privacy [contact-id] [key=bool]...")
	fmt.Fprintln(os.Stderr, "                                  Show or change privacy settings")
}

func run(ctx context.Context, c *app.Client, args []string, opts options) error {
	cmd, rest := args[0], args[1:]
	if cmd == "login" {
		return cmdLogin(ctx, c, opts)
	}
	if err := c.Resume(ctx); err != nil && cmd != "status" {
		return err
	}
	if cmd != "status" && cmd != "logout" && c.Status.Current() == status.AuthRequired {
		return errors.New("not signed in; run kingchatctl login")
	}

	switch cmd {
	case "status":
		return cmdStatus(c, opts)
	case "logout":
		if err := c.Logout(); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	case "chats":
		return cmdChats(c, opts)
	case "messages":
		if len(rest) != 1 {
			return errors.New("usage: kingchatctl messages <chat-id>")
		}
		return cmdMessages(ctx, c, rest[0], opts)
	case "send":
		if len(rest) < 2 {
			return errors.New("usage: kingchatctl send <chat-id> <text>")
		}
		return cmdSend(ctx, c, rest[0], strings.Join(rest[1:], " "), opts)
	case "edit":
		if len(rest) < 2 {
			return errors.New("usage: kingchatctl edit <msg-id> <text>")
		}
		return cmdMutate(ctx, c, rest[0], func() error {
			return c.Sender.Edit(ctx, rest[0], strings.Join(rest[1:], " "))
		})
	case "delete":
		if len(rest) != 1 {
			return errors.New("usage: kingchatctl delete <msg-id>")
		}
		return cmdMutate(ctx, c, rest[0], func() error { return c.Sender.Delete(ctx, rest[0]) })
	case "forward":
		if len(rest) < 2 {
			return errors.New("usage: kingchatctl forward <msg-id> <chat-id>...")
		}
		return cmdForward(ctx, c, rest[0], rest[1:], opts)
	case "react", "unreact":
		if len(rest) != 2 {
			return fmt.Errorf("usage: kingchatctl %s <msg-id> <emoji>", cmd)
		}
		return cmdReact(ctx, c, rest[0], rest[1], cmd == "unreact", opts)
	case "search":
		if len(rest) == 0 {
			return errors.New("usage: kingchatctl search [--chat id] <text>")
		}
		return cmdSearch(ctx, c, strings.Join(rest, " "), opts)
	case "create":
		if len(rest) < 2 {
			return errors.New("usage: kingchatctl create <group|channel|private> <name> [member-id]...")
		}
		return cmdCreate(ctx, c, chat.NewConversation{
			Type:         chat.ChatType(rest[0]),
			Name:         rest[1],
			Participants: rest[2:],
			Description:  opts.about,
			Public:       opts.public,
		}, opts)
	case "delete-chat":
		if len(rest) != 1 {
			return errors.New("usage: kingchatctl delete-chat <chat-id>")
		}
		return done(c.Engine.DeleteConversation(ctx, rest[0]))
	case "join":
		if len(rest) != 1 {
			return errors.New("usage: kingchatctl join <chat-id>")
		}
		conv, err := c.Engine.Join(ctx, rest[0])
		if err != nil {
			return err
		}
		if opts.json {
			return outputJSON(conv)
		}
		fmt.Printf("Joined %s (%s)\n", conv.Name, conv.ID)
		return nil
	case "leave":
		if len(rest) != 1 {
			return errors.New("usage: kingchatctl leave <chat-id>")
		}
		return done(c.Engine.Leave(ctx, rest[0]))
	case "privacy":
		return cmdPrivacy(ctx, c, rest, opts)
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func cmdLogin(ctx context.Context, c *app.Client, opts options) error {
	user, err := c.Login(ctx)
	if err != nil {
		return err
	}
	if opts.json {
		return outputJSON(user)
	}
	fmt.Printf("Signed in as %s (%s)\n", user.Name, user.ID)
	return nil
}

func cmdStatus(c *app.Client, opts options) error {
	backend := "api"
	if c.Offline() {
		backend = "local"
	}
	out := struct {
		Session       string `json:"session"`
		Status        string `json:"status"`
		Backend       string `json:"backend"`
		User          string `json:"user,omitempty"`
		Conversations int    `json:"conversations"`
	}{c.Session, string(c.Status.Current()), backend, c.Store.CurrentUser().Name, len(c.Store.All())}
	if opts.json {
		return outputJSON(out)
	}
	fmt.Printf("Session: %s\n", out.Session)
	fmt.Printf("Status:  %s\n", out.Status)
	fmt.Printf("Backend: %s\n", out.Backend)
	if out.User != "" {
		fmt.Printf("User:    %s\n", out.User)
	}
	fmt.Printf("Chats:   %d\n", out.Conversations)
	return nil
}

func cmdChats(c *app.Client, opts options) error {
	c.Store.SelectFolder(opts.folder)
	c.Store.SetSearch(opts.search)
	convs := c.Store.Conversations()
	if opts.json {
		return outputJSON(convs)
	}
	if len(convs) == 0 {
		fmt.Println("No conversations.")
		return nil
	}
	for _, conv := range convs {
		unread := ""
		if conv.UnreadCount > 0 {
			unread = fmt.Sprintf("(%d) ", conv.UnreadCount)
		}
		fmt.Printf("%-24s %-8s %s%s: %s\n", conv.ID, conv.Type, unread, conv.Name, conv.LastMessagePreview)
	}
	return nil
}

func cmdMessages(ctx context.Context, c *app.Client, convID string, opts options) error {
	if err := c.Engine.Open(ctx, convID); err != nil {
		return err
	}
	c.Engine.Wait()
	msgs := c.Store.Messages(convID)
	if opts.limit > 0 && len(msgs) > opts.limit {
		msgs = msgs[len(msgs)-opts.limit:]
	}
	if opts.json {
		return outputJSON(msgs)
	}
	for _, m := range msgs {
		sender := m.SenderName
		if m.IsOwn {
			sender = "You"
		}
		suffix := ""
		if m.Status == chat.Edited {
			suffix = " (edited)"
		}
		fmt.Printf("%s  %-20s %s  %s%s\n", m.Timestamp.Local().Format("2006-01-02 15:04"), m.ID, sender, m.Text, suffix)
	}
	return nil
}

// cmdSend waits for the send to settle and reports the server id.
func cmdSend(ctx context.Context, c *app.Client, convID, text string, opts options) error {
	events, unsubscribe := c.Bus.Subscribe("message.", 16)
	defer unsubscribe()

	m, err := c.Sender.Send(ctx, convID, chat.Draft{Text: text})
	if err != nil {
		return err
	}
	c.Sender.Wait()
	for {
		select {
		case evt := <-events:
			switch p := evt.Payload.(type) {
			case outbox.SendAck:
				if p.TempID != m.ID {
					continue
				}
				if opts.json {
					return outputJSON(p)
				}
				fmt.Printf("Sent %s\n", p.ServerMsgID)
				return nil
			case outbox.SendFailure:
				if p.TempID == m.ID {
					return p.Err
				}
			}
		default:
			return errors.New("send did not settle")
		}
	}
}

// cmdMutate loads the owning conversation so the Store knows the message,
// then runs fn and waits for it to settle.
func cmdMutate(ctx context.Context, c *app.Client, msgID string, fn func() error) error {
	if err := findMessage(ctx, c, msgID); err != nil {
		return err
	}
	notices, unsubscribe := c.Bus.Subscribe(bus.KindNotifyError, 4)
	defer unsubscribe()
	if err := fn(); err != nil {
		return err
	}
	c.Sender.Wait()
	select {
	case evt := <-notices:
		if n, ok := evt.Payload.(bus.Notice); ok {
			return errors.New(n.Message)
		}
	default:
	}
	fmt.Println("Done.")
	return nil
}

func cmdForward(ctx context.Context, c *app.Client, msgID string, targets []string, opts options) error {
	if err := findMessage(ctx, c, msgID); err != nil {
		return err
	}
	events, unsubscribe := c.Bus.Subscribe("", 64)
	defer unsubscribe()
	if err := c.Sender.Forward(ctx, msgID, targets, ""); err != nil {
		return err
	}
	c.Sender.Wait()
	for {
		select {
		case evt := <-events:
			switch p := evt.Payload.(type) {
			case outbox.Forwarded:
				if opts.json {
					return outputJSON(p.Result)
				}
				fmt.Printf("Forwarded to %d of %d conversations\n", p.Result.SentCount(), len(targets))
				for _, f := range p.Result.Failed {
					fmt.Printf("  %s: %s\n", f.ConversationID, f.Reason)
				}
				return nil
			case bus.Notice:
				if evt.Kind == bus.KindNotifyError && p.Level == "error" {
					return errors.New(p.Message)
				}
			}
		default:
			return errors.New("forward did not settle")
		}
	}
}

// findMessage loads threads until msgID is known to the Store. Message ids
// usually start with their conversation id, so those threads go first.
func findMessage(ctx context.Context, c *app.Client, msgID string) error {
	if _, ok := c.Store.Message(msgID); ok {
		return nil
	}
	all := c.Store.All()
	slices.SortStableFunc(all, func(a, b chat.Conversation) int {
		pa, pb := strings.HasPrefix(msgID, a.ID), strings.HasPrefix(msgID, b.ID)
		switch {
		case pa == pb:
			return 0
		case pa:
			return -1
		default:
			return 1
		}
	})
	for _, conv := range all {
		if err := c.Engine.Open(ctx, conv.ID); err != nil {
			return err
		}
		c.Engine.Wait()
		if _, ok := c.Store.Message(msgID); ok {
			return nil
		}
	}
	return fmt.Errorf("message %s: %w", msgID, chat.ErrNotFound)
}

func done(err error) error {
	if err != nil {
		return err
	}
	fmt.Println("Done.")
	return nil
}

func cmdReact(ctx context.Context, c *app.Client, msgID, emoji string, remove bool, opts options) error {
	if err := findMessage(ctx, c, msgID); err != nil {
		return err
	}
	var err error
	if remove {
		err = c.Engine.Unreact(ctx, msgID, emoji)
	} else {
		err = c.Engine.ToggleReaction(ctx, msgID, emoji)
	}
	if err != nil {
		return err
	}
	m, _ := c.Store.Message(msgID)
	if opts.json {
		return outputJSON(m.Reactions)
	}
	if len(m.Reactions) == 0 {
		fmt.Println("No reactions.")
	}
	for _, r := range m.Reactions {
		fmt.Printf("%s %d  %s\n", r.Emoji, r.Count(), strings.Join(r.Users, ", "))
	}
	return nil
}

func cmdSearch(ctx context.Context, c *app.Client, query string, opts options) error {
	found, err := c.Engine.SearchMessages(ctx, query, opts.chat, opts.limit)
	if err != nil {
		return err
	}
	if opts.json {
		return outputJSON(found)
	}
	if len(found) == 0 {
		fmt.Println("No messages.")
		return nil
	}
	for _, m := range found {
		sender := m.SenderName
		if m.IsOwn {
			sender = "You"
		}
		fmt.Printf("%s  %-20s %-20s %s  %s\n", m.Timestamp.Local().Format("2006-01-02 15:04"), m.ConversationID, m.ID, sender, m.Text)
	}
	return nil
}

func cmdCreate(ctx context.Context, c *app.Client, nc chat.NewConversation, opts options) error {
	switch nc.Type {
	case chat.Group, chat.Channel, chat.Private:
	default:
		return fmt.Errorf("%w: type must be group, channel or private", chat.ErrValidation)
	}
	conv, err := c.Engine.CreateConversation(ctx, nc)
	if err != nil {
		return err
	}
	c.Engine.Wait()
	if opts.json {
		return outputJSON(conv)
	}
	fmt.Printf("Created %s (%s)\n", conv.Name, conv.ID)
	return nil
}

// cmdPrivacy prints the settings of a scope, applying key=bool pairs first.
func cmdPrivacy(ctx context.Context, c *app.Client, args []string, opts options) error {
	scope := chat.Global
	if len(args) > 0 && !strings.Contains(args[0], "=") {
		scope = chat.Scope{ContactID: args[0]}
		args = args[1:]
	}
	settings, err := c.Engine.Privacy(ctx, scope)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		for _, kv := range args {
			if err := applySetting(&settings, kv); err != nil {
				return err
			}
		}
		if err := c.Engine.SetPrivacy(ctx, scope, settings); err != nil {
			return err
		}
	}
	if opts.json {
		return outputJSON(settings)
	}
	fmt.Printf("Scope:          %s\n", scope)
	fmt.Printf("read_receipts:  %v\n", settings.ShowReadReceipts)
	fmt.Printf("last_seen:      %v\n", settings.ShowLastSeen)
	fmt.Printf("online_status:  %v\n", settings.ShowOnlineStatus)
	return nil
}

func applySetting(s *chat.PrivacySettings, kv string) error {
	key, value, ok := strings.Cut(kv, "=")
	if !ok {
		return fmt.Errorf("expected key=bool, got %q", kv)
	}
	on, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	switch key {
	case "read_receipts":
		s.ShowReadReceipts = on
	case "last_seen":
		s.ShowLastSeen = on
	case "online_status":
		s.ShowOnlineStatus = on
	default:
		return fmt.Errorf("unknown setting %q (read_receipts, last_seen, online_status)", key)
	}
	return nil
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

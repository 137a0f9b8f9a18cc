package tui

import (
	"fmt"
	"strings"

	"github.com/kingchat/kingchat/internal/chat"
)

// Command is a parsed ':' command line.
type Command struct {
	Name string
	Args string
}

// aliases maps short forms onto command names.
var aliases = map[string]string{
	"q":  "quit",
	"h":  "help",
	"f":  "folder",
	"c":  "chat",
	"s":  "search",
	"r":  "reload",
	"pv": "privacy",
	"n":  "new",
	"j":  "join",
	"fd": "find",
	"+":  "react",
	"-":  "unreact",
}

// ParseCommand parses input without the leading ':'. Names are lower-cased
// and aliases resolved.
func ParseCommand(input string) Command {
	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	name = strings.ToLower(name)
	if full, ok := aliases[name]; ok {
		name = full
	}
	return Command{Name: name, Args: strings.TrimSpace(args)}
}

func (a *App) execute(cmd Command) {
	switch cmd.Name {
	case "":
	case "quit":
		a.Stop()
	case "help":
		a.push(pageHelp)
	case "folder":
		f := chat.ParseFolder(strings.ToLower(cmd.Args))
		a.client.Store.SelectFolder(string(f))
		a.notice("Folder: " + f.Title())
	case "search":
		a.client.Store.SetSearch(cmd.Args)
	case "chat":
		if cmd.Args == "" {
			a.notice("usage: :chat <name>")
			return
		}
		a.openByName(cmd.Args)
	case "privacy":
		if cmd.Args == "" {
			a.showPrivacy(chat.Global, "")
			return
		}
		a.showPrivacy(chat.Scope{ContactID: cmd.Args}, cmd.Args)
	case "new":
		nc, err := ParseNewConversation(cmd.Args)
		if err != nil {
			a.fail("create conversation", err)
			return
		}
		a.async("create conversation", func() error {
			_, err := a.client.Engine.CreateConversation(a.ctx, nc)
			return err
		})
	case "delete-chat":
		a.confirmDeleteConversation()
	case "join":
		if cmd.Args == "" {
			a.notice("usage: :join <conversation-id>")
			return
		}
		a.join(cmd.Args)
	case "leave":
		a.leave()
	case "react", "unreact":
		if cmd.Args == "" {
			a.notice("usage: :" + cmd.Name + " <emoji>")
			return
		}
		a.react(cmd.Args, cmd.Name == "unreact")
	case "find":
		if cmd.Args == "" {
			a.notice("usage: :find <text>")
			return
		}
		a.findMessages(cmd.Args)
	case "reload":
		a.async("reload", func() error { return a.client.Engine.Load(a.ctx) })
	case "logout":
		a.logout()
	default:
		a.notice("Unknown command: " + cmd.Name)
	}
}

// ParseNewConversation reads the arguments of :new. An optional leading kind
// (group, channel, private or dm) selects the type, "+public" opens the
// conversation to everyone and @id tokens name participants. The remaining
// words form the name; a private conversation defaults to its participant.
func ParseNewConversation(args string) (chat.NewConversation, error) {
	nc := chat.NewConversation{Type: chat.Group}
	fields := strings.Fields(args)
	if len(fields) > 0 {
		switch strings.ToLower(fields[0]) {
		case "group":
			fields = fields[1:]
		case "channel":
			nc.Type, fields = chat.Channel, fields[1:]
		case "private", "dm":
			nc.Type, fields = chat.Private, fields[1:]
		}
	}
	var name []string
	for _, f := range fields {
		switch {
		case f == "+public":
			nc.Public = true
		case strings.HasPrefix(f, "@") && len(f) > 1:
			nc.Participants = append(nc.Participants, f[1:])
		default:
			name = append(name, f)
		}
	}
	nc.Name = strings.Join(name, " ")
	if nc.Type == chat.Private {
		nc.Public = false
		if nc.Name == "" && len(nc.Participants) == 1 {
			nc.Name = nc.Participants[0]
		}
	}
	if err := nc.Validate(); err != nil {
		return chat.NewConversation{}, fmt.Errorf("%w (usage: :new [group|channel|dm] [+public] <name> @member...)", err)
	}
	return nc, nil
}

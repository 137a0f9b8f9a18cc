package tui

import (
	"errors"
	"slices"
	"testing"

	"github.com/kingchat/kingchat/internal/chat"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"", Command{}},
		{"quit", Command{Name: "quit"}},
		{"  Q  ", Command{Name: "quit"}},
		{"folder unread", Command{Name: "folder", Args: "unread"}},
		{"f   bots ", Command{Name: "folder", Args: "bots"}},
		{"chat Maria Silva", Command{Name: "chat", Args: "Maria Silva"}},
		{"pv user_maria", Command{Name: "privacy", Args: "user_maria"}},
		{"unknown x", Command{Name: "unknown", Args: "x"}},
		{"+ 👍", Command{Name: "react", Args: "👍"}},
		{"fd churrasco", Command{Name: "find", Args: "churrasco"}},
		{"delete-chat", Command{Name: "delete-chat"}},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.in); got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseNewConversation(t *testing.T) {
	tests := []struct {
		in      string
		want    chat.NewConversation
		wantErr error
	}{
		{
			in:   "Viagem de Férias",
			want: chat.NewConversation{Name: "Viagem de Férias", Type: chat.Group},
		},
		{
			in:   "group +public Trilha @user_ana @user_joao",
			want: chat.NewConversation{Name: "Trilha", Type: chat.Group, Public: true, Participants: []string{"user_ana", "user_joao"}},
		},
		{
			in:   "channel Avisos",
			want: chat.NewConversation{Name: "Avisos", Type: chat.Channel},
		},
		{
			in:   "dm +public @user_maria",
			want: chat.NewConversation{Name: "user_maria", Type: chat.Private, Participants: []string{"user_maria"}},
		},
		{in: "", wantErr: chat.ErrValidation},
		{in: "group @user_ana", wantErr: chat.ErrValidation},
		{in: "private Maria", wantErr: chat.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNewConversation(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.Name != tt.want.Name || got.Type != tt.want.Type || got.Public != tt.want.Public ||
				!slices.Equal(got.Participants, tt.want.Participants) {
				t.Errorf("ParseNewConversation(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

package bot

import (
	"strings"

	"github.com/kingchat/kingchat/internal/chat"
)

// Canned replies of simulated contacts.
var chatter = []string{
	"Entendi! 👍",
	"Interessante!",
	"Claro, vamos conversar sobre isso",
	"Obrigado pela mensagem! 😊",
	"Concordo completamente",
	"Que legal! Conte-me mais",
}

var commands = map[string]string{
	"/start":   "Olá! Eu sou o AssistentBot. Digite /help para ver o que posso fazer.",
	"/help":    "Comandos disponíveis: /weather, /news, /joke",
	"/weather": "☀️ Hoje: ensolarado, 26°C. Amanhã: parcialmente nublado, 24°C.",
	"/news":    "📰 Destaque do dia: KingChat lança pastas inteligentes para organizar conversas.",
	"/joke":    "Por que o programador foi ao médico? Porque estava com um bug! 🐛",
}

const unknownCommand = "Não conheço esse comando. Digite /help para ver a lista."

// Reply picks the automatic answer to text sent into a conversation of type
// kind. pick chooses an index below n. It returns false when nobody answers.
func Reply(kind chat.ChatType, text string, pick func(n int) int) (string, bool) {
	switch kind {
	case chat.Channel:
		return "", false
	case chat.Bot:
		fields := strings.Fields(text)
		if len(fields) > 0 && strings.HasPrefix(fields[0], "/") {
			cmd := strings.ToLower(fields[0])
			if r, ok := commands[cmd]; ok {
				return r, true
			}
			return unknownCommand, true
		}
	}
	return chatter[pick(len(chatter))], true
}

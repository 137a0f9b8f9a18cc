package chat

// Folder is a named sidebar filter. Membership is always computed, never stored.
type Folder string

const (
	FolderAll      Folder = "all"
	FolderUnread   Folder = "unread"
	FolderChannels Folder = "channels"
	FolderBots     Folder = "bots"
	FolderGroups   Folder = "groups"
)

// Folders lists the recognized folders in display order.
var Folders = []Folder{FolderAll, FolderUnread, FolderChannels, FolderBots, FolderGroups}

// ParseFolder returns the folder for id. Unknown ids behave as FolderAll.
func ParseFolder(id string) Folder {
	for _, f := range Folders {
		if string(f) == id {
			return f
		}
	}
	return FolderAll
}

// Match reports whether c belongs to folder f.
func (f Folder) Match(c *Conversation) bool {
	switch f {
	case FolderUnread:
		return c.UnreadCount > 0
	case FolderChannels:
		return c.Type == Channel
	case FolderBots:
		return c.Type == Bot
	case FolderGroups:
		return c.Type == Group
	default:
		return true
	}
}

// Title is the label shown on folder tabs.
func (f Folder) Title() string {
	switch f {
	case FolderUnread:
		return "Unread"
	case FolderChannels:
		return "Channels"
	case FolderBots:
		return "Bots"
	case FolderGroups:
		return "Groups"
	default:
		return "All"
	}
}

// CountFolders evaluates every folder predicate over convs.
func CountFolders(convs []Conversation) map[Folder]int {
	counts := make(map[Folder]int, len(Folders))
	for _, f := range Folders {
		counts[f] = 0
	}
	for i := range convs {
		for _, f := range Folders {
			if f.Match(&convs[i]) {
				counts[f]++
			}
		}
	}
	return counts
}

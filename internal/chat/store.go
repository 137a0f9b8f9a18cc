package chat

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kingchat/kingchat/internal/bus"
)

const (
	tempPrefix    = "tmp-"
	previewLength = 100
)

// IsTemporaryID reports whether id was generated locally and is awaiting confirmation.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, tempPrefix)
}

// slot holds a message inside a thread. A hidden slot is logically deleted but
// keeps its position so a failed delete can be undone in place.
type slot struct {
	msg    Message
	hidden bool

	// Edits in flight, oldest first, and the last state the server confirmed.
	// base is captured when the first of a run of edits begins.
	edits      []pendingEdit
	baseText   string
	baseStatus Status
	baseSeq    uint64
}

type pendingEdit struct {
	seq  uint64
	text string
}

// EditTicket identifies one optimistic edit until it is committed or reverted.
type EditTicket struct {
	MessageID string
	Seq       uint64
}

// settleEdits recomputes what an edited slot shows: the newest edit still in
// flight that is newer than the confirmed state, otherwise the confirmed state.
// A deleted message keeps its status.
func (sl *slot) settleEdits() {
	text, st := sl.baseText, sl.baseStatus
	if n := len(sl.edits); n > 0 && sl.edits[n-1].seq > sl.baseSeq {
		text, st = sl.edits[n-1].text, Edited
	}
	sl.msg.Text = text
	if sl.msg.Status != Deleted {
		sl.msg.Status = st
	}
}

// takeEdit removes the edit seq from the in-flight list.
func (sl *slot) takeEdit(seq uint64) bool {
	for i, e := range sl.edits {
		if e.seq == seq {
			sl.edits = append(sl.edits[:i:i], sl.edits[i+1:]...)
			return true
		}
	}
	return false
}

// Store is the authoritative in-memory chat state. Every mutation is atomic
// under one mutex and publishes a chat.* event once the lock is released.
type Store struct {
	mu       sync.Mutex
	bus      *bus.Bus
	user     User
	order    []string
	convs    map[string]*Conversation
	threads  map[string][]*slot
	owner    map[string]string // message id -> conversation id
	active   string
	folder   Folder
	search   string
	loading  bool
	nextTemp uint64
	nextEdit uint64
	now      func() time.Time
}

// NewStore creates an empty store. b may be nil.
func NewStore(b *bus.Bus) *Store {
	return &Store{
		bus:     b,
		convs:   make(map[string]*Conversation),
		threads: make(map[string][]*slot),
		owner:   make(map[string]string),
		folder:  FolderAll,
		now:     time.Now,
	}
}

func (s *Store) publish(kind string, payload any) {
	s.bus.Emit(kind, payload)
}

// SetCurrentUser records the authenticated user. IsOwn is derived from it.
func (s *Store) SetCurrentUser(u User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	s.publish(EventConversations, "")
}

// CurrentUser returns the authenticated user.
func (s *Store) CurrentUser() User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// ReplaceConversations installs the result of an initial load or reload.
// The active selection survives if the conversation still exists.
func (s *Store) ReplaceConversations(list []Conversation) {
	s.mu.Lock()
	convs := make(map[string]*Conversation, len(list))
	order := make([]string, 0, len(list))
	for i := range list {
		c := list[i]
		if c.ID == "" {
			continue
		}
		if _, dup := convs[c.ID]; dup {
			continue
		}
		if c.UnreadCount < 0 {
			c.UnreadCount = 0
		}
		convs[c.ID] = &c
		order = append(order, c.ID)
	}
	for id := range s.threads {
		if _, ok := convs[id]; !ok {
			s.dropThread(id)
		}
	}
	s.convs = convs
	s.order = order
	if _, ok := convs[s.active]; !ok {
		s.active = ""
		s.loading = false
	}
	s.mu.Unlock()
	s.publish(EventConversations, "")
}

func (s *Store) dropThread(convID string) {
	for _, sl := range s.threads[convID] {
		delete(s.owner, sl.msg.ID)
	}
	delete(s.threads, convID)
}

// Reset clears all state. Used on logout.
func (s *Store) Reset() {
	s.mu.Lock()
	s.user = User{}
	s.order = nil
	s.convs = make(map[string]*Conversation)
	s.threads = make(map[string][]*slot)
	s.owner = make(map[string]string)
	s.active = ""
	s.folder = FolderAll
	s.search = ""
	s.loading = false
	s.mu.Unlock()
	s.publish(EventReset, nil)
}

// SelectConversation makes id the active conversation, zeroes its unread count
// and flags the thread as loading. Unknown ids are ignored.
func (s *Store) SelectConversation(id string) bool {
	s.mu.Lock()
	c, ok := s.convs[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.active = id
	c.UnreadCount = 0
	s.loading = true
	s.mu.Unlock()

	s.publish(EventSelection, id)
	s.publish(EventConversations, id)
	return true
}

// SelectFolder switches the sidebar filter and clears the active conversation.
func (s *Store) SelectFolder(id string) Folder {
	f := ParseFolder(id)
	s.mu.Lock()
	s.folder = f
	s.active = ""
	s.loading = false
	s.mu.Unlock()

	s.publish(EventSelection, "")
	s.publish(EventConversations, "")
	return f
}

// SetSearch sets the sidebar search text.
func (s *Store) SetSearch(text string) {
	s.mu.Lock()
	s.search = strings.TrimSpace(text)
	s.mu.Unlock()
	s.publish(EventConversations, "")
}

// Folder returns the selected folder.
func (s *Store) Folder() Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folder
}

// Search returns the sidebar search text.
func (s *Store) Search() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search
}

// Conversations returns the ordered conversations of the selected folder
// that match the search text.
func (s *Store) Conversations() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Conversation, 0, len(s.order))
	for _, id := range s.order {
		c := s.convs[id]
		if !s.folder.Match(c) || !matchSearch(c, s.search) {
			continue
		}
		out = append(out, *c)
	}
	return out
}

// All returns every conversation in display order, ignoring folder and search.
func (s *Store) All() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Conversation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.convs[id])
	}
	return out
}

// FolderCounts evaluates the folder predicates over the live conversations.
func (s *Store) FolderCounts() map[Folder]int {
	return CountFolders(s.All())
}

// Conversation returns the conversation with the given id.
func (s *Store) Conversation(id string) (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return Conversation{}, false
	}
	return *c, true
}

// Active returns the active conversation, if any.
func (s *Store) Active() (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[s.active]
	if !ok {
		return Conversation{}, false
	}
	return *c, true
}

// ActiveID returns the id of the active conversation or "".
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// LoadingMessages reports whether the active thread is being fetched.
func (s *Store) LoadingMessages() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// FinishLoading clears the loading flag if convID is still active.
func (s *Store) FinishLoading(convID string) {
	s.mu.Lock()
	changed := s.active == convID && s.loading
	if changed {
		s.loading = false
	}
	s.mu.Unlock()
	if changed {
		s.publish(EventThread, ThreadChange{ConversationID: convID})
	}
}

// ActiveMessages returns the visible thread of the active conversation.
func (s *Store) ActiveMessages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible(s.active)
}

// Messages returns the visible thread of convID.
func (s *Store) Messages(convID string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible(convID)
}

func (s *Store) visible(convID string) []Message {
	thread := s.threads[convID]
	out := make([]Message, 0, len(thread))
	for _, sl := range thread {
		if sl.hidden {
			continue
		}
		out = append(out, s.view(sl.msg))
	}
	return out
}

// Message returns the message with the given id, hidden or not.
func (s *Store) Message(id string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, sl := s.find(id)
	if sl == nil {
		return Message{}, false
	}
	return s.view(sl.msg), true
}

// OldestMessageID returns the first confirmed message id of convID, used as
// the pagination cursor.
func (s *Store) OldestMessageID(convID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range s.threads[convID] {
		if !IsTemporaryID(sl.msg.ID) {
			return sl.msg.ID
		}
	}
	return ""
}

func (s *Store) view(m Message) Message {
	m.IsOwn = m.SenderID != "" && m.SenderID == s.user.ID
	return m
}

func (s *Store) find(id string) (int, *slot) {
	convID, ok := s.owner[id]
	if !ok {
		return -1, nil
	}
	for i, sl := range s.threads[convID] {
		if sl.msg.ID == id {
			return i, sl
		}
	}
	return -1, nil
}

// SetMessages installs a server-loaded thread for convID. Local messages that
// are still pending or failed are kept after the loaded ones.
func (s *Store) SetMessages(convID string, msgs []Message) bool {
	s.mu.Lock()
	if _, ok := s.convs[convID]; !ok {
		s.mu.Unlock()
		return false
	}
	old := s.threads[convID]
	prev := make(map[string]*slot, len(old))
	for _, sl := range old {
		prev[sl.msg.ID] = sl
	}

	seen := make(map[string]bool, len(msgs))
	echoed := make(map[string]bool)
	next := make([]*slot, 0, len(msgs)+len(old))
	for _, m := range msgs {
		if m.ID == "" || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		if m.ClientMsgID != "" {
			echoed[m.ClientMsgID] = true
		}
		m.ConversationID = convID
		ns := &slot{msg: m, hidden: m.Status == Deleted}
		if p, ok := prev[m.ID]; ok {
			ns.hidden = ns.hidden || p.hidden
			if len(p.edits) > 0 {
				ns.edits = p.edits
				ns.baseSeq = p.baseSeq
				ns.baseText, ns.baseStatus = m.Text, m.Status
				ns.settleEdits()
			}
		}
		next = append(next, ns)
	}
	for _, sl := range old {
		if !IsTemporaryID(sl.msg.ID) || seen[sl.msg.ID] {
			continue
		}
		// The server already stored this send; its response will find the
		// loaded copy.
		if sl.msg.ClientMsgID != "" && echoed[sl.msg.ClientMsgID] {
			continue
		}
		next = append(next, sl)
	}

	s.dropThread(convID)
	s.threads[convID] = next
	for _, sl := range next {
		s.owner[sl.msg.ID] = convID
	}
	if s.active == convID {
		s.loading = false
	}
	s.refreshPreview(convID)
	s.mu.Unlock()

	s.publish(EventThread, ThreadChange{ConversationID: convID})
	return true
}

// PrependMessages inserts an older page in front of the thread, skipping
// messages already present. It returns the number inserted.
func (s *Store) PrependMessages(convID string, older []Message) int {
	s.mu.Lock()
	if _, ok := s.convs[convID]; !ok {
		s.mu.Unlock()
		return 0
	}
	head := make([]*slot, 0, len(older))
	for _, m := range older {
		if m.ID == "" {
			continue
		}
		if _, dup := s.owner[m.ID]; dup {
			continue
		}
		m.ConversationID = convID
		s.owner[m.ID] = convID
		head = append(head, &slot{msg: m, hidden: m.Status == Deleted})
	}
	s.threads[convID] = append(head, s.threads[convID]...)
	s.mu.Unlock()

	if len(head) > 0 {
		s.publish(EventThread, ThreadChange{ConversationID: convID})
	}
	return len(head)
}

// AppendLocalMessage validates d and appends it to convID's thread as a
// pending message with a fresh temporary id.
func (s *Store) AppendLocalMessage(convID string, d Draft) (Message, error) {
	if err := d.Validate(); err != nil {
		return Message{}, err
	}
	s.mu.Lock()
	c, ok := s.convs[convID]
	if !ok {
		s.mu.Unlock()
		return Message{}, fmt.Errorf("conversation %s: %w", convID, ErrNotFound)
	}
	s.nextTemp++
	m := Message{
		ID:             fmt.Sprintf("%s%d", tempPrefix, s.nextTemp),
		ConversationID: convID,
		SenderID:       s.user.ID,
		SenderName:     s.user.Name,
		Text:           strings.TrimSpace(d.Text),
		Type:           d.ContentType(),
		Timestamp:      s.now(),
		Status:         Pending,
		ReplyTo:        d.ReplyTo,
		ClientMsgID:    d.ClientMsgID,
	}
	if m.ClientMsgID == "" {
		m.ClientMsgID = uuid.NewString()
	}
	s.threads[convID] = append(s.threads[convID], &slot{msg: m})
	s.owner[m.ID] = convID
	c.LastMessagePreview = Preview(m.Text, previewLength)
	c.LastMessageAt = m.Timestamp
	out := s.view(m)
	s.mu.Unlock()

	s.publish(EventThread, ThreadChange{ConversationID: convID, MessageID: m.ID})
	s.publish(EventConversations, convID)
	return out, nil
}

// ConfirmMessage replaces a pending temporary message with the server's copy,
// keeping its position. Unknown or already settled ids are ignored.
func (s *Store) ConfirmMessage(tempID string, confirmed Message) bool {
	s.mu.Lock()
	idx, sl := s.find(tempID)
	if sl == nil || sl.msg.Status != Pending {
		s.mu.Unlock()
		return false
	}
	convID := sl.msg.ConversationID
	delete(s.owner, tempID)

	if _, loaded := s.owner[confirmed.ID]; loaded && confirmed.ID != "" {
		// A reload already delivered the server copy.
		thread := s.threads[convID]
		s.threads[convID] = append(thread[:idx:idx], thread[idx+1:]...)
	} else {
		if confirmed.ID != "" {
			sl.msg.ID = confirmed.ID
		}
		if !confirmed.Timestamp.IsZero() {
			sl.msg.Timestamp = confirmed.Timestamp
		}
		if confirmed.Text != "" {
			sl.msg.Text = confirmed.Text
		}
		sl.msg.Status = Sent
		s.owner[sl.msg.ID] = convID
	}
	s.refreshPreview(convID)
	id := sl.msg.ID
	s.mu.Unlock()

	s.publish(EventThread, ThreadChange{ConversationID: convID, MessageID: id})
	return true
}

// FailMessage marks a pending temporary message as failed. It stays visible.
func (s *Store) FailMessage(tempID string) bool {
	s.mu.Lock()
	_, sl := s.find(tempID)
	if sl == nil || sl.msg.Status != Pending {
		s.mu.Unlock()
		return false
	}
	sl.msg.Status = Failed
	convID := sl.msg.ConversationID
	s.mu.Unlock()

	s.publish(EventThread, ThreadChange{ConversationID: convID, MessageID: tempID})
	return true
}

// DiscardFailed removes a failed local message that never reached the server.
func (s *Store) DiscardFailed(id string) bool {
	s.mu.Lock()
	idx, sl := s.find(id)
	if sl == nil || sl.msg.Status != Failed {
		s.mu.Unlock()
		return false
	}
	convID := sl.msg.ConversationID
	thread := s.threads[convID]
	s.threads[convID] = append(thread[:idx:idx], thread[idx+1:]...)
	delete(s.owner, id)
	s.refreshPreview(convID)
	s.mu.Unlock()

	s.publish(EventThread, ThreadChange{ConversationID: convID, MessageID: id})
	return true
}

// authorize checks that the current user may modify sl.
func (s *Store) authorize(sl *slot, want Status) error {
	if sl.msg.SenderID != s.user.ID {
		return fmt.Errorf("message %s: %w", sl.msg.ID, ErrForbidden)
	}
	if !CanTransition(sl.msg.Status, want) {
		return fmt.Errorf("message %s is %s: %w", sl.msg.ID, sl.msg.Status, ErrValidation)
	}
	return nil
}

// BeginEdit applies an optimistic edit and returns the ticket that later
// commits or reverts it. Only the sender may edit; nothing changes on error.
// Several edits of one message may be in flight at once.
func (s *Store) BeginEdit(id, text string) (EditTicket, error) {
	text = strings.TrimSpace(text)
	s.mu.Lock()
	_, sl := s.find(id)
	if sl == nil || sl.hidden {
		s.mu.Unlock()
		return EditTicket{}, fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	if err := s.authorize(sl, Edited); err != nil {
		s.mu.Unlock()
		return EditTicket{}, err
	}
	if text == "" {
		s.mu.Unlock()
		return EditTicket{}, fmt.Errorf("%w: message text is empty", ErrValidation)
	}
	if len(sl.edits) == 0 {
		sl.baseText, sl.baseStatus = sl.msg.Text, sl.msg.Status
	}
	s.nextEdit++
	t := EditTicket{MessageID: id, Seq: s.nextEdit}
	sl.edits = append(sl.edits, pendingEdit{seq: t.Seq, text: text})
	sl.settleEdits()
	convID := sl.msg.ConversationID
	s.refreshPreview(convID)
	s.mu.Unlock()

	s.publish(EventThread, ThreadChange{ConversationID: convID, MessageID: id})
	return t, nil
}

// CommitEdit settles an edit with the server's copy. The confirmed text
// becomes the rollback target unless a later edit was already confirmed; the
// thread keeps showing a newer edit that is still in flight.
func (s *Store) CommitEdit(t EditTicket, confirmed Message) bool {
	s.mu.Lock()
	_, sl := s.find(t.MessageID)
	if sl == nil {
		s.mu.Unlock()
		return false
	}
	var text string
	for _, e := range sl.edits {
		if e.seq == t.Seq {
			text = e.text
		}
	}
	if !sl.takeEdit(t.Seq) {
		s.mu.Unlock()
		return false
	}
	if confirmed.Text != "" {
		text = confirmed.Text
	}
	if t.Seq > sl.baseSeq {
		sl.baseText, sl.baseStatus, sl.baseSeq = text, Edited, t.Seq
	}
	sl.settleEdits()
	convID := sl.msg.ConversationID
	s.refreshPreview(convID)
	s.mu.Unlock()

	s.publish(EventThread, ThreadChange{ConversationID: convID, MessageID: t.MessageID})
	return true
}

// RevertEdit drops a failed edit. The message falls back to the newest edit
// still in flight, or to the last state the server confirmed.
func (s *Store) RevertEdit(t EditTicket) bool {
	s.mu.Lock()
	_, sl := s.find(t.MessageID)
	if sl == nil || !sl.takeEdit(t.Seq) {
		s.mu.Unlock()
		return false
	}
	sl.settleEdits()
	convID := sl.msg.ConversationID
	s.refreshPreview(convID)
	s.mu.Unlock()

	s.publish(EventThread, ThreadChange{ConversationID: convID, MessageID: t.MessageID})
	return true
}

// EditsInFlight returns the number of unsettled edits of id.
func (s *Store) EditsInFlight(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, sl := s.find(id); sl != nil {
		return len(sl.edits)
	}
	return 0
}

// BeginDelete hides a message from the visible thread, keeping its slot so
// RevertDelete can restore it in place. Only the sender may delete.
func (s *Store) BeginDelete(id string) (Message, error) {
	s.mu.Lock()
	_, sl := s.find(id)
	if sl == nil || sl.hidden {
		s.mu.Unlock()
		return Message{}, fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	if err := s.authorize(sl, Deleted); err != nil {
		s.mu.Unlock()
		return Message{}, err
	}
	sl.hidden = true
	prior := sl.msg
	convID := sl.msg.ConversationID
	s.refreshPreview(convID)
	s.mu.Unlock()

	s.publish(EventThread, ThreadChange{ConversationID: convID, MessageID: id})
	return prior, nil
}

// CommitDelete marks a hidden message deleted.
func (s *Store) CommitDelete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, sl := s.find(id)
	if sl == nil || !sl.hidden || sl.msg.Status == Deleted {
		return false
	}
	sl.msg.Status = Deleted
	return true
}

// RevertDelete makes a hidden message visible again at its original position.
func (s *Store) RevertDelete(id string) bool {
	s.mu.Lock()
	_, sl := s.find(id)
	if sl == nil || !sl.hidden || sl.msg.Status == Deleted {
		s.mu.Unlock()
		return false
	}
	sl.hidden = false
	convID := sl.msg.ConversationID
	s.refreshPreview(convID)
	s.mu.Unlock()

	s.publish(EventThread, ThreadChange{ConversationID: convID, MessageID: id})
	return true
}

// MarkConversationMoved moves convID to the front, keeping the relative order
// of the others.
func (s *Store) MarkConversationMoved(convID string) bool {
	s.mu.Lock()
	moved := s.moveToFront(convID)
	s.mu.Unlock()
	if moved {
		s.publish(EventConversations, convID)
	}
	return moved
}

func (s *Store) moveToFront(convID string) bool {
	for i, id := range s.order {
		if id != convID {
			continue
		}
		copy(s.order[1:i+1], s.order[:i])
		s.order[0] = convID
		return true
	}
	return false
}

// ReceiveMessage ingests a message from another participant. The conversation
// moves to the front and gains an unread unless it is active.
func (s *Store) ReceiveMessage(m Message) bool {
	s.mu.Lock()
	c, ok := s.convs[m.ConversationID]
	if !ok || m.ID == "" {
		s.mu.Unlock()
		return false
	}
	if _, dup := s.owner[m.ID]; dup {
		s.mu.Unlock()
		return false
	}
	if m.Status == "" {
		m.Status = Sent
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}
	s.threads[m.ConversationID] = append(s.threads[m.ConversationID], &slot{msg: m})
	s.owner[m.ID] = m.ConversationID
	c.LastMessagePreview = Preview(m.Text, previewLength)
	c.LastMessageAt = m.Timestamp
	if s.active != m.ConversationID {
		c.UnreadCount++
	}
	s.moveToFront(m.ConversationID)
	s.mu.Unlock()

	s.publish(EventThread, ThreadChange{ConversationID: m.ConversationID, MessageID: m.ID})
	s.publish(EventConversations, m.ConversationID)
	return true
}

// AddConversation inserts a conversation created or joined by the user at the
// front of the list. An id already present is left unchanged.
func (s *Store) AddConversation(c Conversation) bool {
	if c.ID == "" {
		return false
	}
	s.mu.Lock()
	if _, dup := s.convs[c.ID]; dup {
		s.mu.Unlock()
		return false
	}
	if c.UnreadCount < 0 {
		c.UnreadCount = 0
	}
	s.convs[c.ID] = &c
	s.order = append([]string{c.ID}, s.order...)
	s.mu.Unlock()

	s.publish(EventConversations, c.ID)
	return true
}

// RemoveConversation drops a deleted or left conversation together with its
// thread. The selection is cleared when it pointed at id.
func (s *Store) RemoveConversation(id string) bool {
	s.mu.Lock()
	if _, ok := s.convs[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.convs, id)
	s.order = slices.DeleteFunc(s.order, func(x string) bool { return x == id })
	s.dropThread(id)
	deselected := s.active == id
	if deselected {
		s.active = ""
		s.loading = false
	}
	s.mu.Unlock()

	if deselected {
		s.publish(EventSelection, "")
	}
	s.publish(EventConversations, id)
	return true
}

// SetReactions replaces the reactions of a message with the server's list.
func (s *Store) SetReactions(id string, reactions []Reaction) bool {
	s.mu.Lock()
	_, sl := s.find(id)
	if sl == nil {
		s.mu.Unlock()
		return false
	}
	sl.msg.Reactions = slices.Clone(reactions)
	convID := sl.msg.ConversationID
	s.mu.Unlock()

	s.publish(EventThread, ThreadChange{ConversationID: convID, MessageID: id})
	return true
}

// refreshPreview recomputes the preview of convID from its last visible message.
// Threads that were never loaded keep the server-provided preview.
func (s *Store) refreshPreview(convID string) {
	c, ok := s.convs[convID]
	thread := s.threads[convID]
	if !ok || len(thread) == 0 {
		return
	}
	for i := len(thread) - 1; i >= 0; i-- {
		if thread[i].hidden {
			continue
		}
		c.LastMessagePreview = Preview(thread[i].msg.Text, previewLength)
		c.LastMessageAt = thread[i].msg.Timestamp
		return
	}
	c.LastMessagePreview = ""
	c.LastMessageAt = time.Time{}
}

func matchSearch(c *Conversation, q string) bool {
	if q == "" {
		return true
	}
	return containsFold(c.Name, q) || containsFold(c.LastMessagePreview, q)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

package huddle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/huddleapp/huddle/internal/chat"
	"github.com/huddleapp/huddle/internal/models"
	"github.com/huddleapp/huddle/internal/store"
)

// notificationPollInterval is how often the orchestrator refreshes the
// unread notification count from the server.
const notificationPollInterval = 30 * time.Second

// Notifier receives desktop notifications for messages that arrive while
// the user is not actively viewing the room they landed in.
type Notifier interface {
	Notify(title, body string)
}

// User identifies the local user driving the orchestrator.
type User struct {
	ID        string
	FirstName string
	LastName  string
	PhotoURL  string
}

// DisplayName returns the user's full name.
func (u User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Orchestrator drives a chat session for one user. It resolves the
// shared room, keeps room, message, presence and unread subscriptions
// alive, marks messages read while the panel is open, and polls the
// server for the unread notification count.
//
// All exported methods are safe for concurrent use.
type Orchestrator struct {
	chat     *chat.Service
	api      *Client
	user     User
	notifier Notifier
	log      zerolog.Logger

	mu            sync.Mutex
	started       bool
	open          bool
	minimized     bool
	activeRoom    string
	messages      []models.Message
	rooms         []models.Room
	presence      map[string]models.Presence
	team          []TeamMember
	notifCount    int64
	chatUnread    int
	msgUnsub      store.Unsubscribe
	sessionUnsubs []store.Unsubscribe
	sessionCtx    context.Context
	cancel        context.CancelFunc
}

// NewOrchestrator creates an orchestrator for one user. The notifier may
// be nil to disable desktop notifications.
func NewOrchestrator(chatSvc *chat.Service, api *Client, user User, notifier Notifier, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		chat:     chatSvc,
		api:      api,
		user:     user,
		notifier: notifier,
		log:      log.With().Str("component", "orchestrator").Logger(),
		presence: map[string]models.Presence{},
	}
}

// Start resolves the shared room, loads the team directory, wires up all
// session subscriptions, marks the user online and begins the
// notification poll loop. It is a no-op if already started.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return nil
	}

	generalID, err := o.chat.ResolveGeneralRoom(ctx)
	if err != nil {
		return err
	}

	sessionCtx, cancel := context.WithCancel(context.Background())

	roomsCh, roomsUnsub, err := o.chat.SubscribeUserRooms(sessionCtx, o.user.ID)
	if err != nil {
		cancel()
		return err
	}

	presenceCh, presenceUnsub, err := o.chat.SubscribePresence(sessionCtx)
	if err != nil {
		roomsUnsub()
		cancel()
		return err
	}

	// The closed-widget badge follows the shared room's unread count.
	unreadCh, unreadUnsub, err := o.chat.SubscribeUnreadCount(sessionCtx, generalID, o.user.ID)
	if err != nil {
		presenceUnsub()
		roomsUnsub()
		cancel()
		return err
	}

	o.sessionCtx = sessionCtx
	o.cancel = cancel
	o.sessionUnsubs = []store.Unsubscribe{roomsUnsub, presenceUnsub, unreadUnsub}
	o.started = true
	o.activeRoom = ""

	go o.consumeRooms(sessionCtx, roomsCh)
	go o.consumePresence(sessionCtx, presenceCh)
	go o.consumeChatUnread(unreadCh)
	go o.pollNotifications(sessionCtx)

	// The directory rarely changes mid-session. Loaded once; a failure
	// leaves recipient names empty rather than aborting the session.
	go o.loadTeam()

	if err := o.chat.AppStarted(ctx, o.user.ID); err != nil {
		o.log.Warn().Err(err).Msg("presence update failed")
	}

	// Land in the shared room
	return o.openRoomLocked(ctx, generalID)
}

// Stop tears down all subscriptions and marks the user offline. It is a
// no-op if not started.
func (o *Orchestrator) Stop(ctx context.Context) {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return
	}
	o.started = false
	if o.msgUnsub != nil {
		o.msgUnsub()
		o.msgUnsub = nil
	}
	for _, unsub := range o.sessionUnsubs {
		unsub()
	}
	o.sessionUnsubs = nil
	o.cancel()
	o.mu.Unlock()

	if err := o.chat.Unloaded(ctx, o.user.ID); err != nil {
		o.log.Warn().Err(err).Msg("presence update failed")
	}
}

// TabHidden marks the user away; the embedder calls it from the page's
// visibility-change signal.
func (o *Orchestrator) TabHidden(ctx context.Context) error {
	return o.chat.TabHidden(ctx, o.user.ID)
}

// TabVisible marks the user online again.
func (o *Orchestrator) TabVisible(ctx context.Context) error {
	return o.chat.TabVisible(ctx, o.user.ID)
}

// OpenRoom switches the active room, replacing the message subscription.
// Unread messages in the new room are marked read if the panel is open
// and not minimized.
func (o *Orchestrator) OpenRoom(ctx context.Context, roomID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.started {
		return nil
	}
	return o.openRoomLocked(ctx, roomID)
}

// OpenDirectRoom resolves (creating if needed) the direct room with
// another user and switches to it.
func (o *Orchestrator) OpenDirectRoom(ctx context.Context, other TeamMember) error {
	roomID, err := o.chat.ResolveDirectRoom(ctx, o.user.ID, o.user.DisplayName(), other.ID, other.DisplayName())
	if err != nil {
		return err
	}
	return o.OpenRoom(ctx, roomID)
}

// SetOpen records whether the chat panel is open. Opening refreshes the
// notification count immediately and marks visible messages read.
func (o *Orchestrator) SetOpen(ctx context.Context, open bool) {
	o.mu.Lock()
	o.open = open
	if open && !o.minimized {
		o.markVisibleReadLocked(ctx)
	}
	o.mu.Unlock()

	if open {
		o.refreshNotifCount()
	}
}

// SetMinimized records whether the open panel is minimized. Restoring an
// open panel marks visible messages read.
func (o *Orchestrator) SetMinimized(ctx context.Context, minimized bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.minimized = minimized
	if o.open && !minimized {
		o.markVisibleReadLocked(ctx)
	}
}

// Send posts a message to the active room.
func (o *Orchestrator) Send(ctx context.Context, text string) error {
	o.mu.Lock()
	roomID := o.activeRoom
	o.mu.Unlock()
	if roomID == "" {
		return errors.New("no active room")
	}
	_, err := o.chat.Send(ctx, roomID, text, o.user.ID, o.user.DisplayName(), o.user.PhotoURL)
	return err
}

// Messages returns the current window of the active room.
func (o *Orchestrator) Messages() []models.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.Message, len(o.messages))
	copy(out, o.messages)
	return out
}

// Rooms returns the user's current room list.
func (o *Orchestrator) Rooms() []models.Room {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.Room, len(o.rooms))
	copy(out, o.rooms)
	return out
}

// Presence returns the last seen presence map.
func (o *Orchestrator) Presence() map[string]models.Presence {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]models.Presence, len(o.presence))
	for k, v := range o.presence {
		out[k] = v
	}
	return out
}

// Team returns the workspace directory loaded at startup.
func (o *Orchestrator) Team() []TeamMember {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]TeamMember, len(o.team))
	copy(out, o.team)
	return out
}

// NotificationCount returns the most recently polled unread
// notification count.
func (o *Orchestrator) NotificationCount() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.notifCount
}

// ChatUnreadCount returns the shared room's live unread count, the badge
// shown while the widget is closed.
func (o *Orchestrator) ChatUnreadCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.chatUnread
}

// openRoomLocked swaps the message subscription to roomID. Caller holds
// o.mu.
func (o *Orchestrator) openRoomLocked(ctx context.Context, roomID string) error {
	if o.msgUnsub != nil {
		o.msgUnsub()
		o.msgUnsub = nil
	}

	msgCh, msgUnsub, err := o.chat.Subscribe(o.sessionCtx, roomID, chat.DefaultWindow)
	if err != nil {
		return err
	}

	o.activeRoom = roomID
	o.messages = nil
	o.msgUnsub = msgUnsub

	go o.consumeMessages(roomID, msgCh)
	return nil
}

// markVisibleReadLocked marks the active room's unread messages as read.
// Caller holds o.mu.
func (o *Orchestrator) markVisibleReadLocked(ctx context.Context) {
	var unread []string
	for _, m := range o.messages {
		if m.UnreadFor(o.user.ID) {
			unread = append(unread, m.ID)
		}
	}
	if len(unread) > 0 {
		o.chat.MarkRead(ctx, unread, o.user.ID)
	}
}

func (o *Orchestrator) consumeMessages(roomID string, ch <-chan []models.Message) {
	for snapshot := range ch {
		o.mu.Lock()
		if o.activeRoom != roomID {
			o.mu.Unlock()
			return
		}
		arrivals := newArrivals(o.messages, snapshot)
		o.messages = snapshot
		viewing := o.open && !o.minimized
		if viewing {
			o.markVisibleReadLocked(context.Background())
		}
		notifier := o.notifier
		o.mu.Unlock()

		if viewing || notifier == nil {
			continue
		}
		for _, m := range arrivals {
			if m.SenderID == o.user.ID {
				continue
			}
			notifier.Notify(m.SenderName, m.Text)
		}
	}
}

func (o *Orchestrator) consumeRooms(ctx context.Context, ch <-chan []models.Room) {
	for snapshot := range ch {
		o.mu.Lock()
		o.rooms = snapshot
		o.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
	}
}

func (o *Orchestrator) consumeChatUnread(ch <-chan int) {
	for count := range ch {
		o.mu.Lock()
		o.chatUnread = count
		o.mu.Unlock()
	}
}

func (o *Orchestrator) consumePresence(ctx context.Context, ch <-chan map[string]models.Presence) {
	for snapshot := range ch {
		o.mu.Lock()
		o.presence = snapshot
		o.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
	}
}

func (o *Orchestrator) pollNotifications(ctx context.Context) {
	o.refreshNotifCount()

	ticker := time.NewTicker(notificationPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.refreshNotifCount()
		}
	}
}

func (o *Orchestrator) refreshNotifCount() {
	if o.api == nil {
		return
	}
	count, err := o.api.UnreadCount()
	if err != nil {
		o.log.Debug().Err(err).Msg("notification count refresh failed")
		return
	}
	o.mu.Lock()
	o.notifCount = count
	o.mu.Unlock()
}

func (o *Orchestrator) loadTeam() {
	if o.api == nil {
		return
	}
	members, err := o.api.ListTeam()
	if err != nil {
		o.log.Warn().Err(err).Msg("team directory load failed")
		return
	}
	o.mu.Lock()
	o.team = members
	o.mu.Unlock()
}

// newArrivals returns the messages in next that were not in prev.
func newArrivals(prev, next []models.Message) []models.Message {
	seen := make(map[string]struct{}, len(prev))
	for _, m := range prev {
		seen[m.ID] = struct{}{}
	}
	var out []models.Message
	for _, m := range next {
		if _, ok := seen[m.ID]; !ok {
			out = append(out, m)
		}
	}
	return out
}

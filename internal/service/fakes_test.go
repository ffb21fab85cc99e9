package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dkovacev/chatter/internal/domain"
	"github.com/dkovacev/chatter/internal/identity"
	"github.com/dkovacev/chatter/internal/repository"
	"github.com/dkovacev/chatter/pkg/phone"
)

// In-memory fakes mirroring the contracts of the postgres repositories,
// including the pair-key uniqueness guarantee the resolver depends on.

type fakeDirectory struct {
	normalizer *phone.Normalizer

	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		normalizer: phone.NewNormalizer("91"),
		accounts:   make(map[string]*domain.Account),
	}
}

func (d *fakeDirectory) addAccount(phoneID, name string) *domain.Account {
	d.mu.Lock()
	defer d.mu.Unlock()
	acct := &domain.Account{
		ID:      uuid.New(),
		PhoneID: phoneID,
		Name:    name,
	}
	d.accounts[phoneID] = acct
	return acct
}

func (d *fakeDirectory) rename(phoneID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[phoneID].Name = name
}

func (d *fakeDirectory) Canonicalize(identifier string) (string, error) {
	return d.normalizer.Normalize(identifier)
}

func (d *fakeDirectory) Resolve(ctx context.Context, identifier string) (*domain.Account, error) {
	id, err := d.Canonicalize(identifier)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	acct, ok := d.accounts[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	cp := *acct
	return &cp, nil
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *account
	r.accounts[account.PhoneID] = &cp
	return nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, acct := range r.accounts {
		if acct.ID == id {
			cp := *acct
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) GetByPhoneID(_ context.Context, phoneID string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[phoneID]
	if !ok {
		return nil, nil
	}
	cp := *acct
	return &cp, nil
}

func (r *fakeAccountRepo) SetPresence(_ context.Context, phoneID string, online bool, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if acct, ok := r.accounts[phoneID]; ok {
		acct.IsOnline = online
		acct.LastSeen = lastSeen
	}
	return nil
}

type fakeConversationRepo struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*domain.Conversation
	byKey map[string]uuid.UUID
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		byID:  make(map[uuid.UUID]*domain.Conversation),
		byKey: make(map[string]uuid.UUID),
	}
}

func (r *fakeConversationRepo) Create(_ context.Context, conv *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[conv.PairKey]; exists {
		return repository.ErrDuplicatePair
	}
	cp := copyConversation(conv)
	r.byID[conv.ID] = cp
	r.byKey[conv.PairKey] = conv.ID
	return nil
}

func (r *fakeConversationRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return copyConversation(conv), nil
}

func (r *fakeConversationRepo) GetByPairKey(_ context.Context, pairKey string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byKey[pairKey]
	if !ok {
		return nil, nil
	}
	return copyConversation(r.byID[id]), nil
}

func (r *fakeConversationRepo) ListForParticipant(_ context.Context, phoneID string) ([]domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var convs []domain.Conversation
	for _, conv := range r.byID {
		if conv.IsArchived || conv.LastMessage == nil || !conv.HasParticipant(phoneID) {
			continue
		}
		convs = append(convs, *copyConversation(conv))
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].LastMessage.Timestamp.After(convs[j].LastMessage.Timestamp)
	})
	return convs, nil
}

func (r *fakeConversationRepo) SetLastMessage(_ context.Context, id uuid.UUID, snap domain.LastMessage, incrementUnread bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv := r.byID[id]
	conv.LastMessage = &snap
	if incrementUnread {
		conv.UnreadCount++
	}
	conv.UpdatedAt = time.Now()
	return nil
}

func (r *fakeConversationRepo) ClearUnread(_ context.Context, id uuid.UUID, markLastRead bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv := r.byID[id]
	conv.UnreadCount = 0
	if markLastRead && conv.LastMessage != nil {
		conv.LastMessage.Status = domain.StatusRead
	}
	conv.UpdatedAt = time.Now()
	return nil
}

func (r *fakeConversationRepo) UpdateParticipants(_ context.Context, id uuid.UUID, participants []domain.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv := r.byID[id]
	conv.Participants = append([]domain.Participant(nil), participants...)
	conv.UpdatedAt = time.Now()
	return nil
}

func (r *fakeConversationRepo) Archive(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id].IsArchived = true
	return nil
}

func (r *fakeConversationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv, ok := r.byID[id]; ok {
		delete(r.byKey, conv.PairKey)
		delete(r.byID, id)
	}
	return nil
}

func (r *fakeConversationRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func copyConversation(conv *domain.Conversation) *domain.Conversation {
	cp := *conv
	cp.Participants = append([]domain.Participant(nil), conv.Participants...)
	if conv.LastMessage != nil {
		snap := *conv.LastMessage
		cp.LastMessage = &snap
	}
	return &cp
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []domain.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeMessageRepo) ListPage(_ context.Context, conversationID uuid.UUID, page, pageSize int) ([]domain.Message, int64, error) {
	all := r.byConversation(conversationID)

	offset := (page - 1) * pageSize
	if offset >= len(all) {
		return nil, int64(len(all)), nil
	}
	end := offset + pageSize
	if end > len(all) {
		end = len(all)
	}
	return append([]domain.Message(nil), all[offset:end]...), int64(len(all)), nil
}

func (r *fakeMessageRepo) Newest(_ context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	all := r.byConversation(conversationID)
	if len(all) == 0 {
		return nil, nil
	}
	msg := all[0]
	return &msg, nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, conversationID uuid.UUID, recipient string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var updated int64
	for i := range r.messages {
		m := &r.messages[i]
		if m.ConversationID != conversationID || m.To != recipient {
			continue
		}
		if m.Status == domain.StatusSent || m.Status == domain.StatusDelivered {
			m.Status = domain.StatusRead
			updated++
		}
	}
	return updated, nil
}

func (r *fakeMessageRepo) DeleteByConversation(_ context.Context, conversationID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []domain.Message
	var removed int64
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	r.messages = kept
	return removed, nil
}

// byConversation returns the conversation's messages newest first.
func (r *fakeMessageRepo) byConversation(conversationID uuid.UUID) []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []domain.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			all = append(all, m)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	return all
}

type notifierCall struct {
	event          string
	conversationID uuid.UUID
	updated        int64
	reader         string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
}

func (n *fakeNotifier) MessageCreated(conversationID uuid.UUID, _ *domain.Message) {
	n.record(notifierCall{event: "message:created", conversationID: conversationID})
}

func (n *fakeNotifier) ConversationUpdated(conv *domain.Conversation) {
	n.record(notifierCall{event: "conversation:updated", conversationID: conv.ID})
}

func (n *fakeNotifier) MessagesRead(conv *domain.Conversation, readerID string, updated int64) {
	n.record(notifierCall{event: "messages:marked-as-read", conversationID: conv.ID, reader: readerID, updated: updated})
}

func (n *fakeNotifier) ConversationDeleted(conversationID uuid.UUID) {
	n.record(notifierCall{event: "conversation:deleted", conversationID: conversationID})
}

func (n *fakeNotifier) record(call notifierCall) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, call)
}

func (n *fakeNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, c := range n.calls {
		out = append(out, c.event)
	}
	return out
}

func (n *fakeNotifier) last(event string) (notifierCall, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.calls) - 1; i >= 0; i-- {
		if n.calls[i].event == event {
			return n.calls[i], true
		}
	}
	return notifierCall{}, false
}

type fakePresence struct {
	mu     sync.Mutex
	online map[string]bool
}

func newFakePresence() *fakePresence {
	return &fakePresence{online: make(map[string]bool)}
}

func (p *fakePresence) setOnline(phoneID string, online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[phoneID] = online
}

func (p *fakePresence) IsOnline(phoneID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[phoneID]
}

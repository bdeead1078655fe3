package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
	"github.com/effectivemobile/bank-cards/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory store shared by the card and user stubs
// ---------------------------------------------------------------------------

type memStore struct {
	txMu  sync.Mutex // serialises transactions, standing in for row locks
	mu    sync.Mutex
	cards map[uuid.UUID]*domain.Card
	users map[uuid.UUID]*domain.User

	saveErr error // if set, Save returns this error
	txCount int
}

func newMemStore() *memStore {
	return &memStore{
		cards: make(map[uuid.UUID]*domain.Card),
		users: make(map[uuid.UUID]*domain.User),
	}
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, repos ports.TxRepositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	m.txCount++
	snapshot := make(map[uuid.UUID]*domain.Card, len(m.cards))
	for id, c := range m.cards {
		snapshot[id] = cloneCard(c)
	}
	m.mu.Unlock()

	if err := fn(ctx, ports.TxRepositories{Cards: &stubCardRepo{m}, Users: &stubUserRepo{m}}); err != nil {
		m.mu.Lock()
		m.cards = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) addUser(username string, roles ...domain.Role) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(roles) == 0 {
		roles = []domain.Role{domain.RoleUser}
	}
	u := &domain.User{ID: uuid.New(), Username: username, Roles: roles}
	m.users[u.ID] = u
	return cloneUser(u)
}

func (m *memStore) card(id uuid.UUID) *domain.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneCard(m.cards[id])
}

func cloneCard(c *domain.Card) *domain.Card {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Roles = append([]domain.Role(nil), u.Roles...)
	return &clone
}

// ---------------------------------------------------------------------------
// Card repository stub
// ---------------------------------------------------------------------------

type stubCardRepo struct{ m *memStore }

func (r *stubCardRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Card, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.cards[id]
	if !ok {
		return nil, domain.ErrCardNotFound
	}
	return cloneCard(c), nil
}

func (r *stubCardRepo) FindByIDAndOwner(_ context.Context, id, ownerID uuid.UUID) (*domain.Card, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.cards[id]
	if !ok || c.OwnerID != ownerID {
		return nil, domain.ErrCardNotFound
	}
	return cloneCard(c), nil
}

// List applies the same filters the SQL repository builds.
func (r *stubCardRepo) List(_ context.Context, f ports.CardFilter) ([]*domain.Card, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var matched []*domain.Card
	for _, c := range r.m.cards {
		if f.OwnerID != nil && c.OwnerID != *f.OwnerID {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.OwnerUsername != "" {
			owner := r.m.users[c.OwnerID]
			if owner == nil || !strings.Contains(strings.ToLower(owner.Username), strings.ToLower(f.OwnerUsername)) {
				continue
			}
		}
		matched = append(matched, cloneCard(c))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID.String() < matched[j].ID.String() })

	total := int64(len(matched))
	skip := f.Page.Offset()
	if skip > len(matched) {
		return []*domain.Card{}, total, nil
	}
	end := skip + f.Page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

func (r *stubCardRepo) Create(_ context.Context, card *domain.Card) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.cards {
		if c.PANEncrypted == card.PANEncrypted {
			return errors.New("duplicate pan_encrypted")
		}
	}
	r.m.cards[card.ID] = cloneCard(card)
	return nil
}

func (r *stubCardRepo) Save(_ context.Context, card *domain.Card) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.saveErr != nil {
		return r.m.saveErr
	}
	if _, ok := r.m.cards[card.ID]; !ok {
		return domain.ErrCardNotFound
	}
	r.m.cards[card.ID] = cloneCard(card)
	return nil
}

func (r *stubCardRepo) DeleteByID(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.cards[id]; !ok {
		return domain.ErrCardNotFound
	}
	delete(r.m.cards, id)
	return nil
}

func (r *stubCardRepo) CountByStatus(_ context.Context) (map[domain.CardStatus]int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make(map[domain.CardStatus]int64)
	for _, c := range r.m.cards {
		out[c.Status]++
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// User repository stub
// ---------------------------------------------------------------------------

type stubUserRepo struct{ m *memStore }

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Username == user.Username {
			return domain.ErrUserExists
		}
	}
	r.m.users[user.ID] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) UpdateRoles(_ context.Context, id uuid.UUID, roles []domain.Role) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Roles = append([]domain.Role(nil), roles...)
	return cloneUser(u), nil
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]*domain.User, 0, len(r.m.users))
	for _, u := range r.m.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// DeleteByID cascades to the user's cards like the foreign key does.
func (r *stubUserRepo) DeleteByID(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.m.users, id)
	for cid, c := range r.m.cards {
		if c.OwnerID == id {
			delete(r.m.cards, cid)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Publisher and cipher stubs
// ---------------------------------------------------------------------------

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LedgerEvent
}

func (p *recordingPublisher) Publish(ev domain.LedgerEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) snapshot() []domain.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.LedgerEvent(nil), p.events...)
}

type failingCipher struct{}

func (failingCipher) Encrypt(string) (string, error) { return "", domain.ErrCryptoFailure }
func (failingCipher) Decrypt(string) (string, error) { return "", domain.ErrCryptoFailure }

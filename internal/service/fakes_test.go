package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"stokvel-ledger/internal/core/domain"
	"stokvel-ledger/internal/core/ports"
	"stokvel-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- serializing transactor ---

// fakeTransactor emulates the row-lock guarantees the postgres adapter gets
// from SELECT FOR UPDATE by funneling all transactions through one mutex.
// Begin blocks until the previous transaction commits or rolls back.
type fakeTransactor struct {
	mu sync.Mutex
}

func newFakeTransactor() *fakeTransactor {
	return &fakeTransactor{}
}

func (t *fakeTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &fakeTx{transactor: t}, nil
}

// fakeTx releases the transactor mutex exactly once, on whichever of
// Commit/Rollback runs first. Repositories register undo closures for every
// mutation they apply through it; Rollback replays them in reverse so a
// failed attempt leaves no trace, mirroring a real database rollback.
type fakeTx struct {
	transactor *fakeTransactor
	once       sync.Once
	undo       []func()
}

func (t *fakeTx) journal(undo func()) {
	t.undo = append(t.undo, undo)
}

func (t *fakeTx) release() {
	t.once.Do(t.transactor.mu.Unlock)
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *fakeTx) Commit(ctx context.Context) error {
	t.undo = nil
	t.release()
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.release()
	return nil
}

// journalUndo registers a revert with the enclosing fake transaction. Writes
// made outside any transaction stick immediately.
func journalUndo(tx pgx.Tx, undo func()) {
	if ft, ok := tx.(*fakeTx); ok {
		ft.journal(undo)
	}
}
func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                               { return nil }

// --- wallet repo ---

type fakeWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *fakeWalletRepo) GetOrCreate(ctx context.Context, userID uuid.UUID, currency string) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.UserID == userID {
			cp := *w
			return &cp, nil
		}
	}
	now := time.Now().UTC()
	w := &domain.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.wallets[w.ID] = w
	cp := *w
	return &cp, nil
}

func (r *fakeWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.UserID == userID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeWalletRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balanceCents int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	prevBalance, prevUpdated := w.BalanceCents, w.UpdatedAt
	journalUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		w.BalanceCents = prevBalance
		w.UpdatedAt = prevUpdated
	})
	w.BalanceCents = balanceCents
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// --- transaction repo ---

type fakeTransactionRepo struct {
	mu           sync.RWMutex
	transactions []*domain.Transaction
	references   map[string]struct{}
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{references: make(map[string]struct{})}
}

func (r *fakeTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.references[t.Reference]; exists {
		return ports.ErrDuplicateReference
	}
	r.references[t.Reference] = struct{}{}
	cp := *t
	r.transactions = append(r.transactions, &cp)
	journalUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.references, cp.Reference)
		for i, existing := range r.transactions {
			if existing.ID == cp.ID {
				r.transactions = append(r.transactions[:i], r.transactions[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (r *fakeTransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.transactions {
		if t.Reference == reference {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeTransactionRepo) SumCompletedInWindow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, txType domain.TransactionType, from, to time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum int64
	for _, t := range r.transactions {
		if t.UserID != userID || t.Type != txType || t.Status != domain.TransactionStatusCompleted {
			continue
		}
		if t.CreatedAt.Before(from) || !t.CreatedAt.Before(to) {
			continue
		}
		sum += t.AmountCents
	}
	return sum, nil
}

func (r *fakeTransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Transaction
	for _, t := range r.transactions {
		if t.UserID != params.UserID {
			continue
		}
		if params.Type != nil && t.Type != *params.Type {
			continue
		}
		if params.Status != nil && t.Status != *params.Status {
			continue
		}
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.Transaction{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *fakeTransactionRepo) all() []domain.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Transaction, 0, len(r.transactions))
	for _, t := range r.transactions {
		out = append(out, *t)
	}
	return out
}

// --- user directory ---

type fakeUserDirectory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserDirectory() *fakeUserDirectory {
	return &fakeUserDirectory{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserDirectory) add(u *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *fakeUserDirectory) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserDirectory) GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.AccountNumber == accountNumber {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// --- group repo ---

type fakeGroupRepo struct {
	mu      sync.RWMutex
	groups  map[uuid.UUID]*domain.Group
	members map[uuid.UUID][]*domain.GroupMember
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{
		groups:  make(map[uuid.UUID]*domain.Group),
		members: make(map[uuid.UUID][]*domain.GroupMember),
	}
}

func (r *fakeGroupRepo) add(g *domain.Group, members ...*domain.GroupMember) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[g.ID] = g
	r.members[g.ID] = append(r.members[g.ID], members...)
}

func (r *fakeGroupRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (r *fakeGroupRepo) GetMember(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members[groupID] {
		if m.UserID == userID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

// --- contribution repo ---

type fakeContributionRepo struct {
	mu            sync.RWMutex
	contributions []*domain.Contribution
}

func newFakeContributionRepo() *fakeContributionRepo {
	return &fakeContributionRepo{}
}

func (r *fakeContributionRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.Contribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.contributions = append(r.contributions, &cp)
	journalUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, existing := range r.contributions {
			if existing.ID == cp.ID {
				r.contributions = append(r.contributions[:i], r.contributions[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (r *fakeContributionRepo) ListByMember(ctx context.Context, memberID uuid.UUID) ([]domain.Contribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Contribution
	for _, c := range r.contributions {
		if c.MemberID == memberID {
			out = append(out, *c)
		}
	}
	return out, nil
}

// --- claim repo ---

type fakeClaimRepo struct {
	mu     sync.RWMutex
	claims map[uuid.UUID]*domain.Claim
}

func newFakeClaimRepo() *fakeClaimRepo {
	return &fakeClaimRepo{claims: make(map[uuid.UUID]*domain.Claim)}
}

func (r *fakeClaimRepo) Create(ctx context.Context, c *domain.Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.claims[c.ID] = &cp
	return nil
}

func (r *fakeClaimRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.claims[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeClaimRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, c := range r.claims {
		if c.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *fakeClaimRepo) CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, c := range r.claims {
		if c.UserID == userID && !c.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeClaimRepo) UpdateDecision(ctx context.Context, id uuid.UUID, status domain.ClaimStatus, reason *string, decidedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[id]
	if !ok || c.IsDecided() {
		return ports.ErrClaimDecided
	}
	c.Status = status
	c.RejectionReason = reason
	c.DecidedAt = &decidedAt
	return nil
}

func (r *fakeClaimRepo) List(ctx context.Context, params ports.ClaimListParams) ([]domain.Claim, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Claim
	for _, c := range r.claims {
		if params.UserID != nil && c.UserID != *params.UserID {
			continue
		}
		if params.Status != nil && c.Status != *params.Status {
			continue
		}
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.Claim{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

// --- idempotency repo + cache ---

type fakeIdempotencyRepo struct {
	mu   sync.RWMutex
	logs map[string]*domain.IdempotencyLog
}

func newFakeIdempotencyRepo() *fakeIdempotencyRepo {
	return &fakeIdempotencyRepo{logs: make(map[string]*domain.IdempotencyLog)}
}

func (r *fakeIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[log.Key] = log
	journalUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.logs, log.Key)
	})
	return nil
}

func (r *fakeIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.logs[key]
	if !ok {
		return nil, nil
	}
	return l, nil
}

type fakeIdempotencyCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func newFakeIdempotencyCache() *fakeIdempotencyCache {
	return &fakeIdempotencyCache{entries: make(map[string][]byte)}
}

func (c *fakeIdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key], nil
}

func (c *fakeIdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

// --- event publisher ---

type recordedEvent struct {
	Stream string
	Type   string
	Data   any
}

type fakeEventPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func newFakeEventPublisher() *fakeEventPublisher {
	return &fakeEventPublisher{}
}

func (p *fakeEventPublisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Stream: stream, Type: eventType, Data: data})
	return nil
}

func (p *fakeEventPublisher) byType(eventType string) []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []recordedEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// --- funding source ---

type fakeFundingSource struct {
	declineAll bool
}

func (f *fakeFundingSource) Authorize(ctx context.Context, userID uuid.UUID, cardRef string, amount money.Money) error {
	if f.declineAll {
		return fmt.Errorf("card declined")
	}
	return nil
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stokvel-ledger/config"
	"stokvel-ledger/internal/core/domain"
	"stokvel-ledger/internal/core/ports"
	"stokvel-ledger/pkg/apperror"
	"stokvel-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const idempotencyTTL = 24 * time.Hour

// LedgerServiceImpl implements ports.LedgerService. Every operation is one
// database transaction spanning the limit-window read, the balance
// mutation(s) and the transaction-record insert, with per-wallet row locks.
type LedgerServiceImpl struct {
	walletRepo  ports.WalletRepository
	txRepo      ports.TransactionRepository
	userDir     ports.UserDirectory
	groupRepo   ports.GroupRepository
	contribRepo ports.ContributionRepository
	idempRepo   ports.IdempotencyRepository
	idempCache  ports.IdempotencyCache
	funding     ports.FundingSource
	publisher   ports.EventPublisher
	transactor  ports.DBTransactor
	policy      *LimitPolicy
	limits      config.LimitsConfig
	log         zerolog.Logger

	now func() time.Time // overridable in tests
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	userDir ports.UserDirectory,
	groupRepo ports.GroupRepository,
	contribRepo ports.ContributionRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	funding ports.FundingSource,
	publisher ports.EventPublisher,
	transactor ports.DBTransactor,
	limits config.LimitsConfig,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo:  walletRepo,
		txRepo:      txRepo,
		userDir:     userDir,
		groupRepo:   groupRepo,
		contribRepo: contribRepo,
		idempRepo:   idempRepo,
		idempCache:  idempCache,
		funding:     funding,
		publisher:   publisher,
		transactor:  transactor,
		policy:      NewLimitPolicy(limits),
		limits:      limits,
		log:         log,
		now:         time.Now,
	}
}

// Deposit credits a wallet from an external funding source.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, req ports.DepositRequest) (*domain.Transaction, error) {
	if err := s.validateAmount(req.Amount); err != nil {
		return nil, err
	}

	if cached, err := s.checkIdempotency(ctx, req.UserID, "deposit", req.IdempotencyKey); err != nil {
		return nil, err
	} else if cached != nil {
		return cached, nil
	}

	// Funding-source check is an opaque yes/no from an external collaborator.
	if err := s.funding.Authorize(ctx, req.UserID, req.CardRef, req.Amount); err != nil {
		return nil, apperror.ErrFundingSourceInvalid()
	}

	wallet, err := s.walletRepo.GetOrCreate(ctx, req.UserID, s.limits.Currency)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get or create wallet: %w", err))
	}

	description := req.Description
	if description == "" {
		description = "Deposit via card " + req.CardRef
	}

	var txn *domain.Transaction
	err = s.withReferenceRetry(ctx, func(ctx context.Context) error {
		txn = nil
		reference := NewReference() // before any lock

		dbTx, err := s.transactor.Begin(ctx)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		locked, err := s.walletRepo.GetForUpdate(ctx, dbTx, wallet.ID)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
		}
		if locked == nil {
			return apperror.ErrWalletNotFound()
		}

		from, to := s.policy.DayWindow(s.now())
		todayCents, err := s.txRepo.SumCompletedInWindow(ctx, dbTx, req.UserID, domain.TransactionTypeDeposit, from, to)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("sum deposits: %w", err))
		}
		if err := s.policy.CheckDeposit(req.Amount, todayCents); err != nil {
			return err
		}

		if err := s.walletRepo.UpdateBalance(ctx, dbTx, locked.ID, locked.BalanceCents+req.Amount.Cents); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("credit wallet: %w", err))
		}

		now := s.now().UTC()
		txn = &domain.Transaction{
			ID:             uuid.New(),
			UserID:         req.UserID,
			WalletID:       locked.ID,
			Type:           domain.TransactionTypeDeposit,
			AmountCents:    req.Amount.Cents,
			FeeCents:       0,
			NetAmountCents: req.Amount.Cents,
			Currency:       req.Amount.Currency,
			Status:         domain.TransactionStatusCompleted,
			Reference:      reference,
			Description:    description,
			CreatedAt:      now,
			CompletedAt:    &now,
		}
		if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
			return err // ErrDuplicateReference triggers a retry
		}

		if err := s.saveIdempotency(ctx, dbTx, req.UserID, "deposit", req.IdempotencyKey, txn.ID, txn.CreatedAt, txn); err != nil {
			return err
		}

		if err := dbTx.Commit(ctx); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, req.UserID, "deposit", req.IdempotencyKey, txn, txn)

	s.log.Info().
		Str("reference", txn.Reference).
		Str("user_id", req.UserID.String()).
		Int64("amount_cents", req.Amount.Cents).
		Msg("deposit completed")

	return txn, nil
}

// Withdraw debits a wallet to an external bank account, charging the
// configured percentage fee on top of the requested amount.
func (s *LedgerServiceImpl) Withdraw(ctx context.Context, req ports.WithdrawRequest) (*domain.Transaction, error) {
	if err := s.validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := s.policy.CheckWithdrawal(req.Amount); err != nil {
		return nil, err
	}

	if cached, err := s.checkIdempotency(ctx, req.UserID, "withdraw", req.IdempotencyKey); err != nil {
		return nil, err
	} else if cached != nil {
		return cached, nil
	}

	fee := req.Amount.MulBasisPoints(s.limits.WithdrawalFeeBps)
	total, err := req.Amount.Add(fee)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	wallet, err := s.walletRepo.GetOrCreate(ctx, req.UserID, s.limits.Currency)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get or create wallet: %w", err))
	}

	description := req.Description
	if description == "" && len(req.BankAccountNumber) >= 4 {
		description = fmt.Sprintf("Withdrawal to bank account ending in %s (Fee: R%s)",
			req.BankAccountNumber[len(req.BankAccountNumber)-4:], fee.String())
	}

	var txn *domain.Transaction
	err = s.withReferenceRetry(ctx, func(ctx context.Context) error {
		txn = nil
		reference := NewReference()

		dbTx, err := s.transactor.Begin(ctx)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		locked, err := s.walletRepo.GetForUpdate(ctx, dbTx, wallet.ID)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
		}
		if locked == nil {
			return apperror.ErrWalletNotFound()
		}

		if locked.BalanceCents < total.Cents {
			return apperror.ErrInsufficientFunds()
		}

		if err := s.walletRepo.UpdateBalance(ctx, dbTx, locked.ID, locked.BalanceCents-total.Cents); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("debit wallet: %w", err))
		}

		now := s.now().UTC()
		txn = &domain.Transaction{
			ID:             uuid.New(),
			UserID:         req.UserID,
			WalletID:       locked.ID,
			Type:           domain.TransactionTypeWithdrawal,
			AmountCents:    req.Amount.Cents,
			FeeCents:       fee.Cents,
			NetAmountCents: -total.Cents,
			Currency:       req.Amount.Currency,
			Status:         domain.TransactionStatusCompleted,
			Reference:      reference,
			Description:    description,
			CreatedAt:      now,
			CompletedAt:    &now,
		}
		if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
			return err
		}

		if err := s.saveIdempotency(ctx, dbTx, req.UserID, "withdraw", req.IdempotencyKey, txn.ID, txn.CreatedAt, txn); err != nil {
			return err
		}

		if err := dbTx.Commit(ctx); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, req.UserID, "withdraw", req.IdempotencyKey, txn, txn)

	s.log.Info().
		Str("reference", txn.Reference).
		Str("user_id", req.UserID.String()).
		Int64("amount_cents", req.Amount.Cents).
		Int64("fee_cents", fee.Cents).
		Msg("withdrawal completed")

	return txn, nil
}

// Transfer moves money between two user wallets. Both transaction rows and
// both balance mutations commit together or not at all.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TransferResult, error) {
	if err := s.validateAmount(req.Amount); err != nil {
		return nil, err
	}

	if raw, err := s.replayPayload(ctx, req.SenderID, "transfer", req.IdempotencyKey); err != nil {
		return nil, err
	} else if raw != nil {
		return unmarshalTransferResult(raw)
	}

	recipient, err := s.userDir.GetByAccountNumber(ctx, req.RecipientAccountNumber)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("resolve recipient: %w", err))
	}
	if recipient == nil {
		return nil, apperror.ErrRecipientNotFound()
	}
	if recipient.ID == req.SenderID {
		return nil, apperror.ErrSelfTransferNotAllowed()
	}

	senderWallet, err := s.walletRepo.GetOrCreate(ctx, req.SenderID, s.limits.Currency)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("sender wallet: %w", err))
	}
	recipientWallet, err := s.walletRepo.GetOrCreate(ctx, recipient.ID, s.limits.Currency)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("recipient wallet: %w", err))
	}

	var result *ports.TransferResult
	err = s.withReferenceRetry(ctx, func(ctx context.Context) error {
		result = nil
		// Distinct references per party, generated before any lock.
		outRef := NewReference()
		inRef := NewReference()
		if outRef == inRef {
			return ports.ErrDuplicateReference
		}

		dbTx, err := s.transactor.Begin(ctx)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		// Fixed global lock order (ascending wallet id) prevents deadlock
		// between crossing transfers.
		first, second := senderWallet.ID, recipientWallet.ID
		if bytes.Compare(second[:], first[:]) < 0 {
			first, second = second, first
		}
		lockedFirst, err := s.walletRepo.GetForUpdate(ctx, dbTx, first)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
		}
		lockedSecond, err := s.walletRepo.GetForUpdate(ctx, dbTx, second)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
		}
		if lockedFirst == nil || lockedSecond == nil {
			return apperror.ErrWalletNotFound()
		}

		lockedSender, lockedRecipient := lockedFirst, lockedSecond
		if lockedSender.ID != senderWallet.ID {
			lockedSender, lockedRecipient = lockedSecond, lockedFirst
		}

		from, to := s.policy.DayWindow(s.now())
		outSum, err := s.txRepo.SumCompletedInWindow(ctx, dbTx, req.SenderID, domain.TransactionTypeTransferOut, from, to)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("sum transfers: %w", err))
		}
		// Outgoing rows carry negative amounts; the cap applies to the magnitude.
		if err := s.policy.CheckTransfer(req.Amount, -outSum); err != nil {
			return err
		}

		if lockedSender.BalanceCents < req.Amount.Cents {
			return apperror.ErrInsufficientFunds()
		}

		if err := s.walletRepo.UpdateBalance(ctx, dbTx, lockedSender.ID, lockedSender.BalanceCents-req.Amount.Cents); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("debit sender: %w", err))
		}
		if err := s.walletRepo.UpdateBalance(ctx, dbTx, lockedRecipient.ID, lockedRecipient.BalanceCents+req.Amount.Cents); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("credit recipient: %w", err))
		}

		now := s.now().UTC()
		transferID := uuid.New()
		senderID, recipientID := req.SenderID, recipient.ID

		outTxn := &domain.Transaction{
			ID:                 uuid.New(),
			UserID:             senderID,
			WalletID:           lockedSender.ID,
			Type:               domain.TransactionTypeTransferOut,
			AmountCents:        -req.Amount.Cents,
			FeeCents:           0,
			NetAmountCents:     -req.Amount.Cents,
			Currency:           req.Amount.Currency,
			Status:             domain.TransactionStatusCompleted,
			Reference:          outRef,
			Description:        req.Description,
			TransferID:         &transferID,
			CounterpartyUserID: &recipientID,
			CreatedAt:          now,
			CompletedAt:        &now,
		}
		inTxn := &domain.Transaction{
			ID:                 uuid.New(),
			UserID:             recipientID,
			WalletID:           lockedRecipient.ID,
			Type:               domain.TransactionTypeTransferIn,
			AmountCents:        req.Amount.Cents,
			FeeCents:           0,
			NetAmountCents:     req.Amount.Cents,
			Currency:           req.Amount.Currency,
			Status:             domain.TransactionStatusCompleted,
			Reference:          inRef,
			Description:        req.Description,
			TransferID:         &transferID,
			CounterpartyUserID: &senderID,
			CreatedAt:          now,
			CompletedAt:        &now,
		}

		if err := s.txRepo.Create(ctx, dbTx, outTxn); err != nil {
			return err
		}
		if err := s.txRepo.Create(ctx, dbTx, inTxn); err != nil {
			return err
		}

		result = &ports.TransferResult{TransferID: transferID, Outgoing: outTxn, Incoming: inTxn}
		if err := s.saveIdempotency(ctx, dbTx, req.SenderID, "transfer", req.IdempotencyKey, outTxn.ID, now, result); err != nil {
			return err
		}

		if err := dbTx.Commit(ctx); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, req.SenderID, "transfer", req.IdempotencyKey, result, result.Outgoing)
	s.publishTransaction(ctx, result.Incoming)

	s.log.Info().
		Str("transfer_id", result.TransferID.String()).
		Str("sender_id", req.SenderID.String()).
		Str("recipient_id", recipient.ID.String()).
		Int64("amount_cents", req.Amount.Cents).
		Msg("transfer completed")

	return result, nil
}

// Contribute records a stokvel group contribution funded from the wallet or
// from an external source ("bank" method, net-zero on the wallet).
func (s *LedgerServiceImpl) Contribute(ctx context.Context, req ports.ContributeRequest) (*ports.ContributionResult, error) {
	if err := s.validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.Method != domain.ContributionMethodWallet && req.Method != domain.ContributionMethodBank {
		return nil, apperror.Validation("Payment method must be wallet or bank")
	}

	if raw, err := s.replayPayload(ctx, req.UserID, "contribute", req.IdempotencyKey); err != nil {
		return nil, err
	} else if raw != nil {
		return unmarshalContributionResult(raw)
	}

	member, err := s.groupRepo.GetMember(ctx, req.GroupID, req.UserID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get member: %w", err))
	}
	if member == nil || !member.Active {
		return nil, apperror.ErrNotGroupMember()
	}

	group, err := s.groupRepo.GetByID(ctx, req.GroupID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get group: %w", err))
	}
	if group == nil {
		return nil, apperror.Validation("Group not found")
	}
	if req.Amount.Cents < group.ContributionCents {
		return nil, apperror.ErrBelowMinimumContribution(group.ContributionAmount().String())
	}

	if req.Method == domain.ContributionMethodBank {
		if req.CardRef == "" {
			return nil, apperror.Validation("Card reference is required for bank payment")
		}
		if err := s.funding.Authorize(ctx, req.UserID, req.CardRef, req.Amount); err != nil {
			return nil, apperror.ErrFundingSourceInvalid()
		}
	}

	wallet, err := s.walletRepo.GetOrCreate(ctx, req.UserID, s.limits.Currency)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get or create wallet: %w", err))
	}

	var result *ports.ContributionResult
	err = s.withReferenceRetry(ctx, func(ctx context.Context) error {
		result = nil
		reference := NewReference()

		dbTx, err := s.transactor.Begin(ctx)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		locked, err := s.walletRepo.GetForUpdate(ctx, dbTx, wallet.ID)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
		}
		if locked == nil {
			return apperror.ErrWalletNotFound()
		}

		amountCents := req.Amount.Cents
		netCents := -amountCents
		newBalance := locked.BalanceCents - amountCents
		if req.Method == domain.ContributionMethodBank {
			// Funding credit and contribution debit cancel out: the wallet is
			// untouched and the statement row records the contributed amount.
			netCents = amountCents
			newBalance = locked.BalanceCents
		} else if locked.BalanceCents < amountCents {
			return apperror.ErrInsufficientFunds()
		}

		if err := s.walletRepo.UpdateBalance(ctx, dbTx, locked.ID, newBalance); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("debit wallet: %w", err))
		}

		now := s.now().UTC()
		txn := &domain.Transaction{
			ID:             uuid.New(),
			UserID:         req.UserID,
			WalletID:       locked.ID,
			Type:           domain.TransactionTypeContribution,
			AmountCents:    amountCents,
			FeeCents:       0,
			NetAmountCents: netCents,
			Currency:       req.Amount.Currency,
			Status:         domain.TransactionStatusCompleted,
			Reference:      reference,
			Description:    "Contribution to " + group.Name,
			CreatedAt:      now,
			CompletedAt:    &now,
		}
		if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
			return err
		}

		contribution := &domain.Contribution{
			ID:            uuid.New(),
			MemberID:      member.ID,
			GroupID:       group.ID,
			UserID:        req.UserID,
			AmountCents:   amountCents,
			Currency:      req.Amount.Currency,
			Method:        req.Method,
			TransactionID: txn.ID,
			CreatedAt:     now,
		}
		if err := s.contribRepo.Create(ctx, dbTx, contribution); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("create contribution: %w", err))
		}

		result = &ports.ContributionResult{Contribution: contribution, Transaction: txn}
		if err := s.saveIdempotency(ctx, dbTx, req.UserID, "contribute", req.IdempotencyKey, txn.ID, now, result); err != nil {
			return err
		}

		if err := dbTx.Commit(ctx); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, req.UserID, "contribute", req.IdempotencyKey, result, result.Transaction)

	s.log.Info().
		Str("reference", result.Transaction.Reference).
		Str("group_id", req.GroupID.String()).
		Str("user_id", req.UserID.String()).
		Int64("amount_cents", req.Amount.Cents).
		Str("method", string(req.Method)).
		Msg("contribution completed")

	return result, nil
}

// GetBalance returns the user's current balance, zero if no wallet exists
// yet.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) (money.Money, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return money.Money{}, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return money.Zero(s.limits.Currency), nil
	}
	return wallet.Balance(), nil
}

// GetTransaction returns one statement entry by its reference. Entries are
// visible to their owner only; anything else reads as not found.
func (s *LedgerServiceImpl) GetTransaction(ctx context.Context, userID uuid.UUID, reference string) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil || txn.UserID != userID {
		return nil, apperror.ErrTransactionNotFound()
	}
	return txn, nil
}

// ListTransactions returns a page of the user's statement.
func (s *LedgerServiceImpl) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	txns, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

// ListContributions returns the caller's contribution history in a group.
// Inactive members keep read access to their own records.
func (s *LedgerServiceImpl) ListContributions(ctx context.Context, groupID, userID uuid.UUID) ([]domain.Contribution, error) {
	member, err := s.groupRepo.GetMember(ctx, groupID, userID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get member: %w", err))
	}
	if member == nil {
		return nil, apperror.ErrNotGroupMember()
	}
	contributions, err := s.contribRepo.ListByMember(ctx, member.ID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list contributions: %w", err))
	}
	return contributions, nil
}

// --- helpers ---

func (s *LedgerServiceImpl) validateAmount(amount money.Money) error {
	if amount.Currency != s.limits.Currency {
		return apperror.ErrInvalidAmount("unsupported currency " + amount.Currency)
	}
	if !amount.IsPositive() {
		return apperror.ErrInvalidAmount("amount must be positive")
	}
	return nil
}

// withReferenceRetry runs op, retrying with fresh references while the store
// reports a reference collision, up to the configured attempt budget.
func (s *LedgerServiceImpl) withReferenceRetry(ctx context.Context, op func(context.Context) error) error {
	attempts := s.limits.ReferenceMaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !isDuplicateReference(err) {
			return err
		}
		s.log.Warn().Int("attempt", i+1).Msg("transaction reference collision, retrying")
	}
	return apperror.ErrReferenceCollision(err)
}

func isDuplicateReference(err error) bool {
	return errors.Is(err, ports.ErrDuplicateReference)
}

// checkIdempotency returns a previously committed transaction for the same
// client key, nil when the key is new.
func (s *LedgerServiceImpl) checkIdempotency(ctx context.Context, userID uuid.UUID, op, clientKey string) (*domain.Transaction, error) {
	raw, err := s.replayPayload(ctx, userID, op, clientKey)
	if err != nil || raw == nil {
		return nil, err
	}
	return unmarshalTransaction(raw)
}

// replayPayload looks up the stored outcome of a prior attempt under the same
// client key, checking the Redis fast path first and the durable log second.
func (s *LedgerServiceImpl) replayPayload(ctx context.Context, userID uuid.UUID, op, clientKey string) ([]byte, error) {
	if clientKey == "" {
		return nil, nil
	}
	key := domain.BuildIdempotencyKey(userID, op, clientKey)

	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("idempotency cache check failed, falling through to DB")
	}
	if cached != nil {
		return cached, nil
	}

	logEntry, err := s.idempRepo.Get(ctx, key)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("idempotency check: %w", err))
	}
	if logEntry != nil {
		return logEntry.ResponseJSON, nil
	}
	return nil, nil
}

// saveIdempotency records the operation outcome inside the same database
// transaction as the financial effects. payload is the full response a replay
// must reproduce; for transfers that is both legs, not just the sender's row.
func (s *LedgerServiceImpl) saveIdempotency(ctx context.Context, dbTx pgx.Tx, userID uuid.UUID, op, clientKey string, txnID uuid.UUID, createdAt time.Time, payload any) error {
	if clientKey == "" {
		return nil
	}
	respJSON, err := json.Marshal(payload)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	entry := &domain.IdempotencyLog{
		Key:           domain.BuildIdempotencyKey(userID, op, clientKey),
		TransactionID: txnID,
		ResponseJSON:  respJSON,
		CreatedAt:     createdAt,
	}
	if err := s.idempRepo.Create(ctx, dbTx, entry); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("save idempotency log: %w", err))
	}
	return nil
}

// afterCommit performs the best-effort post-commit work: idempotency cache
// population and event publication. Failures here never affect the already
// committed operation.
func (s *LedgerServiceImpl) afterCommit(ctx context.Context, userID uuid.UUID, op, clientKey string, payload any, txn *domain.Transaction) {
	if clientKey != "" {
		key := domain.BuildIdempotencyKey(userID, op, clientKey)
		if respJSON, err := json.Marshal(payload); err == nil {
			if err := s.idempCache.Set(ctx, key, respJSON, idempotencyTTL); err != nil {
				s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency result")
			}
		}
	}
	s.publishTransaction(ctx, txn)
}

func (s *LedgerServiceImpl) publishTransaction(ctx context.Context, txn *domain.Transaction) {
	event := domain.TransactionCompletedEvent{
		TransactionID: txn.ID,
		UserID:        txn.UserID,
		Type:          txn.Type,
		AmountCents:   txn.AmountCents,
		Currency:      txn.Currency,
		Reference:     txn.Reference,
	}
	if err := s.publisher.Publish(ctx, domain.LedgerEventsStream, domain.EventTransactionCompleted, event); err != nil {
		s.log.Warn().Err(err).Str("reference", txn.Reference).Msg("failed to publish transaction event")
	}
}

func unmarshalTransaction(data []byte) (*domain.Transaction, error) {
	txn := &domain.Transaction{}
	if err := json.Unmarshal(data, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached transaction: %w", err))
	}
	return txn, nil
}

func unmarshalTransferResult(data []byte) (*ports.TransferResult, error) {
	result := &ports.TransferResult{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached transfer: %w", err))
	}
	return result, nil
}

func unmarshalContributionResult(data []byte) (*ports.ContributionResult, error) {
	result := &ports.ContributionResult{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached contribution: %w", err))
	}
	return result, nil
}

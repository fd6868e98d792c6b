package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"economy-ledger/domain"
	"economy-ledger/events"
	"economy-ledger/shared"
)

// TransferCoordinator moves value between two accounts as one logical step:
// a withdraw from the source followed by a deposit into the target. Callers
// never observe one leg without the other.
type TransferCoordinator struct {
	engine *Engine
}

func NewTransferCoordinator(engine *Engine) *TransferCoordinator {
	if engine == nil {
		panic("app: TransferCoordinator requires an engine")
	}
	return &TransferCoordinator{engine: engine}
}

func (c *TransferCoordinator) validate(from, to *domain.Account, amount decimal.Decimal) error {
	if from == nil {
		return fmt.Errorf("%w: from", domain.ErrMissingRequiredField)
	}
	if to == nil {
		return fmt.Errorf("%w: to", domain.ErrMissingRequiredField)
	}
	if from == to || from.Key() == to.Key() {
		return domain.NewDomainError("cannot transfer funds to the same account %s", from.Key())
	}
	if !amount.IsPositive() {
		return domain.NewDomainError("transfer amount must be positive: %s", amount)
	}
	if from.Currency() != to.Currency() {
		return fmt.Errorf("%w: cannot transfer from %s to %s", domain.ErrCurrencyMismatch, from.Currency().Key(), to.Currency().Key())
	}
	if from.Currency().Transferable() == shared.False {
		return domain.NewDomainError("currency %s is not transferable", from.Currency().Key())
	}
	if !from.Currency().Fits(amount) {
		return domain.NewDomainError("amount %s exceeds the %d decimals of %s", amount, from.Currency().Decimals(), from.Currency().Key())
	}
	return nil
}

// lockOrder sorts the pair by owner, then currency key, so that transfers in
// opposite directions over the same pair lock in the same order.
func lockOrder(a, b *domain.Account) (*domain.Account, *domain.Account) {
	ka, kb := a.Key(), b.Key()
	if oa, ob := ka.Owner.String(), kb.Owner.String(); oa != ob {
		if oa < ob {
			return a, b
		}
		return b, a
	}
	if ka.Currency <= kb.Currency {
		return a, b
	}
	return b, a
}

func (c *TransferCoordinator) Transfer(ctx context.Context, from, to *domain.Account, amount decimal.Decimal) *domain.TransferTransaction {
	e := c.engine
	tx := &domain.TransferTransaction{From: from, To: to, Amount: amount}
	defer func() { e.recorder.RecordTransfer(tx) }()

	if err := c.validate(from, to, amount); err != nil {
		tx.Result = shared.ResultInvalid
		tx.Err = err
		if from != nil {
			tx.Currency = from.Currency()
		}
		e.logger.Info("transfer rejected", zap.Error(err))
		return tx
	}
	tx.Currency = from.Currency()
	fields := []zap.Field{
		zap.String("from", from.Key().String()),
		zap.String("to", to.Key().String()),
		zap.String("amount", amount.String()),
	}

	first, second := lockOrder(from, to)
	release, err := e.acquire(ctx, first, second)
	if err != nil {
		tx.Result = shared.ResultFailed
		tx.Err = err
		e.logger.Warn("transfer failed to lock accounts", append(fields, zap.Error(err))...)
		return tx
	}
	for _, account := range []*domain.Account{from, to} {
		if account.Deleted() {
			release()
			tx.Result = shared.ResultFailed
			tx.Err = fmt.Errorf("%w: %s", domain.ErrAccountDeleted, account.Key())
			e.logger.Warn("transfer on deleted account", append(fields, zap.String("deleted", account.Key().String()))...)
			return tx
		}
	}

	cancelled, err := e.gateway.FireTransferPre(events.NewTransferPre(from, to, amount))
	tx.Err = err
	if cancelled {
		release()
		tx.Result = shared.ResultCancelled
		e.logger.Info("transfer cancelled by observer", fields...)
		return tx
	}

	fromBefore, toBefore := from.Balance(), to.Balance()

	if result := from.HandleWithdraw(amount); !result.Successful() {
		release()
		tx.Result = result
		e.logger.Info("transfer rejected on withdraw", append(fields, zap.Stringer("result", result))...)
		return tx
	}
	if result := to.HandleDeposit(amount); !result.Successful() {
		if rollback := from.HandleDeposit(amount); !rollback.Successful() {
			from.HandleSet(fromBefore)
		}
		release()
		tx.Result = result
		e.logger.Info("transfer rolled back after deposit rejection", append(fields, zap.Stringer("result", result))...)
		return tx
	}

	if err := c.persist(ctx, from, to, fromBefore, toBefore); err != nil {
		release()
		tx.Result = shared.ResultFailed
		tx.Err = multierr.Append(tx.Err, err)
		e.logger.Error("transfer reverted after save failure", append(fields, zap.Error(err))...)
		return tx
	}
	release()

	tx.Err = multierr.Append(tx.Err, e.gateway.FireTransferPost(events.NewTransferPost(*tx)))
	e.logger.Info("transfer successful", fields...)
	return tx
}

// persist saves both accounts. When either save fails both balances are restored
// and, if the source was already written, it is written again with its old balance.
func (c *TransferCoordinator) persist(ctx context.Context, from, to *domain.Account, fromBefore, toBefore decimal.Decimal) error {
	e := c.engine
	saveCtx := context.WithoutCancel(ctx)

	if err := e.persistence.Save(saveCtx, domain.CreateSnapshot(from)); err != nil {
		from.HandleSet(fromBefore)
		to.HandleSet(toBefore)
		return fmt.Errorf("failed to save source account %s: %w", from.Key(), err)
	}
	if err := e.persistence.Save(saveCtx, domain.CreateSnapshot(to)); err != nil {
		from.HandleSet(fromBefore)
		to.HandleSet(toBefore)
		err = fmt.Errorf("failed to save target account %s: %w", to.Key(), err)
		if rerr := e.persistence.Save(saveCtx, domain.CreateSnapshot(from)); rerr != nil {
			e.logger.Error("CRITICAL: source account could not be restored in storage, state is inconsistent",
				zap.String("from", from.Key().String()), zap.Error(rerr))
			err = multierr.Append(err, fmt.Errorf("failed to restore source account %s: %w", from.Key(), rerr))
		}
		return err
	}
	return nil
}

package service

import (
	"context"

	"github.com/wfunc/feudal-economy/internal/config"
	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/host"
	"github.com/wfunc/feudal-economy/internal/logger"
	"github.com/wfunc/feudal-economy/internal/models"
	"github.com/wfunc/feudal-economy/internal/repository"
	"github.com/wfunc/feudal-economy/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TaxDeps 税收服务依赖
type TaxDeps struct {
	DB         *gorm.DB
	Players    repository.MemberRepository
	NPCs       repository.MemberRepository
	Dues       repository.DueRepository
	Banks      repository.BankRepository
	Ledgers    repository.LedgerRepository
	Membership MembershipService
	World      host.World
	Sink       LedgerSink // 可选
	Clock      utils.Clock
	Config     config.TaxConfig
	Currency   string
	Log        *zap.Logger
}

// taxService 税收服务实现
type taxService struct {
	db         *gorm.DB
	members    memberStore
	dues       repository.DueRepository
	banks      repository.BankRepository
	ledgers    repository.LedgerRepository
	membership MembershipService
	world      host.World
	sink       LedgerSink
	clock      utils.Clock
	cfg        config.TaxConfig
	currency   string
	log        *zap.Logger
}

// NewTaxService 创建税收服务
func NewTaxService(deps TaxDeps) TaxService {
	currency := deps.Currency
	if currency == "" {
		currency = host.ItemEmerald
	}
	clock := deps.Clock
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &taxService{
		db:         deps.DB,
		members:    memberStore{players: deps.Players, npcs: deps.NPCs},
		dues:       deps.Dues,
		banks:      deps.Banks,
		ledgers:    deps.Ledgers,
		membership: deps.Membership,
		world:      deps.World,
		sink:       deps.Sink,
		clock:      clock,
		cfg:        deps.Config,
		currency:   currency,
		log:        deps.Log,
	}
}

// BaseTax 职业基础税额
func (s *taxService) BaseTax(job models.Job) int {
	return s.cfg.BaseTaxFor(string(job))
}

// Tick 推进一次农奴缴税周期，返回本次计入的税额
func (s *taxService) Tick(ctx context.Context, sub models.Subject, nowMs int64) (int, error) {
	var charged int
	interval := s.cfg.SerfDueInterval.Milliseconds()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.members.withTx(tx)
		m, err := members.find(ctx, sub)
		if err != nil {
			return err
		}
		if m == nil || !m.Serf {
			return nil
		}

		// 首次只设置计时器
		if m.NextDueAtMs == 0 {
			return members.repo(sub).UpdateFields(ctx, sub.ID, map[string]interface{}{
				"next_due_at_ms": nowMs + interval,
			})
		}
		if nowMs < m.NextDueAtMs {
			return nil
		}

		dues := s.dues.WithTx(tx)
		due, err := dues.Get(ctx, sub.Key())
		if err != nil {
			return err
		}

		miss := m.MissCount
		if due > 0 {
			miss++
		}

		tax := s.BaseTax(m.Job)
		if miss >= s.cfg.PunishThreshold {
			tax *= 2
		}
		if m.DiscountActive(nowMs) {
			tax = max(1, tax/2)
		}

		if err := dues.Add(ctx, sub.Key(), tax); err != nil {
			return err
		}
		if err := members.repo(sub).UpdateFields(ctx, sub.ID, map[string]interface{}{
			"miss_count":     miss,
			"next_due_at_ms": nowMs + interval,
		}); err != nil {
			return err
		}

		charged = tax
		return nil
	})
	if err != nil {
		return 0, err
	}

	if charged > 0 {
		logger.LogTaxEvent("tick", sub.Key(), 0, charged)
	}
	return charged, nil
}

// AddDeliverPoints 累计上缴积分，每满一档触发一次奖励
func (s *taxService) AddDeliverPoints(ctx context.Context, sub models.Subject, points int, nowMs int64) (int, error) {
	if points <= 0 {
		return 0, nil
	}

	per := s.cfg.PointsPerReward
	var rewards int

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.members.withTx(tx)
		m, err := members.find(ctx, sub)
		if err != nil {
			return err
		}
		if m == nil {
			return apperrors.New(apperrors.ErrNotFound, "成员不存在")
		}

		total := m.DeliverPoints + points
		rewards = total / per
		fields := map[string]interface{}{"deliver_points": total % per}

		if rewards > 0 {
			if err := s.dues.WithTx(tx).Pay(ctx, sub.Key(), rewards*s.cfg.DueReducePerReward); err != nil {
				return err
			}
			anchor := max(m.TaxDiscountUntilMs, nowMs)
			fields["tax_discount_until_ms"] = anchor + int64(rewards)*s.cfg.DiscountDuration.Milliseconds()
		}

		return members.repo(sub).UpdateFields(ctx, sub.ID, fields)
	})
	if err != nil {
		return 0, err
	}

	if rewards > 0 {
		logger.LogTaxEvent("reward", sub.Key(), 0, rewards, zap.Int("points", points))
	}
	return rewards, nil
}

// CanWarn 冷却结束时返回true并记录本次提醒时间
func (s *taxService) CanWarn(ctx context.Context, sub models.Subject, nowMs int64) (bool, error) {
	m, err := s.members.find(ctx, sub)
	if err != nil || m == nil {
		return false, err
	}
	if nowMs-m.LastWarnAtMs < s.cfg.WarnCooldown.Milliseconds() {
		return false, nil
	}
	if err := s.members.repo(sub).UpdateFields(ctx, sub.ID, map[string]interface{}{"last_warn_at_ms": nowMs}); err != nil {
		return false, err
	}
	return true, nil
}

// SerfStatus 农奴状态
func (s *taxService) SerfStatus(ctx context.Context, sub models.Subject) (*SerfStatus, error) {
	m, err := s.members.find(ctx, sub)
	if err != nil {
		return nil, err
	}
	due, err := s.dues.Get(ctx, sub.Key())
	if err != nil {
		return nil, err
	}

	status := &SerfStatus{Subject: sub, Job: models.JobNone, Due: due}
	if m != nil {
		status.Serf = m.Serf
		status.Job = m.Job
		status.MissCount = m.MissCount
		status.DeliverPoints = m.DeliverPoints
		status.NextDueAtMs = m.NextDueAtMs
		status.TaxDiscountUntilMs = m.TaxDiscountUntilMs
	}
	status.BaseTax = s.BaseTax(status.Job)
	return status, nil
}

// Due 欠税
func (s *taxService) Due(ctx context.Context, key string) (int, error) {
	return s.dues.Get(ctx, key)
}

// AddDue 增加欠税
func (s *taxService) AddDue(ctx context.Context, key string, amount int) error {
	if amount <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidParam, "金额必须大于0: %d", amount)
	}
	return s.dues.Add(ctx, key, amount)
}

// PayDue 减少欠税，最低为0
func (s *taxService) PayDue(ctx context.Context, key string, amount int) error {
	if amount <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidParam, "金额必须大于0: %d", amount)
	}
	return s.dues.Pay(ctx, key, amount)
}

// Deposit 存入金库
func (s *taxService) Deposit(ctx context.Context, familyID uint, amount int) error {
	if amount <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidParam, "金额必须大于0: %d", amount)
	}
	return s.banks.AddBalance(ctx, familyID, amount)
}

// Withdraw 从金库取出，金额无效或余额不足时返回false且不修改
func (s *taxService) Withdraw(ctx context.Context, familyID uint, amount int) (bool, error) {
	if amount <= 0 {
		return false, nil
	}
	if _, err := s.banks.Ensure(ctx, familyID); err != nil {
		return false, err
	}
	if err := s.banks.DeductBalance(ctx, familyID, amount); err != nil {
		if apperrors.Is(err, apperrors.ErrInsufficientFunds) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Balance 金库余额，首次查询时创建0余额的金库
func (s *taxService) Balance(ctx context.Context, familyID uint) (int, error) {
	bank, err := s.banks.Ensure(ctx, familyID)
	if err != nil {
		return 0, err
	}
	return bank.Balance, nil
}

// RecordLedger 追加流水
func (s *taxService) RecordLedger(ctx context.Context, entry *models.TaxLedger) error {
	if err := s.ledgers.Append(ctx, entry); err != nil {
		return err
	}
	s.mirror(entry)
	return nil
}

// mirror 写入归档，失败只记日志
func (s *taxService) mirror(entry *models.TaxLedger) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Write(entry); err != nil {
		s.log.Warn("流水归档失败", zap.Error(err), zap.Uint("ledger_id", entry.ID))
	}
}

// Ledger 分页查询流水
func (s *taxService) Ledger(ctx context.Context, familyID uint, page, pageSize int) ([]*models.TaxLedger, int64, error) {
	p := repository.NewPagination(page, pageSize)
	entries, err := s.ledgers.ListByFamily(ctx, familyID, p)
	if err != nil {
		return nil, 0, err
	}
	return entries, p.Total, nil
}

// Settle 自动征收
func (s *taxService) Settle(ctx context.Context, familyID uint, collectorID int64, sub models.Subject, amount int, nowMs int64) error {
	if amount <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidParam, "金额必须大于0: %d", amount)
	}

	entry := &models.TaxLedger{
		FamilyID:      familyID,
		SourceAgentID: collectorID,
		Amount:        amount,
		Reason:        models.LedgerReasonAutoTax,
		CreatedAtMs:   nowMs,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.dues.WithTx(tx).Pay(ctx, sub.Key(), amount); err != nil {
			return err
		}
		if err := s.banks.WithTx(tx).AddBalance(ctx, familyID, amount); err != nil {
			return err
		}
		return s.ledgers.WithTx(tx).Append(ctx, entry)
	})
	if err != nil {
		return err
	}

	s.mirror(entry)
	logger.LogTaxEvent("settle", sub.Key(), familyID, amount, zap.Int64("collector", collectorID))
	return nil
}

// WithdrawToHost KING取出金库货币放入背包，放不下的掉落在脚下
func (s *taxService) WithdrawToHost(ctx context.Context, actor models.Subject, amount int) (int, error) {
	if amount <= 0 {
		return 0, apperrors.Newf(apperrors.ErrInvalidParam, "金额必须大于0: %d", amount)
	}

	fid, err := s.membership.RequireKing(ctx, actor)
	if err != nil {
		return 0, err
	}

	entity, ok := s.world.Lookup(actor)
	if !ok {
		return 0, apperrors.New(apperrors.ErrEntityOffline)
	}

	okWithdraw, err := s.Withdraw(ctx, fid, amount)
	if err != nil {
		return 0, err
	}
	if !okWithdraw {
		return 0, apperrors.New(apperrors.ErrInsufficientFunds, "金库余额不足")
	}

	host.GiveOrDrop(s.world, entity, host.ItemStack{Type: s.currency, Amount: amount})

	if err := s.RecordLedger(ctx, &models.TaxLedger{
		FamilyID:    fid,
		Amount:      -amount,
		Reason:      models.LedgerReasonWithdraw,
		CreatedAtMs: s.clock.NowMs(),
	}); err != nil {
		s.log.Error("记录取款流水失败", zap.Error(err), zap.Uint("family_id", fid))
	}

	balance, err := s.Balance(ctx, fid)
	if err != nil {
		return 0, err
	}
	logger.LogTaxEvent("withdraw", actor.Key(), fid, amount)
	return balance, nil
}

package service

import (
	"time"

	"github.com/wfunc/feudal-economy/internal/config"
	"github.com/wfunc/feudal-economy/internal/host"
	"github.com/wfunc/feudal-economy/internal/repository"
	"github.com/wfunc/feudal-economy/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options 服务依赖的外部组件
type Options struct {
	World host.World
	Clock utils.Clock
	Sink  LedgerSink
}

// Services 服务集合
type Services struct {
	Auth       AuthService
	Membership MembershipService
	Invite     InviteService
	Territory  TerritoryService
	Tax        TaxService
	Traits     repository.NPCTraitRepository
	JWT        *utils.JWTManager
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, cfg *config.Config, opts Options, log *zap.Logger) *Services {
	// 初始化仓储
	familyRepo := repository.NewFamilyRepository(db)
	playerRepo := repository.NewMemberRepository(db)
	npcRepo := repository.NewNPCMemberRepository(db)
	landRepo := repository.NewLandRepository(db)
	bankRepo := repository.NewBankRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	dueRepo := repository.NewDueRepository(db)
	traitRepo := repository.NewNPCTraitRepository(db)

	clock := opts.Clock
	if clock == nil {
		clock = utils.SystemClock{}
	}

	expiry := time.Duration(cfg.Security.JWT.ExpireHours) * time.Hour
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	jwtManager := utils.NewJWTManager(cfg.Security.JWT.Secret, expiry)

	// 初始化服务
	membership := NewMembershipService(db, familyRepo, playerRepo, npcRepo, log)
	invites := NewInviteService(membership, familyRepo, clock, cfg.Feudal.Invite.TTL, log)
	territory := NewTerritoryService(landRepo, membership, log)
	tax := NewTaxService(TaxDeps{
		DB:         db,
		Players:    playerRepo,
		NPCs:       npcRepo,
		Dues:       dueRepo,
		Banks:      bankRepo,
		Ledgers:    ledgerRepo,
		Membership: membership,
		World:      opts.World,
		Sink:       opts.Sink,
		Clock:      clock,
		Config:     cfg.Feudal.Tax,
		Currency:   cfg.Feudal.Collector.CurrencyItem,
		Log:        log,
	})

	return &Services{
		Auth:       NewAuthService(cfg.Security.HostKeyHash, jwtManager, log),
		Membership: membership,
		Invite:     invites,
		Territory:  territory,
		Tax:        tax,
		Traits:     traitRepo,
		JWT:        jwtManager,
	}
}

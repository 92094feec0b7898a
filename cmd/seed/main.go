// Package main seeds a development database with demo data: an admin
// account, a small catalog per area, one complete formula and some
// historical movement records.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"quimstock/internal/config"
	appctx "quimstock/internal/core/context"
	"quimstock/internal/core/entity"
	"quimstock/internal/core/id"
	"quimstock/internal/core/security"
	"quimstock/internal/core/types"
	"quimstock/internal/domain/auth"
	"quimstock/internal/domain/formula"
	"quimstock/internal/domain/items"
	"quimstock/internal/domain/ledger"
	"quimstock/internal/infrastructure/storage/postgres"
	"quimstock/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: true})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if err := runMigrations(cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
		log.Fatalw("failed to run migrations", "error", err)
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.DSN))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	itemRepo := postgres.NewItemRepo(txManager)
	ledgerRepo := postgres.NewLedgerRepo(txManager)
	formulaRepo := postgres.NewFormulaRepo(txManager)
	userRepo := postgres.NewUserRepo(txManager)

	ledgerService := ledger.NewService(ledgerRepo, itemRepo, txManager)
	formulaService := formula.NewService(formulaRepo, itemRepo, txManager)
	itemsService := items.NewService(itemRepo, formulaService, ledgerRepo, ledgerService, txManager)

	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWT.Secret))
	authService := auth.NewService(userRepo, userRepo, txManager, jwtService, auth.DefaultServiceConfig())

	// All seeded movements are booked under the admin account.
	admin, err := authService.Register(ctx, auth.RegisterRequest{
		Username: "admin",
		Email:    "admin@quimstock.local",
		Password: "admin12345",
		Areas:    []string{string(security.AreaLab), string(security.AreaWarehouse)},
	})
	if err != nil {
		log.Fatalw("failed to create admin user (already seeded?)", "error", err)
	}
	log.Infow("admin user created", "username", admin.Username)

	ctx = appctx.WithUser(ctx, &appctx.UserContext{
		UserID:   admin.ID.String(),
		Username: admin.Username,
		Email:    admin.Email,
		Scope:    security.NewScope(security.AreaLab, security.AreaWarehouse),
	})

	for _, area := range []security.Area{security.AreaLab, security.AreaWarehouse} {
		if err := seedArea(ctx, area, itemsService, formulaService, ledgerRepo, txManager); err != nil {
			log.Fatalw("failed to seed area", "area", area, "error", err)
		}
		log.Infow("area seeded", "area", area)
	}

	log.Info("seeding complete")
}

func seedArea(
	ctx context.Context,
	area security.Area,
	itemsService *items.Service,
	formulaService *formula.Service,
	ledgerRepo *postgres.LedgerRepo,
	txManager *postgres.TxManager,
) error {
	water, err := itemsService.Create(ctx, area, entity.KindMaterial, items.CreateInput{
		Name:            "Distilled Water",
		Code:            "MAT-001",
		Unit:            entity.UnitLiters,
		LowStock:        types.NewQuantityFromInt(20),
		InitialQuantity: types.NewQuantityFromInt(150),
	})
	if err != nil {
		return fmt.Errorf("create water: %w", err)
	}

	chloride, err := itemsService.Create(ctx, area, entity.KindMaterial, items.CreateInput{
		Name:            "Sodium Chloride",
		Code:            "MAT-002",
		Unit:            entity.UnitKilograms,
		LowStock:        types.NewQuantityFromInt(5),
		InitialQuantity: types.NewQuantityFromInt(40),
	})
	if err != nil {
		return fmt.Errorf("create chloride: %w", err)
	}

	saline, err := itemsService.Create(ctx, area, entity.KindReagent, items.CreateInput{
		Name:     "Saline Solution",
		Code:     "REA-001",
		Unit:     entity.UnitLiters,
		LowStock: types.NewQuantityFromInt(10),
	})
	if err != nil {
		return fmt.Errorf("create saline: %w", err)
	}

	// One complete formula: 0.99 l water and 0.009 kg salt per liter produced.
	if _, err := formulaService.Create(ctx, saline.ID, []id.ID{water.ID, chloride.ID}); err != nil {
		return fmt.Errorf("create formula: %w", err)
	}
	ratios := []types.Ratio{types.MustRatio("0.99"), types.MustRatio("0.009")}
	if _, err := formulaService.SetRatios(ctx, saline.ID, ratios); err != nil {
		return fmt.Errorf("set ratios: %w", err)
	}

	return seedHistory(ctx, water, chloride, ledgerRepo, txManager)
}

// seedHistory bulk loads last year's archived movements. Each item gets a
// matched entry/exit pair so current stock stays untouched.
func seedHistory(
	ctx context.Context,
	water, chloride *entity.StockedItem,
	ledgerRepo *postgres.LedgerRepo,
	txManager *postgres.TxManager,
) error {
	lastYear := time.Date(time.Now().Year()-1, time.June, 15, 10, 0, 0, 0, time.UTC)

	var history []entity.Movement
	for i, item := range []*entity.StockedItem{water, chloride} {
		qty := types.NewQuantityFromInt(int64(25 + 10*i))

		in := entity.NewMovement(item, entity.MovementEntry, qty, "Archived receipt", appctx.GetUsername(ctx), nil)
		in.RecordedAt = lastYear.AddDate(0, 0, i)
		out := entity.NewMovement(item, entity.MovementExit, qty, "Archived issue", appctx.GetUsername(ctx), nil)
		out.RecordedAt = lastYear.AddDate(0, 1, i)

		history = append(history, in, out)
	}

	return txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return ledgerRepo.AppendMany(ctx, history)
	})
}

// runMigrations applies pending goose migrations through the pgx stdlib driver.
func runMigrations(dsn, dir string) error {
	sqlDB, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	if err := goose.Up(sqlDB, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

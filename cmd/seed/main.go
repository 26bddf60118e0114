package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"iptv-subscription-backend/internal/config"
	"iptv-subscription-backend/internal/domain/model"
	pg "iptv-subscription-backend/internal/infra/db/postgres"
	"iptv-subscription-backend/internal/usecase"
)

// Seeds a starter catalog so the checkout flow is testable on a fresh
// database. Does nothing when plans already exist.
func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool := pg.MustConnectPostgres(cfg.Database.URL)
	defer pool.Close()

	logger := zerolog.Nop()
	catalog := usecase.NewCatalogUseCase(pg.NewPlanRepo(pool), pg.NewPromoCodeRepo(pool), &logger)

	plans, err := catalog.ListPlans(ctx)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (months=%d, price=%s %s)\n", p.Name, p.DurationMonths, p.Price.StringFixed(2), p.Currency)
		}
		return
	}

	seed := []usecase.PlanInput{
		{Name: "1 Month", DurationMonths: 1, Price: decimal.NewFromFloat(14.99), Currency: "USD", Published: true},
		{Name: "3 Months", DurationMonths: 3, Price: decimal.NewFromFloat(29.99), Currency: "USD", Published: true},
		{Name: "6 Months", DurationMonths: 6, Price: decimal.NewFromFloat(49.99), Currency: "USD", Published: true},
		{Name: "12 Months", DurationMonths: 12, Price: decimal.NewFromFloat(79.99), Currency: "USD", Published: true},
	}
	for _, in := range seed {
		p, err := catalog.CreatePlan(ctx, in)
		if err != nil {
			log.Fatalf("create plan %q: %v", in.Name, err)
		}
		fmt.Printf("seeded: %s (id=%s, months=%d, price=%s %s)\n", p.Name, p.ID, p.DurationMonths, p.Price.StringFixed(2), p.Currency)
	}

	launch := usecase.PromoInput{
		Code:          "SAVE10",
		DiscountType:  model.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		Active:        true,
	}
	if promo, err := catalog.CreatePromo(ctx, launch); err != nil {
		log.Printf("create promo %q: %v", launch.Code, err)
	} else {
		fmt.Printf("seeded promo: %s (-%s%%)\n", promo.Code, promo.DiscountValue.StringFixed(0))
	}

	fmt.Println("Seeding complete.")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v4"

	"template-market/internal/config"
	"template-market/internal/domain/model"
	"template-market/internal/domain/ports/repository"
	pg "template-market/internal/infra/db/postgres"
	"template-market/internal/infra/logging"
	"template-market/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	templateRepo := pg.NewTemplateRepo(pool)
	codeRepo := pg.NewAccessCodeRepo(pool)
	codeUC := usecase.NewCodeUseCase(codeRepo, logger)

	// If templates already exist, do nothing
	existing, err := templateRepo.List(ctx, nil, false)
	if err != nil {
		log.Fatalf("list templates: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d templates already present. No changes.\n", len(existing))
		return
	}

	templates := []*model.Template{
		{
			Title:        "Landing Page Starter",
			Description:  "Responsive single-page marketing site",
			Language:     "html",
			Tags:         []string{"landing", "marketing"},
			SourceCode:   "<!doctype html>\n<html>...</html>\n",
			RequiresCode: true,
			IsActive:     true,
		},
		{
			Title:        "REST API Skeleton",
			Description:  "Minimal JSON API with routing and middleware",
			Language:     "go",
			Tags:         []string{"api", "backend"},
			SourceCode:   "package main\n\nfunc main() {}\n",
			RequiresCode: true,
			IsActive:     true,
		},
		{
			Title:        "Readme Template",
			Description:  "Project readme with badges and sections",
			Language:     "markdown",
			Tags:         []string{"docs"},
			SourceCode:   "# Project\n\n## Usage\n",
			RequiresCode: false,
			IsActive:     true,
		},
	}
	// All or nothing: a half-seeded catalog is worse than none.
	txm := pg.NewTxManager(pool)
	err = txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for _, t := range templates {
			if err := templateRepo.Save(ctx, tx, t); err != nil {
				return fmt.Errorf("seed template %q: %w", t.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("seed templates: %v", err)
	}
	for _, t := range templates {
		fmt.Printf("template %q -> %s\n", t.Title, t.ID)
	}

	// One sample code of each lifecycle kind for manual testing.
	shortTerm, err := codeUC.Issue(ctx, "demo short-term", 3, nil, false)
	if err != nil {
		log.Fatalf("issue short-term code: %v", err)
	}
	longTerm, err := codeUC.Issue(ctx, "demo long-term", 0, nil, true)
	if err != nil {
		log.Fatalf("issue long-term code: %v", err)
	}
	fmt.Printf("short-term code: %s (3 uses)\n", shortTerm.Code)
	fmt.Printf("long-term code:  %s (unlimited)\n", longTerm.Code)
}

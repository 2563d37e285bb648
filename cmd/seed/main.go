package main

import (
	"context"
	"log"
	"time"

	"recall-be/internal/config"
	"recall-be/internal/entity"
	"recall-be/internal/repository/unitofwork"
	"recall-be/pkg/database"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

type demoSet struct {
	name        string
	description string
	prompt      string
	points      [][2]string // content, context
}

var demoSets = []demoSet{
	{
		name:        "Cell Biology Basics",
		description: "Organelles and what they do",
		prompt:      "Talk through how a eukaryotic cell keeps itself running.",
		points: [][2]string{
			{"Mitochondria produce most of the cell's ATP through oxidative phosphorylation", "Often called the powerhouse of the cell"},
			{"Ribosomes translate messenger RNA into proteins", "Found free in the cytoplasm or bound to the rough ER"},
			{"The Golgi apparatus modifies, sorts and packages proteins for secretion", "Receives vesicles from the endoplasmic reticulum"},
		},
	},
	{
		name:        "Go Concurrency",
		description: "Goroutines, channels and synchronization",
		prompt:      "Explain how you would structure concurrent work in Go.",
		points: [][2]string{
			{"An unbuffered channel send blocks until a receiver is ready", "Synchronous hand-off between goroutines"},
			{"context.Context carries cancellation and deadlines across API boundaries", "Pass it as the first parameter"},
		},
	},
}

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, database.DefaultOptions())
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	ctx := context.Background()
	uow := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		log.Fatal(err)
	}
	defer uow.Rollback()

	existing, err := uow.RecallSetRepository().FindAll(ctx)
	if err != nil {
		log.Fatal(err)
	}
	seeded := make(map[string]bool, len(existing))
	for _, s := range existing {
		seeded[s.Name] = true
	}

	now := time.Now()
	for _, d := range demoSets {
		if seeded[d.name] {
			color.Yellow("Skip: %q already exists", d.name)
			continue
		}
		set := &entity.RecallSet{
			Id:               uuid.New(),
			Name:             d.name,
			Description:      d.description,
			DiscussionPrompt: d.prompt,
			Status:           entity.RecallSetStatusActive,
		}
		if err := uow.RecallSetRepository().Create(ctx, set); err != nil {
			color.Red("Failed to seed %q: %v", d.name, err)
			log.Fatal(err)
		}
		for _, p := range d.points {
			if err := uow.RecallPointRepository().Create(ctx, &entity.RecallPoint{
				Id:          uuid.New(),
				RecallSetId: set.Id,
				Content:     p[0],
				Context:     p[1],
				State:       entity.RecallPointStateNew,
				DueAt:       now,
				CreatedAt:   now,
			}); err != nil {
				log.Fatal(err)
			}
		}
		color.Green("Seeded %q with %d recall points (id %s)", d.name, len(d.points), set.Id)
	}

	if err := uow.Commit(); err != nil {
		log.Fatal(err)
	}
	color.Cyan("Seeding complete.")
}

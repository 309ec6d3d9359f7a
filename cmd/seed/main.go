package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"neurostudy/internal/config"
	models "neurostudy/internal/domain/models/study"
	studySvc "neurostudy/internal/domain/services/study"
	"neurostudy/internal/repository/postgres"
	serviceStudy "neurostudy/internal/service/study"

	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	schemaOnly := flag.Bool("schema-only", false, "Only run migrations, don't seed studies")
	clearData := flag.Bool("clear-data", false, "Delete the user's folders and studies (keep schema)")
	userID := flag.String("user", "", "Owner of the seeded library (default LOCAL_USER_ID)")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *clearData {
		log.Fatalf("🚫 BLOCKED: Cannot run --clear-data in production environment")
	}
	if !cfg.UsesDatabase() {
		log.Fatalf("DATABASE_URL is required for seeding")
	}

	owner := *userID
	if owner == "" {
		owner = cfg.LocalUserID
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables, err := postgres.NewTableNames(cfg.TablePrefix)
	if err != nil {
		log.Fatalf("Invalid table prefix: %v", err)
	}

	log.Printf("📋 Running migrations (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	if err := postgres.MigrateUp(pool, tables); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	folderRepo := postgres.NewFolderRepository(repoConfig)
	sessionRepo := postgres.NewSessionRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	viewState := serviceStudy.NewViewStateService(sessionRepo)
	folders := serviceStudy.NewFolderService(folderRepo, sessionRepo, txManager, viewState, logger)
	studies := serviceStudy.NewStudyService(folderRepo, sessionRepo, txManager, viewState, logger)

	if err := folders.EnsureDefaults(ctx, owner); err != nil {
		log.Fatalf("Failed to create default folders: %v", err)
	}

	log.Printf("🧹 Clearing library of %s...", owner)
	if err := clearLibrary(ctx, folders, studies, owner); err != nil {
		log.Fatalf("Failed to clear data: %v", err)
	}
	if *clearData {
		log.Println("✅ Data cleared successfully")
		return
	}

	log.Println("🌱 Seeding studies...")
	if err := seedLibrary(ctx, folders, studies, owner); err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}
	log.Println("🎉 Seeding complete!")
}

// clearLibrary deletes every root folder except the protected ones, then the
// studies left in the protected folders.
func clearLibrary(ctx context.Context, folders studySvc.FolderService, studies studySvc.StudyService, owner string) error {
	all, err := folders.ListFolders(ctx, owner)
	if err != nil {
		return err
	}
	for _, f := range all {
		if f.ParentID != nil || f.IsProtected() {
			continue
		}
		if _, err := folders.DeleteFolder(ctx, owner, f.ID); err != nil {
			return err
		}
	}

	remaining, err := studies.ListStudies(ctx, owner, nil)
	if err != nil {
		return err
	}
	for _, s := range remaining {
		if err := studies.DeleteStudy(ctx, owner, s.ID); err != nil {
			return err
		}
	}
	return nil
}

func seedLibrary(ctx context.Context, folders studySvc.FolderService, studies studySvc.StudyService, owner string) error {
	biology, err := folders.CreateFolder(ctx, owner, &studySvc.CreateFolderRequest{Name: "Biology"})
	if err != nil {
		return err
	}
	cells, err := folders.CreateFolder(ctx, owner, &studySvc.CreateFolderRequest{Name: "Cells", ParentID: &biology.ID})
	if err != nil {
		return err
	}
	log.Printf("✅ Created folders %s and %s", biology.Name, cells.Name)

	for _, seed := range seedStudies() {
		folderID := biology.ID
		if seed.inCells {
			folderID = cells.ID
		}

		study, err := studies.CreateStudy(ctx, owner, &studySvc.CreateStudyRequest{
			FolderID: folderID,
			Title:    seed.title,
			Mode:     seed.mode,
		})
		if err != nil {
			return err
		}
		if _, err := studies.AddSource(ctx, owner, study.ID, &studySvc.AddSourceRequest{
			Type:    models.SourceText,
			Name:    seed.title + " notes",
			Content: seed.notes,
		}); err != nil {
			return err
		}
		if seed.guide != nil {
			if _, err := studies.UpdateGuide(ctx, owner, study.ID, seed.guide); err != nil {
				return err
			}
		}
		log.Printf("✅ Created study %q (ID: %s)", seed.title, study.ID)
	}
	return nil
}

type seedStudy struct {
	title   string
	mode    models.Mode
	inCells bool
	notes   string
	guide   *models.Guide
}

func seedStudies() []seedStudy {
	return []seedStudy{
		{
			title:   "Photosynthesis",
			mode:    models.ModeNormal,
			inCells: true,
			notes: "Photosynthesis converts light energy into chemical energy. " +
				"The light reactions happen in the thylakoid membranes and produce ATP and NADPH. " +
				"The Calvin cycle happens in the stroma and fixes CO2 into sugar.",
			guide: &models.Guide{
				Subject:  "Photosynthesis",
				Overview: "How plants turn light, water and CO2 into sugar and oxygen.",
				CoreConcepts: []models.CoreConcept{
					{Concept: "Chlorophyll", Definition: "Pigment in the thylakoids that absorbs red and blue light."},
					{Concept: "Calvin cycle", Definition: "Light-independent reactions in the stroma that fix CO2."},
				},
				Checkpoints: []models.Checkpoint{
					{
						Mission:     "Map where each stage happens",
						LookFor:     "Thylakoid vs stroma",
						NoteExactly: "Light reactions: thylakoid. Calvin cycle: stroma.",
						DrawExactly: "A chloroplast with the thylakoid stacks and stroma labelled",
						DrawLabel:   models.DrawEssential,
						Question:    "Why does the Calvin cycle stop in the dark?",
					},
					{
						Mission:     "Follow the energy carriers",
						LookFor:     "ATP and NADPH",
						NoteExactly: "Light reactions make ATP and NADPH; the Calvin cycle spends them.",
						DrawLabel:   models.DrawNone,
						Question:    "Which products of the light reactions feed the Calvin cycle?",
					},
				},
			},
		},
		{
			title: "Mitosis",
			mode:  models.ModeTurbo,
			notes: "Mitosis has four phases: prophase, metaphase, anaphase and telophase. " +
				"Chromosomes condense, align at the plate, separate and decondense in two nuclei.",
		},
	}
}

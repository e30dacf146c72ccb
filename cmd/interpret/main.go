package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/meducate/labs-orchestrator/internal/config"
	"github.com/meducate/labs-orchestrator/internal/core/domain"
	"github.com/meducate/labs-orchestrator/internal/core/usecase"
	"github.com/meducate/labs-orchestrator/internal/infrastructure/gateway/asynclabs"
	"github.com/meducate/labs-orchestrator/internal/infrastructure/inspect"
	"github.com/meducate/labs-orchestrator/internal/observability/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	files := flag.String("files", "", "Comma-separated document paths (PDF, DOCX or images)")
	language := flag.String("language", "English", "Interpretation language (English, French)")
	education := flag.String("education", "College", "Education level")
	technical := flag.String("technical", "Non-Science", "Technical background")
	flag.Parse()

	if *files == "" {
		fmt.Println("Usage: interpret -files <doc.pdf[,doc2.png,...]> [-language English] [-education College] [-technical Non-Science]")
		fmt.Println("\nExample:")
		fmt.Println("  interpret -files bloodwork.pdf -language French -education Graduate -technical \"Medical Science\"")
		os.Exit(2)
	}

	cfg := config.Load()
	logger := logging.NewJSONLogger("interpret-cli", cfg.LogLevel)

	req := domain.InterpretationRequest{
		Language:       domain.Language(*language),
		EducationLevel: domain.EducationLevel(*education),
		TechnicalLevel: domain.TechnicalLevel(*technical),
	}
	for _, path := range strings.Split(*files, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}
		req.Files = append(req.Files, domain.Attachment{
			Filename:  filepath.Base(path),
			MediaType: mediaTypeForPath(path),
			Content:   content,
		})
	}
	if err := req.Validate(); err != nil {
		log.Fatalf("%s", usecase.UserMessage(err))
	}
	if err := inspect.CheckAll(req); err != nil {
		log.Fatalf("%s", usecase.UserMessage(err))
	}

	gateway := asynclabs.New(cfg.LabsBaseURL, asynclabs.StaticTokenSource(cfg.LabsAPIToken))

	updates := make(chan domain.AttemptState, 64)
	orchestrator := usecase.NewWithOptions(gateway, logger, usecase.Options{
		Config: usecase.Config{
			PollInterval:    cfg.PollInterval(),
			FirstProbeDelay: cfg.FirstProbeDelay(),
			StatusTimeout:   cfg.StatusTimeout(),
		},
		OnChange: func(state domain.AttemptState) { updates <- state },
	})
	defer orchestrator.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := orchestrator.Start(ctx, req)
	if err != nil {
		if info := domain.SubscriptionInfo(err); info != nil {
			fmt.Printf("Plan limit reached (tier %s): %d of %d jobs used this period.\n",
				info.Tier, info.Usage.JobsThisPeriod, info.Limits.MonthlyJobs)
			os.Exit(1)
		}
		log.Fatalf("%s", usecase.UserMessage(err))
	}
	fmt.Printf("Submitted job %s, waiting for the interpretation...\n", state.JobID)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Interrupted, cancelling the job...")
			_ = orchestrator.Cancel(context.Background())
			os.Exit(1)
		case state = <-updates:
		}
		switch state.Phase {
		case domain.PhasePending:
			fmt.Println("Queued...")
		case domain.PhaseProcessing:
			fmt.Printf("Processing... %d%%\n", state.Progress)
		case domain.PhaseCompleted:
			printResult(state.Result)
			return
		case domain.PhaseFailed:
			fmt.Println(state.UserError)
			os.Exit(1)
		case domain.PhaseCancelled:
			fmt.Println(state.UserError)
			os.Exit(1)
		}
	}
}

func mediaTypeForPath(path string) string {
	if mediaType := mime.TypeByExtension(filepath.Ext(path)); mediaType != "" {
		return mediaType
	}
	return "application/octet-stream"
}

func printResult(result *domain.InterpretationResult) {
	if result == nil {
		fmt.Println("Interpretation completed.")
		return
	}
	fmt.Println("\n=== Interpretation ===")
	fmt.Println(result.Summary)
	if len(result.KeyFindings) > 0 {
		fmt.Println("\nKey findings:")
		for _, finding := range result.KeyFindings {
			fmt.Printf("  - %s\n", finding)
		}
	}
	if len(result.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range result.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
}

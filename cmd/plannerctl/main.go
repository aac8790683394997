package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/arnavshah/course-planner-api/pkg/client"
	"github.com/arnavshah/course-planner-api/pkg/models"
	"github.com/arnavshah/course-planner-api/pkg/poolio"
	"github.com/arnavshah/course-planner-api/pkg/scheduler"
)

var (
	poolPath = flag.String("pool", "", "course pool file (.json or .csv)")
	budget   = flag.Int("budget", scheduler.DefaultBudget, "maximum number of candidates")
	policy   = flag.String("policy", string(scheduler.ConflictsFirst), "ranking policy: conflicts_first or priority_first")
	server   = flag.String("server", "", "planner API base URL; generate locally when empty")
	apiKey   = flag.String("key", os.Getenv("PLANNER_API_KEY"), "API key for -server")
	top      = flag.Int("top", 5, "number of candidates to list")
	grids    = flag.Int("grids", 1, "number of candidates to print as a weekly grid")
)

func main() {
	flag.Parse()
	if *poolPath == "" {
		fmt.Println("Usage: plannerctl -pool courses.json [-budget n] [-policy p] [-server url -key k]")
		os.Exit(1)
	}

	f, err := os.Open(*poolPath)
	if err != nil {
		log.Fatalf("could not open pool: %v", err)
	}
	pool, err := poolio.Load(*poolPath, f)
	f.Close()
	if err != nil {
		log.Fatalf("could not load pool: %v", err)
	}

	ctx := context.Background()
	var resp *models.GenerateResponse
	if *server != "" {
		resp, err = client.New(*server, *apiKey).Generate(ctx, pool, budget, *policy)
	} else {
		resp, err = generateLocal(ctx, pool)
	}
	if err != nil {
		log.Fatalf("generation failed: %v", err)
	}

	if resp.Message != "" {
		fmt.Println(resp.Message)
	}
	fmt.Printf("%d candidates (%d conflict-free), policy %s\n\n", resp.Generated, len(resp.ConflictFree), resp.Policy)

	shown := writePartitions(os.Stdout, resp.ConflictFree, resp.WithConflicts, *top)
	for i := 0; i < *grids && i < len(shown); i++ {
		fmt.Printf("\nCandidate %d\n", i+1)
		writeGrid(os.Stdout, scheduler.GridResponse(shown[i]))
	}
}

func generateLocal(ctx context.Context, pool []models.CourseSection) (*models.GenerateResponse, error) {
	p, err := scheduler.ParsePolicy(*policy)
	if err != nil {
		return nil, err
	}
	s := scheduler.NewScheduler(0, 0, zap.NewNop())
	res, err := s.Generate(ctx, scheduler.GenerationRequest{Pool: pool, Budget: *budget, Policy: p})
	message := ""
	if errors.Is(err, scheduler.ErrEmptyResult) {
		message, err = err.Error(), nil
	}
	if err != nil {
		return nil, err
	}
	resp := res.Response()
	resp.Message = message
	return &resp, nil
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/securelab/backend/internal/health"
)

func main() {
	url := "http://localhost:8080/health"
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	fmt.Printf("🔍 Testing health endpoint: %s\n", url)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := health.Fetch(ctx, &http.Client{}, url)
	if resp != nil {
		report(resp)
	}
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	failures, warnings := resp.Evaluate()
	for _, w := range warnings {
		fmt.Printf("⚠️  %s\n", w)
	}
	if len(failures) > 0 {
		for _, f := range failures {
			fmt.Printf("❌ %s\n", f)
		}
		os.Exit(1)
	}

	fmt.Printf("✅ Health check passed!\n")
}

func report(resp *health.Response) {
	fmt.Printf("   Status: %s\n", resp.Status)
	fmt.Printf("   Version: %s\n", resp.Version)
	fmt.Printf("   Timestamp: %s\n", resp.Timestamp)
	fmt.Printf("   Database: %s\n", resp.Services.Database.Status)
	if resp.Services.Database.Error != "" {
		fmt.Printf("   Database error: %s\n", resp.Services.Database.Error)
	}
	fmt.Printf("   Assistant model: %s\n", resp.Services.LLM.Status)
	snapshot := resp.Services.Snapshot.Status
	if resp.Services.Snapshot.FetchedAt != "" {
		snapshot += " (fetched " + resp.Services.Snapshot.FetchedAt + ")"
	}
	fmt.Printf("   Snapshot cache: %s\n", snapshot)
}

package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"phackdemo/adapters/db"
	"phackdemo/domain/run"
	"phackdemo/internal/migration"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <driver> <dsn> [runs.json]")
	}

	driver, dsn := os.Args[1], os.Args[2]
	ctx := context.Background()

	conn, err := db.Open(ctx, driver, dsn)
	if err != nil {
		log.Fatalf("Failed to open ledger: %v", err)
	}
	defer conn.Close()
	log.Printf("Ledger schema at version %s", migration.NewRunner().Version())

	if len(os.Args) < 4 {
		return
	}

	records, err := loadRecords(os.Args[3])
	if err != nil {
		log.Fatalf("Failed to load runs: %v", err)
	}

	ledger := db.NewRunLedgerAdapter(conn)
	migrated, skipped := 0, 0
	for _, rec := range records {
		if _, err := ledger.GetRun(ctx, rec.ID); err == nil {
			skipped++
			continue
		}
		if err := ledger.RecordRun(ctx, rec); err != nil {
			log.Printf("Failed to import run %s: %v", rec.ID, err)
			skipped++
			continue
		}
		migrated++
	}
	log.Printf("Imported %d runs, skipped %d", migrated, skipped)
}

// loadRecords reads a JSON array of run records, as served by GET /api/runs
// under "runs"
func loadRecords(path string) ([]run.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Runs []run.Record `json:"runs"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Runs != nil {
		return wrapped.Runs, nil
	}

	var records []run.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

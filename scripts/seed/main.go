// Seed adds a few projects and a batch of todos for one team.
// Run from project root: go run ./scripts/seed [team]
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"teamtodo/internal/config"
	"teamtodo/internal/database"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Config failed:", err)
		os.Exit(1)
	}
	db, err := database.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "DATABASE_URL not set or DB connection failed:", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		fmt.Fprintln(os.Stderr, "Schema failed:", err)
		os.Exit(1)
	}

	team := "test-team"
	if len(os.Args) > 1 {
		team = os.Args[1]
	}

	projectIDs := make([]string, 0, 3)
	for _, name := range []string{"Launch", "Maintenance", "Backlog"} {
		id := uuid.New().String()
		_, err := db.ExecContext(ctx,
			`INSERT INTO projects (id, name, color, team_id) VALUES ($1, $2, $3, $4)`,
			id, name, "#3b82f6", team)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Project insert failed:", err)
			os.Exit(1)
		}
		projectIDs = append(projectIDs, id)
	}

	const total = 1000
	const batchSize = 250
	start := time.Now()

	for batch := 0; batch < total/batchSize; batch++ {
		args := make([]interface{}, 0, batchSize*6)
		placeholders := make([]string, 0, batchSize)
		for i := 0; i < batchSize; i++ {
			n := batch*batchSize + i + 1
			placeholders = append(placeholders, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,NOW(),NOW())",
				6*i+1, 6*i+2, 6*i+3, 6*i+4, 6*i+5, 6*i+6))

			var due interface{}
			if n%3 != 0 {
				due = time.Now().AddDate(0, 0, rand.Intn(14)-4)
			}
			var project interface{}
			if n%2 == 0 {
				project = projectIDs[n%len(projectIDs)]
			}
			args = append(args,
				uuid.New().String(),
				fmt.Sprintf("Todo %d", n),
				n%5 == 0,
				due,
				project,
				team,
			)
		}
		q := `INSERT INTO todos (id, text, completed, due_date, project_id, team_id, created_at, updated_at) VALUES ` +
			strings.Join(placeholders, ",")
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			fmt.Fprintln(os.Stderr, "Insert failed:", err)
			os.Exit(1)
		}
		fmt.Printf("\rInserted %d / %d", (batch+1)*batchSize, total)
	}

	fmt.Printf("\nDone: %d todos for %s in %v\n", total, team, time.Since(start))
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
)

func main() {
	if len(os.Args) < 2 {
		fatalf("usage: boardtool <db-smoke|seed-catalogs> [args]")
	}

	switch os.Args[1] {
	case "db-smoke":
		dbSmoke(os.Args[2:])
	case "seed-catalogs":
		seedCatalogs(os.Args[2:])
	default:
		fatalf("unknown subcommand: %s", os.Args[1])
	}
}

func dbSmoke(args []string) {
	fs := flag.NewFlagSet("db-smoke", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var url, orgID string
	fs.StringVar(&url, "url", "", "postgres connection string")
	fs.StringVar(&orgID, "org", "00000000-0000-0000-0000-000000000001", "org uuid")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}
	if url == "" {
		fatalf("missing --url")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		fatal(err)
	}
	defer conn.Close(context.Background())

	tx, err := conn.Begin(ctx)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_org', $1, true);`, orgID); err != nil {
		fatal(err)
	}

	for _, table := range []string{
		"roster.day_bucket_items",
		"roster.lifecycle_states",
		"roster.cancellation_details",
		"roster.employees",
		"roster.statuses",
		"roster.clients",
		"roster.schedule_types",
		"iam.sessions",
	} {
		var n int64
		if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s;`, table)).Scan(&n); err != nil {
			fatalf("%s: %v", table, err)
		}
		fmt.Printf("%-30s %d\n", table, n)
	}

	fmt.Println("db-smoke: ok")
}

func seedCatalogs(args []string) {
	fs := flag.NewFlagSet("seed-catalogs", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var url, orgID string
	fs.StringVar(&url, "url", "", "postgres connection string")
	fs.StringVar(&orgID, "org", "00000000-0000-0000-0000-000000000001", "org uuid")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}
	if url == "" {
		fatalf("missing --url")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		fatal(err)
	}
	defer conn.Close(context.Background())

	tx, err := conn.Begin(ctx)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_org', $1, true);`, orgID); err != nil {
		fatal(err)
	}

	statuses := []struct {
		ID     string
		Name   string
		Color  string
		IsWith bool
		Sort   int
	}{
		{ID: "off", Name: "Off", Color: "#9e9e9e", Sort: 10},
		{ID: "training", Name: "Training", Color: "#1976d2", Sort: 20},
		{ID: "meeting", Name: "Meeting", Color: "#7b1fa2", Sort: 30},
		{ID: "paired", Name: "Paired", Color: "#00897b", IsWith: true, Sort: 40},
	}
	for _, st := range statuses {
		if _, err := tx.Exec(ctx, `
INSERT INTO roster.statuses (org_id, status_id, name, color, is_with, is_enabled, sort_order)
VALUES ($1::uuid, $2, $3, $4, $5, true, $6)
ON CONFLICT (org_id, status_id) DO NOTHING;
`, orgID, st.ID, st.Name, st.Color, st.IsWith, st.Sort); err != nil {
			fatal(err)
		}
	}

	types := []struct {
		ID   string
		Name string
		Sort int
	}{
		{ID: "intake", Name: "Intake", Sort: 10},
		{ID: "followup", Name: "Follow-up", Sort: 20},
	}
	for _, t := range types {
		if _, err := tx.Exec(ctx, `
INSERT INTO roster.schedule_types (org_id, type_id, name, sort_order)
VALUES ($1::uuid, $2, $3, $4)
ON CONFLICT (org_id, type_id) DO NOTHING;
`, orgID, t.ID, t.Name, t.Sort); err != nil {
			fatal(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		fatal(err)
	}
	fmt.Println("seed-catalogs: ok")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

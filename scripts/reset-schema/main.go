// reset-schema drops every tmdb table and clears cached dimension ids.
//
// The tables are removed by rolling the schema migrations back, so a later
// ingest run with -migrate (or -reapply here) recreates them empty. Cached ids
// in Redis point at rows that no longer exist after a reset, so keys under the
// configured prefix are deleted as well.
//
// Usage: go run ./scripts/reset-schema [-dry-run=false] [-reapply] [-config config.yaml]
//
// Database connection: Uses the same config file and PG* environment variables
// as the ingest tool.
//
// Flags:
//
//	-dry-run   Show what would be dropped without changing anything (default: true)
//	-reapply   Run the migrations again after the rollback
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-tmdb/pkg/config"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/database"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/models"
)

// tables in drop order: credits first, then the fact table, then references.
var tables = []string{
	models.TableCast,
	models.TableCrew,
	models.TableMovies,
	models.TableCollections,
	models.TableGenres,
	models.TableProductionCompanies,
	models.TableCountries,
	models.TableLanguages,
	models.TableKeywords,
}

func main() {
	dryRun := flag.Bool("dry-run", true, "Show what would be dropped without changing anything")
	reapply := flag.Bool("reapply", false, "Run the migrations again after the rollback")
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load("reset-schema", *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger := zap.NewNop()

	db, err := database.NewConnection(ctx, &database.Config{URL: cfg.Database.ConnectionString()}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to Redis: %v\n", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	if *dryRun {
		fmt.Println("DRY RUN - no changes will be made")
		fmt.Println("Run with -dry-run=false to actually drop the tables")
		fmt.Println()
	}

	total := 0
	for _, table := range tables {
		count, err := countRows(ctx, db, table)
		if err != nil {
			fmt.Printf("  %-28s missing (%v)\n", table, err)
			continue
		}
		total += count
		fmt.Printf("  %-28s %d rows\n", table, count)
	}

	keys := 0
	if redisClient != nil {
		keys, err = clearCache(ctx, redisClient, cfg.Redis.KeyPrefix, *dryRun)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to clear id cache: %v\n", err)
			os.Exit(1)
		}
	}

	if *dryRun {
		fmt.Printf("\nRows that would be dropped: %d\n", total)
		fmt.Printf("Cached ids that would be deleted: %d\n", keys)
		return
	}

	sqlDB := db.SQLDB()
	defer sqlDB.Close()

	if err := database.RollbackMigrations(sqlDB, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to roll back migrations: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDropped %d rows and deleted %d cached ids\n", total, keys)

	if *reapply {
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to reapply migrations: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Schema recreated")
	}
}

func countRows(ctx context.Context, db *database.DB, table string) (int, error) {
	var n int
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// clearCache deletes every key under prefix, or only counts them when dryRun
// is set.
func clearCache(ctx context.Context, client *redis.Client, prefix string, dryRun bool) (int, error) {
	count := 0
	iter := client.Scan(ctx, 0, prefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		count++
		if dryRun {
			continue
		}
		if err := client.Del(ctx, iter.Val()).Err(); err != nil {
			return count, fmt.Errorf("delete %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return count, fmt.Errorf("scan failed: %w", err)
	}
	return count, nil
}

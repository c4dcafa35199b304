// Command migrate-legacy moves rows from the legacy single-list playlist
// table into the playlists/playlist_tracks schema. It is a one-time
// deployment step, deliberately separate from server startup: it runs only
// when the new tables are still empty, so re-running it is harmless.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/wongsakornss/music-discovery-go/internal/config"
	"github.com/wongsakornss/music-discovery-go/internal/db"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(os.Stdout, "[migrate-legacy] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	dbPair, err := db.Init(cfg.SQLiteDBPath)
	if err != nil {
		logger.Fatalf("init database: %v", err)
	}
	defer dbPair.Close()

	migrated, err := db.MigrateLegacyPlaylists(dbPair.Writer())
	if err != nil {
		logger.Fatalf("migration failed: %v", err)
	}
	if migrated == 0 {
		logger.Println("nothing to migrate")
		return
	}
	logger.Printf("migrated legacy rows for %d user(s)", migrated)
}

// Command seed loads a JSON game catalog into the configured store.
//
// Usage:
//
//	seed -games data/games.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/Shivanand-hulikatti/event-signup/internal/config"
	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/service"
	"github.com/Shivanand-hulikatti/event-signup/internal/storage"
)

func main() {
	path := flag.String("games", "data/games.json", "JSON array of games to import")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	raw, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("read %s: %v", *path, err)
	}
	var games []model.Game
	if err := json.Unmarshal(raw, &games); err != nil {
		log.Fatalf("decode %s: %v", *path, err)
	}

	ctx := context.Background()
	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer stores.Close()

	n, err := service.NewGameService(stores.Games).Import(ctx, games)
	if err != nil {
		log.Fatalf("import: %v", err)
	}
	log.Printf("✓ Imported %d of %d games", n, len(games))
}

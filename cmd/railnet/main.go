package main

import (
	"flag"
	"log"
	"os"

	lib "github.com/prairiehistory/railnet"
	"github.com/prairiehistory/railnet/config"
)

func main() {
	tracksPath := flag.String("tracks", "tracks.json", "track segments input JSON")
	settlementsPath := flag.String("settlements", "settlements.json", "settlements input JSON")
	configPath := flag.String("config", "", "config YAML (defaults used when empty)")
	outDir := flag.String("out", "data", "output directory for the three result documents")
	flag.Parse()

	lib.InitLogging()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	tracks, err := lib.ReadTracksDocument(*tracksPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	settlements, err := lib.ReadSettlementsDocument(*settlementsPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	result, err := lib.NewPipeline(cfg).Run(tracks, settlements)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	if err := lib.WriteDocuments(*outDir, result.Network, result.Mapping, result.Connections); err != nil {
		log.Fatalf("%v", err)
	}

	result.Summary.LogAll()
	if result.Summary.FailureCount() > 0 {
		os.Exit(1)
	}
}

// Command montaged runs the montage daemon in the foreground with the default
// configuration. It is equivalent to `montage serve` and suits service
// managers that expect a dedicated binary.
package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"montage/internal/config"
	"montage/internal/daemonrun"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, _, _, err := config.Load(os.Getenv("MONTAGE_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("run daemon: %v", err)
	}
}

// Command actorhostd is the actor host daemon entry point:
//
//	actorhostd <config_path> <instance_id>
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/najoast/actorhost/bootstrap"
	"github.com/najoast/actorhost/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) != 3 {
		return fmt.Errorf("usage: %s <config_path> <instance_id>", os.Args[0])
	}

	configPath := os.Args[1]
	instanceID, err := strconv.Atoi(os.Args[2])
	if err != nil {
		return fmt.Errorf("instance_id must be an integer: %w", err)
	}

	cfg, err := config.NewLoader().Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	absConfigPath, err := filepath.Abs(configPath)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}
	if err := os.Chdir(filepath.Dir(absConfigPath)); err != nil {
		return fmt.Errorf("changing to config directory: %w", err)
	}

	app := bootstrap.NewApplication(cfg, instanceID)
	return app.Run(context.Background())
}

package main

import (
	"context"
	"log"

	"github.com/ioehub/campus-attendance/internal/server"
	"github.com/ioehub/campus-attendance/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app := server.NewApp(cfg)

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}

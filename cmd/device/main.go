package main

import (
	"context"
	"log"

	"github.com/ioehub/campus-attendance/internal/device"
	"github.com/ioehub/campus-attendance/internal/device/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app := device.NewApp(cfg)

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}

package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/veisher/licensebot/app"
	"github.com/veisher/licensebot/core/cmd"
)

func main() {
	// .env is optional; real deployments inject BOT_TOKEN via environment
	_ = godotenv.Load()

	err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config/config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return app.LoadConfig(path)
		},
		Bootstrap: func(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			return app.Bootstrap(carrier.CoreConfig())
		},
	})
	if err != nil {
		log.Fatalf("vipbot: %v", err)
	}
}

package main

import (
	"accessguard/internal/config"
	"accessguard/internal/server"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func main() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	cfg := config.Load()
	if err := config.InitLogger(cfg); err != nil {
		logrus.Warnf("init logger: %v", err)
	}

	if err := server.Run(cfg); err != nil {
		logrus.Fatalf("server exited with error: %v", err)
	}
}

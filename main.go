// file: main.go
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"CASCTF/config"
	"CASCTF/database"
	"CASCTF/routes"
	"CASCTF/services"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	database.Connect()
	database.MigrateTables()
	database.EnsureDefaults()
	database.InitRedis()

	// 启动时全量重算一次总分，修正停机期间的参数变更
	services.RecalculateAllUserScores(database.DB)

	sweeper, err := services.NewInstanceSweeper()
	if err != nil {
		log.Fatalf("Failed to create instance sweeper: %v", err)
	}
	sweeper.Start()

	// 退出信号到达时先停掉后台清理任务
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down...")
		sweeper.Stop()
		os.Exit(0)
	}()

	r := routes.SetupRouter()

	log.Printf("Starting server on %s", config.ListenAddr())
	if err := r.Run(config.ListenAddr()); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

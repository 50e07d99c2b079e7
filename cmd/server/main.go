package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"wave_back_end/internal/config"
	"wave_back_end/internal/database"
	"wave_back_end/internal/routes"
)

func main() {
	config.Load()

	database.ConnectDatabases()
	defer database.CloseScylla()

	database.InitPreparedStatements()

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	routes.Setup(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Serveur Wave Fashion démarré sur le port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("❌ Démarrage du serveur échoué: %v", err)
	}
}

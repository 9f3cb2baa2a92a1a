package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	webAdapter "diligence-backend/internal/adapters/web"
	"diligence-backend/internal/ai"
	"diligence-backend/internal/app"
	"diligence-backend/internal/core"
	"diligence-backend/internal/db"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	dealService := core.NewDealService(pool)
	fileService := core.NewFileService(pool)
	txService := core.NewTransactionService(pool)
	plService := core.NewPLService(pool)
	mappingService := core.NewMappingService(pool)

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Println("Warning: OPENAI_API_KEY is not set")
	}
	mapper := ai.NewMapper(apiKey)

	svc := app.NewAppService(pool, dealService, fileService, txService, plService, mappingService, mapper)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins)

	log.Printf("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}

package main

import (
	"log"
	"net/http"

	"docqa/internal/api"
	"docqa/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	h := api.NewServer(cfg)
	log.Printf("docqa api listening on %s retriever=%q llm_providers=%q embed_providers=%q", cfg.APIAddr, cfg.Retriever, cfg.LLMProviders, cfg.EmbedProviders)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		log.Fatal(err)
	}
}

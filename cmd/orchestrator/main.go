package main

import (
	"context"
	"log"

	"github.com/joaodurante/order-saga/internal/app/bootstrap"
)

func main() {
	ctx := context.Background()
	runtime, err := bootstrap.BuildOrchestrator(ctx, "configs/default.yaml")
	if err != nil {
		log.Fatalf("bootstrap orchestrator: %v", err)
	}
	if err := runtime.Run(ctx); err != nil {
		log.Fatalf("run orchestrator: %v", err)
	}
}

package main

import (
	"context"
	"log"

	"github.com/joaodurante/order-saga/internal/app/bootstrap"
)

func main() {
	ctx := context.Background()
	runtime, err := bootstrap.BuildProductValidation(ctx, "configs/default.yaml")
	if err != nil {
		log.Fatalf("bootstrap product-validation: %v", err)
	}
	if err := runtime.Run(ctx); err != nil {
		log.Fatalf("run product-validation: %v", err)
	}
}

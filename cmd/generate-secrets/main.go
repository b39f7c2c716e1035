package main

import (
	"fmt"
	"log"

	"github.com/tripnest/booking-service/internal/utils"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("Secret Generator for the Booking Service")
	fmt.Println("===========================================")
	fmt.Println()

	jwtSecret, auditHashKey, err := utils.GenerateServiceSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	fmt.Println("Add these to your .env file or deployment secrets:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", jwtSecret)
	fmt.Printf("AUDIT_HASH_KEY=%s\n", auditHashKey)
	fmt.Println()
	fmt.Println("Rotating AUDIT_HASH_KEY breaks correlation with existing audit rows and rate limit windows.")
	fmt.Println("===========================================")
}

// Package main is a development utility that generates a random signing secret
// for access tokens and prints it in the forms the server accepts.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
)

func main() {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		log.Fatal(err)
	}
	secret := hex.EncodeToString(randomBytes)

	fmt.Println("==========================================================")
	fmt.Println("JWT Secret Generated")
	fmt.Println("==========================================================")
	fmt.Printf("\nSecret: %s\n", secret)
	fmt.Println("\nEnvironment:")
	fmt.Printf("  export BKO_JWT_SECRET=%s\n", secret)
	fmt.Println("\nconfig.yaml:")
	fmt.Printf("  auth:\n    jwt_secret: %q\n", secret)
	fmt.Println("==========================================================")
}

// Package main prints a bcrypt hash for a password so staff accounts can be
// seeded or repaired directly in the users table.
//
//	go run ./cmd/hash 's3cret-pass'
//	echo 's3cret-pass' | go run ./cmd/hash
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/servicehub/backoffice/internal/auth"
)

func main() {
	password := ""
	if len(os.Args) > 1 {
		password = os.Args[1]
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("read password: %v", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		log.Fatal("usage: hash <password>")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(hash)
}

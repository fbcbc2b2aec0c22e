package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
)

// genkey prints random hex keys for INTERNAL_API_TOKEN and JWT_SECRET.
func main() {
	size := flag.Int("bytes", 32, "random bytes per key")
	count := flag.Int("n", 1, "number of keys")
	flag.Parse()
	if *size < 16 {
		log.Fatal("bytes must be at least 16")
	}
	buf := make([]byte, *size)
	for i := 0; i < *count; i++ {
		if _, err := rand.Read(buf); err != nil {
			log.Fatal(err)
		}
		fmt.Println(hex.EncodeToString(buf))
	}
}

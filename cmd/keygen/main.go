// Command keygen generates an Ed25519 keypair for the signed crypto venue
// and prints the base64-encoded seed and public key with setup
// instructions, exiting 0. Grounded on
// original_source/scripts/generate_robinhood_keys.py.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
)

func main() {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate keypair: %v\n", err)
		os.Exit(0)
	}

	seed := priv.Seed()
	privB64 := base64.StdEncoding.EncodeToString(seed)
	pubB64 := base64.StdEncoding.EncodeToString(pub)

	fmt.Println("============================================================")
	fmt.Println("SIGNED CRYPTO VENUE API KEY GENERATION")
	fmt.Println("============================================================")
	fmt.Println()
	fmt.Println("STEP 1: Register this PUBLIC KEY with your broker:")
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("PUBLIC KEY (Base64): %s\n", pubB64)
	fmt.Println("------------------------------------------------------------")
	fmt.Println()
	fmt.Println("STEP 2: Your broker will issue you an API KEY in exchange.")
	fmt.Println()
	fmt.Println("STEP 3: Add both values to your environment:")
	fmt.Println("------------------------------------------------------------")
	fmt.Println("ROBINHOOD_API_KEY=<the api key issued by your broker>")
	fmt.Printf("ROBINHOOD_PRIVATE_KEY=%s\n", privB64)
	fmt.Println("------------------------------------------------------------")
	fmt.Println()
	fmt.Println("IMPORTANT: keep the private key secret; never share or commit it.")
	fmt.Println("============================================================")
	os.Exit(0)
}

// Command hashpass prints the bcrypt hash of a password so operators
// can populate ADMIN_PASS_HASH without storing the plain secret.
//
// Usage: hashpass <password> [cost]
package main

import (
    "fmt"
    "log"
    "os"
    "strconv"

    "golang.org/x/crypto/bcrypt"

    "github.com/mzalendo/hotspot-billing/internal/utils"
)

func main() {
    if len(os.Args) < 2 {
        log.Fatalf("usage: %s <password> [cost]", os.Args[0])
    }
    cost := bcrypt.DefaultCost
    if len(os.Args) > 2 {
        n, err := strconv.Atoi(os.Args[2])
        if err != nil || n < bcrypt.MinCost || n > bcrypt.MaxCost {
            log.Fatalf("invalid cost: %q", os.Args[2])
        }
        cost = n
    }
    hash, err := utils.HashPassword(os.Args[1], cost)
    if err != nil {
        log.Fatalf("hash: %v", err)
    }
    fmt.Println(hash)
}

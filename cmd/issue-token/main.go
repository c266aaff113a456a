// Command issue-token mints a caller token for local testing:
//
//	issue-token --principal ryjl3-tyaaa-aaaaa-aaaba-cai --role ADMIN --ttl 1h
//
// The secret defaults to JWT_SECRET from the environment or .env.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/iliyamo/event-ticket-settlement/internal/ledger"
	"github.com/iliyamo/event-ticket-settlement/internal/utils"
)

func main() {
	_ = godotenv.Load()

	principal := flag.StringP("principal", "p", "", "caller principal (token subject)")
	role := flag.StringP("role", "r", utils.RoleUser, "role claim: USER or ADMIN")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "HS256 signing secret")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "issue-token: no secret; set JWT_SECRET or pass --secret")
		os.Exit(2)
	}
	p, err := ledger.ParsePrincipal(*principal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue-token: %v\n", err)
		os.Exit(2)
	}

	tok, err := utils.NewAccessToken(*secret, p.String(), *role, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue-token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "account %s, expires %s\n", ledger.AccountOf(p, nil).Hex(), tok.Exp.Format(time.RFC3339))
}

package main

import (
	"flag"
	"fmt"
	"time"

	"go-kuensel-scraper/internal/browser"

	log "github.com/sirupsen/logrus"
)

func main() {
	path := flag.String("path", ".cookies/cookies-facebook.json", "cookie export to check")
	flag.Parse()

	fmt.Println("🍪 Testing cookie loading...")

	cookies, err := browser.LoadCookies(*path)
	if err != nil {
		log.Fatalf("Failed to load cookies: %v", err)
	}
	fmt.Printf("✅ Loaded %d cookies\n", len(cookies))

	now := float64(time.Now().Unix())
	for _, c := range cookies {
		expiry := "session"
		if c.Expires != nil {
			expiry = time.Unix(int64(*c.Expires), 0).Format(time.DateOnly)
			if *c.Expires < now {
				expiry += " (expired)"
			}
		}
		domain := ""
		if c.Domain != nil {
			domain = *c.Domain
		}
		fmt.Printf("   %-12s %-20s %s\n", c.Name, domain, expiry)
	}
}

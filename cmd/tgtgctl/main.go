package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mdemirtas/tgtg-notifier/internal/bot"
	"github.com/mdemirtas/tgtg-notifier/internal/config"
	"github.com/mdemirtas/tgtg-notifier/internal/models"
	"github.com/mdemirtas/tgtg-notifier/internal/store"
	"github.com/mdemirtas/tgtg-notifier/internal/store/postgres"
	"github.com/mdemirtas/tgtg-notifier/internal/store/redisstore"
	"github.com/mdemirtas/tgtg-notifier/internal/store/sqlite"
	"github.com/mdemirtas/tgtg-notifier/internal/tgtg"
	"github.com/mdemirtas/tgtg-notifier/pkg/logger"
)

func main() {
	yes := flag.Bool("yes", false, "skip confirmation prompts")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Debug)

	if args[0] == "auth" {
		if err := runAuth(args[1:], cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	st, err := openStore(cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open dedup store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	switch args[0] {
	case "stats":
		err = runStats(st)
	case "recent":
		err = runRecent(st, args[1:])
	case "cleanup":
		err = runCleanup(st, args[1:], cfg)
	case "test":
		err = runTest(st)
	case "reset":
		err = runReset(st, *yes)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `tgtgctl - maintenance tool for the TGTG notifier

Usage: tgtgctl [-yes] <command>

Commands:
  stats           Show dedup store statistics
  recent [hours]  Show recently sent notifications (default: 24)
  cleanup [days]  Delete records older than N days (default: 7)
  test            Run a store round-trip self check
  reset           Delete ALL notification records
  auth <email>    Run the TGTG email-link authentication flow
`)
}

func runStats(st store.Store) error {
	stats, err := st.Stats()
	if err != nil {
		return err
	}

	fmt.Println("Dedup store statistics")
	fmt.Printf("  Total records:  %d\n", stats.TotalRecords)
	fmt.Printf("  Last 24 hours:  %d\n", stats.Records24h)
	if stats.TotalRecords > 0 {
		fmt.Printf("  Oldest sent at: %s\n", stats.OldestSentAt.Local().Format(time.RFC1123))
		fmt.Printf("  Newest sent at: %s\n", stats.NewestSentAt.Local().Format(time.RFC1123))
	}
	return nil
}

func runRecent(st store.Store, args []string) error {
	hours := 24
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed <= 0 {
			return fmt.Errorf("invalid hours value %q", args[0])
		}
		hours = parsed
	}

	records, err := st.Recent(time.Duration(hours) * time.Hour)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Printf("No notifications in the last %d hours\n", hours)
		return nil
	}

	fmt.Printf("Notifications in the last %d hours:\n", hours)
	for _, rec := range records {
		fmt.Printf("  %s — %s (%d bags)\n", rec.StoreName, rec.DisplayName, rec.ItemsAvailable)
		fmt.Printf("    pickup %s - %s, sent %s\n", rec.PickupStart, rec.PickupEnd,
			rec.SentAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runCleanup(st store.Store, args []string, cfg *config.Config) error {
	days := cfg.RetentionDays
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed <= 0 {
			return fmt.Errorf("invalid days value %q", args[0])
		}
		days = parsed
	}

	deleted, err := st.PurgeOlderThan(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d records older than %d days\n", deleted, days)

	if deleted > 0 {
		if b, err := bot.New(cfg.TelegramBotToken, cfg.TelegramChatID); err == nil {
			_ = b.Send(fmt.Sprintf("🧹 <b>Database Cleanup</b>\n\nDeleted %d old notification records (older than %d days)", deleted, days))
		}
	}
	return nil
}

// runTest exercises record, lookup and purge against the live store
// using a synthetic record dated far enough back that the purge cannot
// touch genuine data.
func runTest(st store.Store) error {
	rec := models.NotificationRecord{
		StoreID:        "self-test-store",
		StoreName:      "Self Test Store",
		ItemID:         "self-test-item",
		DisplayName:    "Self Test Bag",
		ItemsAvailable: 1,
		PickupStart:    models.CanonicalTime(time.Now().Add(-400 * 24 * time.Hour)),
		PickupEnd:      models.CanonicalTime(time.Now().Add(-400 * 24 * time.Hour).Add(2 * time.Hour)),
		SentAt:         time.Now().Add(-400 * 24 * time.Hour),
	}
	key := models.OfferKey{
		StoreID:     rec.StoreID,
		ItemID:      rec.ItemID,
		PickupStart: rec.PickupStart,
		PickupEnd:   rec.PickupEnd,
	}

	if err := st.Record(rec); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	fmt.Println("  record: OK")

	exists, err := st.Exists(key)
	if err != nil {
		return fmt.Errorf("exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("exists: recorded key not found")
	}
	fmt.Println("  lookup: OK")

	if _, err := st.PurgeOlderThan(399 * 24 * time.Hour); err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	exists, err = st.Exists(key)
	if err != nil {
		return fmt.Errorf("exists after purge: %w", err)
	}
	if exists {
		return fmt.Errorf("purge: test record survived")
	}
	fmt.Println("  purge: OK")

	fmt.Println("Store self check passed")
	return nil
}

func runReset(st store.Store, skipConfirm bool) error {
	if !skipConfirm {
		fmt.Print("This deletes ALL notification records. Type 'yes' to continue: ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.TrimSpace(strings.ToLower(answer)) != "yes" {
			fmt.Println("Reset cancelled")
			return nil
		}
	}

	if err := st.Reset(); err != nil {
		return err
	}
	fmt.Println("All notification records deleted")
	return nil
}

func runAuth(args []string, cfg *config.Config) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tgtgctl auth <email>")
	}
	email := args[0]
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%q does not look like an email address", email)
	}

	fmt.Printf("Requesting a login link for %s...\n", email)
	fmt.Println("Check your inbox and click the link from TooGoodToGo. Waiting...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := tgtg.Authenticate(ctx, email, cfg.CredentialsFile); err != nil {
		return err
	}

	fmt.Printf("Authentication successful, credentials saved to %s\n", cfg.CredentialsFile)
	return nil
}

func openStore(databaseURL string) (store.Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgres.New(databaseURL)
	case strings.HasPrefix(databaseURL, "redis://"), strings.HasPrefix(databaseURL, "rediss://"):
		return redisstore.New(databaseURL)
	default:
		return sqlite.New(databaseURL)
	}
}

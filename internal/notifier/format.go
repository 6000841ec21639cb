package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"github.com/mdemirtas/tgtg-notifier/internal/models"
)

// FormatOffer renders one offer as an HTML Telegram message. Pure:
// now is passed in so rendering is reproducible.
func FormatOffer(offer models.OfferSnapshot, location *time.Location, now time.Time) string {
	storeName := offer.Store.Name
	if offer.Store.Branch != "" {
		storeName += " " + offer.Store.Branch
	}

	parts := []string{
		fmt.Sprintf("🍽️ <b>%s</b>", html.EscapeString(storeName)),
	}

	if addr := formatLocation(offer.Store); addr != "" {
		parts = append(parts, "📍 "+html.EscapeString(addr))
	}

	parts = append(parts,
		fmt.Sprintf("🛍️ <b>%s</b>", html.EscapeString(offer.DisplayName)),
		fmt.Sprintf("📦 <b>%d</b> %s available", offer.ItemsAvailable, plural(offer.ItemsAvailable, "bag", "bags")),
	)

	if price := formatPrice(offer.Price, offer.OriginalPrice); price != "" {
		parts = append(parts, "💰 "+price)
	}

	if !offer.PickupStart.IsZero() && !offer.PickupEnd.IsZero() {
		start := offer.PickupStart.In(location)
		end := offer.PickupEnd.In(location)
		nowLocal := now.In(location)

		if label := pickupDateLabel(start, nowLocal); label != "" {
			parts = append(parts, "📅 <b>"+label+"</b>")
		}

		pickup := fmt.Sprintf("⏰ <b>Pickup:</b> %s - %s", start.Format("15:04"), end.Format("15:04"))
		if marker := urgencyMarker(start, nowLocal); marker != "" {
			pickup += " " + marker
		}
		parts = append(parts, pickup)
	}

	return strings.Join(parts, "\n")
}

// FormatSummary renders the aggregate per-cycle message, sent even when
// nothing new was found.
func FormatSummary(result CycleResult) string {
	if result.Offers == 0 {
		return "🔍 <b>TGTG Check Complete</b>\n\nNo offers found in your favorites right now.\nKeep checking back! 🤞"
	}

	return fmt.Sprintf("🔍 <b>TGTG Check Complete</b>\n\n%d %s available across %d %s.",
		result.Offers, plural(result.Offers, "offer", "offers"),
		result.Stores, plural(result.Stores, "store", "stores"))
}

func formatLocation(store models.StoreInfo) string {
	switch {
	case store.AddressLine != "" && store.City != "":
		return store.AddressLine + ", " + store.City
	case store.AddressLine != "":
		return store.AddressLine
	default:
		return store.City
	}
}

func formatPrice(price, original models.Price) string {
	if price.Code == "" {
		return ""
	}

	text := formatAmount(price)
	if original.Code != "" && original.MinorUnits > price.MinorUnits {
		text += fmt.Sprintf(" (was %s)", formatAmount(original))
	}
	return text
}

func formatAmount(price models.Price) string {
	value := float64(price.MinorUnits) / math.Pow10(price.Decimals)
	return fmt.Sprintf("%.*f %s", price.Decimals, value, price.Code)
}

func pickupDateLabel(start, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	pickupDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	days := int(pickupDay.Sub(today).Hours() / 24)

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days == 2:
		return "Day after tomorrow"
	case days > 2 && days <= 7:
		return fmt.Sprintf("%s (%d days)", start.Weekday(), days)
	case days > 7:
		return fmt.Sprintf("%s (%d days)", start.Format("02.01.2006"), days)
	default:
		return start.Format("02.01.2006")
	}
}

func urgencyMarker(start, now time.Time) string {
	until := start.Sub(now)
	switch {
	case until <= 0:
		return ""
	case until < 2*time.Hour:
		return "🔥 <b>Soon!</b>"
	case until < 6*time.Hour:
		return "⚡ <b>Today</b>"
	default:
		return ""
	}
}

func plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

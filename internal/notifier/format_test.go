package notifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatOffer(t *testing.T) {
	start := time.Date(2025, 8, 12, 18, 0, 0, 0, time.UTC)
	now := time.Date(2025, 8, 12, 9, 0, 0, 0, time.UTC)

	message := FormatOffer(pizzaPalace(start, start.Add(2*time.Hour)), time.UTC, now)

	assert.Contains(t, message, "<b>Pizza Palace</b>")
	assert.Contains(t, message, "Hauptstrasse 1, Berlin")
	assert.Contains(t, message, "<b>Surprise Bag</b>")
	assert.Contains(t, message, "<b>2</b> bags available")
	assert.Contains(t, message, "4.99 EUR (was 15.00 EUR)")
	assert.Contains(t, message, "<b>Today</b>")
	assert.Contains(t, message, "18:00 - 20:00")
}

func TestFormatOfferRendersPickupInLocalTime(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	// 16:00 UTC is 18:00 in Berlin during DST.
	start := time.Date(2025, 8, 12, 16, 0, 0, 0, time.UTC)
	now := time.Date(2025, 8, 12, 9, 0, 0, 0, time.UTC)

	message := FormatOffer(pizzaPalace(start, start.Add(2*time.Hour)), berlin, now)
	assert.Contains(t, message, "18:00 - 20:00")
}

func TestFormatOfferTomorrowLabel(t *testing.T) {
	now := time.Date(2025, 8, 12, 21, 0, 0, 0, time.UTC)
	start := time.Date(2025, 8, 13, 10, 0, 0, 0, time.UTC)

	message := FormatOffer(pizzaPalace(start, start.Add(2*time.Hour)), time.UTC, now)
	assert.Contains(t, message, "<b>Tomorrow</b>")
}

func TestFormatOfferSoonMarker(t *testing.T) {
	now := time.Date(2025, 8, 12, 17, 0, 0, 0, time.UTC)
	start := now.Add(time.Hour)

	message := FormatOffer(pizzaPalace(start, start.Add(2*time.Hour)), time.UTC, now)
	assert.Contains(t, message, "Soon!")
}

func TestFormatOfferEscapesHTML(t *testing.T) {
	start := time.Date(2025, 8, 12, 18, 0, 0, 0, time.UTC)
	offer := pizzaPalace(start, start.Add(2*time.Hour))
	offer.Store.Name = "Fish & Chips <Deluxe>"

	message := FormatOffer(offer, time.UTC, start)
	assert.Contains(t, message, "Fish &amp; Chips &lt;Deluxe&gt;")
	assert.NotContains(t, message, "<Deluxe>")
}

func TestFormatOfferWithoutPickupWindow(t *testing.T) {
	offer := pizzaPalace(time.Time{}, time.Time{})

	message := FormatOffer(offer, time.UTC, time.Now())
	assert.Contains(t, message, "Pizza Palace")
	assert.NotContains(t, message, "Pickup:")
}

func TestFormatSummary(t *testing.T) {
	assert.Contains(t, FormatSummary(CycleResult{}), "No offers found")
	assert.Contains(t, FormatSummary(CycleResult{Offers: 1, Stores: 1}), "1 offer available across 1 store.")
	assert.Contains(t, FormatSummary(CycleResult{Offers: 3, Stores: 2}), "3 offers available across 2 stores.")
}

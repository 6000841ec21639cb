package models

import "time"

// StoreInfo describes the favorited store an offer belongs to.
type StoreInfo struct {
	ID          string
	Name        string
	Branch      string
	AddressLine string
	City        string
	Country     string
}

// Price is an amount in minor units, e.g. 499 with 2 decimals is 4.99.
type Price struct {
	MinorUnits int64
	Decimals   int
	Code       string
}

// OfferSnapshot is one favorite-store offer as returned by a single poll.
// It is read-only input; the upstream API owns its lifecycle.
type OfferSnapshot struct {
	ItemID         string
	DisplayName    string
	Description    string
	ItemsAvailable int
	Price          Price
	OriginalPrice  Price
	PickupStart    time.Time
	PickupEnd      time.Time
	Store          StoreInfo
}

// NotificationRecord marks that a notification went out for one offer.
// At most one record exists per (store, item, pickup window) at any time.
type NotificationRecord struct {
	ID             int64
	StoreID        string
	StoreName      string
	ItemID         string
	DisplayName    string
	ItemsAvailable int
	PickupStart    string
	PickupEnd      string
	SentAt         time.Time
}

// StoreStats are aggregate counters over the dedup store.
type StoreStats struct {
	TotalRecords int64
	Records24h   int64
	OldestSentAt time.Time
	NewestSentAt time.Time
}

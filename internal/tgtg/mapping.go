package tgtg

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mdemirtas/tgtg-notifier/internal/models"
)

// flexID tolerates the API sending identifiers as either JSON strings
// or numbers; older payloads differ from newer ones here.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier is neither string nor number: %s", data)
	}
	*f = flexID(n.String())
	return nil
}

type pricePayload struct {
	Code       string `json:"code"`
	MinorUnits int64  `json:"minor_units"`
	Decimals   int    `json:"decimals"`
}

type itemPayload struct {
	Item struct {
		ItemID flexID       `json:"item_id"`
		Price  pricePayload `json:"price_including_taxes"`
		Value  pricePayload `json:"value_including_taxes"`
	} `json:"item"`
	DisplayName    string `json:"display_name"`
	Description    string `json:"description"`
	ItemsAvailable int    `json:"items_available"`
	PickupInterval struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"pickup_interval"`
	Store struct {
		StoreID       flexID `json:"store_id"`
		StoreName     string `json:"store_name"`
		Branch        string `json:"branch"`
		StoreLocation struct {
			Address struct {
				AddressLine string `json:"address_line"`
				City        string `json:"city"`
				Country     struct {
					Name string `json:"name"`
				} `json:"country"`
			} `json:"address"`
		} `json:"store_location"`
	} `json:"store"`
}

type listItemsResponse struct {
	Items []itemPayload `json:"items"`
}

// mapOffer is the ingestion boundary: everything past here works with
// typed snapshots, and malformed payloads fail loudly instead of
// leaking bad values into the dedup key.
func mapOffer(item itemPayload) (models.OfferSnapshot, error) {
	if item.Item.ItemID == "" {
		return models.OfferSnapshot{}, fmt.Errorf("item has no item_id")
	}
	if item.Store.StoreID == "" {
		return models.OfferSnapshot{}, fmt.Errorf("item %s has no store_id", item.Item.ItemID)
	}

	start, err := parsePickupTime(item.PickupInterval.Start)
	if err != nil {
		return models.OfferSnapshot{}, fmt.Errorf("pickup start: %v", err)
	}
	end, err := parsePickupTime(item.PickupInterval.End)
	if err != nil {
		return models.OfferSnapshot{}, fmt.Errorf("pickup end: %v", err)
	}

	return models.OfferSnapshot{
		ItemID:         string(item.Item.ItemID),
		DisplayName:    item.DisplayName,
		Description:    item.Description,
		ItemsAvailable: item.ItemsAvailable,
		Price: models.Price{
			MinorUnits: item.Item.Price.MinorUnits,
			Decimals:   item.Item.Price.Decimals,
			Code:       item.Item.Price.Code,
		},
		OriginalPrice: models.Price{
			MinorUnits: item.Item.Value.MinorUnits,
			Decimals:   item.Item.Value.Decimals,
			Code:       item.Item.Value.Code,
		},
		PickupStart: start,
		PickupEnd:   end,
		Store: models.StoreInfo{
			ID:          string(item.Store.StoreID),
			Name:        item.Store.StoreName,
			Branch:      item.Store.Branch,
			AddressLine: item.Store.StoreLocation.Address.AddressLine,
			City:        item.Store.StoreLocation.Address.City,
			Country:     item.Store.StoreLocation.Address.Country.Name,
		},
	}, nil
}

func parsePickupTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %v", value, err)
	}
	return t, nil
}

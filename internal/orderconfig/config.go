// Package orderconfig models the per-client order configuration document.
//
// A document arrives as a loose RawDocument (every field any historical
// client ever wrote) and leaves Normalize as one of three variants:
// *FoodConfig (Food and Meal), *BoxesConfig or *CustomConfig. Each variant
// carries only the fields legal for its service type, and marshals to
// exactly those keys.
package orderconfig

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/homedeliver/api/internal/enum"
	"github.com/shopspring/decimal"
)

// ErrUnknownServiceType is returned when a document declares a service type
// outside the fixed enumeration.
var ErrUnknownServiceType = errors.New("unknown service type")

// Configuration is a normalized, schema-conforming order configuration.
type Configuration interface {
	// Type returns the service type tag.
	Type() string
	// Raw converts the variant back to the loose document shape.
	Raw() RawDocument
	// Shared returns the fields every variant carries.
	Shared() Common

	sealed()
}

// Common holds the optional fields every service type may carry.
type Common struct {
	CaseID string
	Notes  string
}

// VendorSelection is one vendor's items within a Food/Meal configuration.
// An empty VendorID means "no vendor chosen".
type VendorSelection struct {
	VendorID  string            `json:"vendorId,omitempty"`
	Items     Quantities        `json:"items,omitempty"`
	ItemNotes map[string]string `json:"itemNotes,omitempty"`
}

// DayOrder holds the selections for one delivery weekday.
type DayOrder struct {
	VendorSelections []VendorSelection `json:"vendorSelections,omitempty"`
}

// MealSelection holds the selection for one meal key (e.g. "Breakfast").
type MealSelection struct {
	VendorID  string            `json:"vendorId,omitempty"`
	Items     Quantities        `json:"items,omitempty"`
	ItemNotes map[string]string `json:"itemNotes,omitempty"`
}

// BoxOrder is one subscription box line. A zero Quantity means unset and
// counts as one box.
type BoxOrder struct {
	BoxTypeID  string                     `json:"boxTypeId,omitempty"`
	VendorID   string                     `json:"vendorId,omitempty"`
	Quantity   int                        `json:"quantity,omitempty"`
	Items      Quantities                 `json:"items,omitempty"`
	ItemNotes  map[string]string          `json:"itemNotes,omitempty"`
	ItemPrices map[string]decimal.Decimal `json:"itemPrices,omitempty"`
}

// Boxes returns the effective number of boxes.
func (b BoxOrder) Boxes() int {
	if b.Quantity <= 0 {
		return 1
	}
	return b.Quantity
}

// RawDocument is the loose wire shape of a configuration document. It is a
// superset of every variant plus the legacy flat box fields.
type RawDocument struct {
	ServiceType       string                   `json:"serviceType,omitempty"`
	CaseID            string                   `json:"caseId,omitempty"`
	Notes             string                   `json:"notes,omitempty"`
	VendorSelections  []VendorSelection        `json:"vendorSelections,omitempty"`
	DeliveryDayOrders map[string]DayOrder      `json:"deliveryDayOrders,omitempty"`
	MealSelections    map[string]MealSelection `json:"mealSelections,omitempty"`
	BoxOrders         []BoxOrder               `json:"boxOrders,omitempty"`
	VendorID          string                   `json:"vendorId,omitempty"`
	DeliveryDay       string                   `json:"deliveryDay,omitempty"`
	CustomName        string                   `json:"custom_name,omitempty"`
	CustomPrice       *decimal.Decimal         `json:"custom_price,omitempty"`

	// Legacy single-box shape, read only.
	BoxTypeID   string                     `json:"boxTypeId,omitempty"`
	BoxQuantity int                        `json:"boxQuantity,omitempty"`
	Items       json.RawMessage            `json:"items,omitempty"`
	ItemPrices  map[string]decimal.Decimal `json:"itemPrices,omitempty"`
}

// HasContent reports whether the document carries any order data.
func (d RawDocument) HasContent() bool {
	return len(d.VendorSelections) > 0 ||
		len(d.DeliveryDayOrders) > 0 ||
		len(d.MealSelections) > 0 ||
		len(d.BoxOrders) > 0 ||
		d.BoxTypeID != "" ||
		d.CustomName != "" ||
		d.CustomPrice != nil
}

// Parse decodes a raw configuration document.
func Parse(data []byte) (RawDocument, error) {
	var doc RawDocument
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return RawDocument{}, fmt.Errorf("parse order config: %w", err)
	}
	return doc, nil
}

// FoodConfig is the Food and Meal variant.
type FoodConfig struct {
	ServiceType       string
	Common            Common
	VendorSelections  []VendorSelection
	DeliveryDayOrders map[string]DayOrder
	MealSelections    map[string]MealSelection
}

func (c *FoodConfig) Type() string   { return c.ServiceType }
func (c *FoodConfig) Shared() Common { return c.Common }
func (c *FoodConfig) sealed()        {}

func (c *FoodConfig) Raw() RawDocument {
	return RawDocument{
		ServiceType:       c.ServiceType,
		CaseID:            c.Common.CaseID,
		Notes:             c.Common.Notes,
		VendorSelections:  c.VendorSelections,
		DeliveryDayOrders: c.DeliveryDayOrders,
		MealSelections:    c.MealSelections,
	}
}

func (c *FoodConfig) MarshalJSON() ([]byte, error) { return json.Marshal(c.Raw()) }

// BoxesConfig is the Boxes variant.
type BoxesConfig struct {
	Common    Common
	BoxOrders []BoxOrder
}

func (c *BoxesConfig) Type() string   { return enum.ServiceTypeBoxes }
func (c *BoxesConfig) Shared() Common { return c.Common }
func (c *BoxesConfig) sealed()        {}

func (c *BoxesConfig) Raw() RawDocument {
	return RawDocument{
		ServiceType: enum.ServiceTypeBoxes,
		CaseID:      c.Common.CaseID,
		Notes:       c.Common.Notes,
		BoxOrders:   c.BoxOrders,
	}
}

func (c *BoxesConfig) MarshalJSON() ([]byte, error) { return json.Marshal(c.Raw()) }

// CustomConfig is the Custom variant: a single free-form item at a declared price.
type CustomConfig struct {
	Common      Common
	VendorID    string
	DeliveryDay string
	CustomName  string
	CustomPrice *decimal.Decimal
}

func (c *CustomConfig) Type() string   { return enum.ServiceTypeCustom }
func (c *CustomConfig) Shared() Common { return c.Common }
func (c *CustomConfig) sealed()        {}

func (c *CustomConfig) Raw() RawDocument {
	return RawDocument{
		ServiceType: enum.ServiceTypeCustom,
		CaseID:      c.Common.CaseID,
		Notes:       c.Common.Notes,
		VendorID:    c.VendorID,
		DeliveryDay: c.DeliveryDay,
		CustomName:  c.CustomName,
		CustomPrice: c.CustomPrice,
	}
}

func (c *CustomConfig) MarshalJSON() ([]byte, error) { return json.Marshal(c.Raw()) }

// Price returns the declared price, zero when unset.
func (c *CustomConfig) Price() decimal.Decimal {
	if c.CustomPrice == nil {
		return decimal.Zero
	}
	return *c.CustomPrice
}

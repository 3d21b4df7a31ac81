// Package model holds the read-only records the map consumes from the
// Daurin collaborator API.
//
// Records are projections: the map never writes them back. Coordinates are
// optional on every record; a record without both latitude and longitude is
// fetched normally but never placed on the map.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"
)

// Facility categories as keyed by the /facilities response.
const (
	CategoryBankSampah = "bankSampah"
	CategoryLembagaTPA = "lembagaTpa"
	CategoryTPA        = "tpa"
	CategoryTPST3R     = "tpst3r"
)

// Categories lists the facility categories in response order.
var Categories = []string{CategoryBankSampah, CategoryLembagaTPA, CategoryTPA, CategoryTPST3R}

// Coordinates is embedded by every record that can be placed on the map.
type Coordinates struct {
	Latitude  *float64 `json:"latitude" db:"latitude" doc:"Latitude (WGS84), null when unknown"`
	Longitude *float64 `json:"longitude" db:"longitude" doc:"Longitude (WGS84), null when unknown"`
}

// Location returns the record position as an orb point (lng, lat).
func (c Coordinates) Location() (orb.Point, bool) {
	if c.Latitude == nil || c.Longitude == nil {
		return orb.Point{}, false
	}
	return orb.Point{*c.Longitude, *c.Latitude}, true
}

// At is a convenience constructor used by seeds and tests.
func At(lat, lng float64) Coordinates {
	return Coordinates{Latitude: &lat, Longitude: &lng}
}

// Rating is a 0-5 score. The API sends a number, the string "N/A", or null
// when there are no reviews.
type Rating struct {
	Value float64
	Valid bool
}

// RatingOf returns a valid rating.
func RatingOf(v float64) Rating { return Rating{Value: v, Valid: true} }

// String formats the rating with one decimal, or N/A.
func (r Rating) String() string {
	if !r.Valid || r.Value <= 0 {
		return "N/A"
	}
	return strconv.FormatFloat(r.Value, 'f', 1, 64)
}

// Schema describes the wire form of a rating for OpenAPI.
func (r Rating) Schema(huma.Registry) *huma.Schema {
	return &huma.Schema{
		Description: "Rating 0-5, or N/A when there are no reviews",
		OneOf: []*huma.Schema{
			{Type: huma.TypeNumber, Minimum: ptr(0.0), Maximum: ptr(5.0)},
			{Type: huma.TypeString, Enum: []any{"N/A"}},
		},
	}
}

func ptr[T any](v T) *T { return &v }

func (r Rating) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte(`"N/A"`), nil
	}
	return json.Marshal(r.Value)
}

func (r *Rating) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = Rating{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, "N/A") {
			*r = Rating{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid rating %q: %w", s, err)
		}
		*r = RatingOf(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = RatingOf(v)
	return nil
}

// FacilityRecord is a fixed waste-processing site.
type FacilityRecord struct {
	ID          string `json:"id" db:"id" doc:"Facility identifier"`
	Name        string `json:"name" db:"name" doc:"Display name"`
	Address     string `json:"address" db:"address" doc:"Street address"`
	Type        string `json:"type" db:"type" doc:"Facility type label"`
	Village     string `json:"village,omitempty" db:"village" doc:"Kelurahan / desa"`
	SubDistrict string `json:"subDistrict,omitempty" db:"sub_district" doc:"Kecamatan"`
	Capacity    string `json:"capacity,omitempty" db:"capacity" doc:"Capacity as published, e.g. 20 ton/hari"`
	Coordinates
}

// Facilities is the /facilities response keyed by category.
type Facilities struct {
	BankSampah []FacilityRecord `json:"bankSampah" doc:"Bank sampah sites"`
	LembagaTPA []FacilityRecord `json:"lembagaTpa" doc:"Lembaga pengelola TPA"`
	TPA        []FacilityRecord `json:"tpa" doc:"Landfills"`
	TPST3R     []FacilityRecord `json:"tpst3r" doc:"TPST 3R recycling centers"`
}

// ByCategory returns the records for a category key.
func (f *Facilities) ByCategory(category string) ([]FacilityRecord, bool) {
	switch category {
	case CategoryBankSampah:
		return f.BankSampah, true
	case CategoryLembagaTPA:
		return f.LembagaTPA, true
	case CategoryTPA:
		return f.TPA, true
	case CategoryTPST3R:
		return f.TPST3R, true
	}
	return nil, false
}

// Put appends a record to a category.
func (f *Facilities) Put(category string, rec FacilityRecord) error {
	switch category {
	case CategoryBankSampah:
		f.BankSampah = append(f.BankSampah, rec)
	case CategoryLembagaTPA:
		f.LembagaTPA = append(f.LembagaTPA, rec)
	case CategoryTPA:
		f.TPA = append(f.TPA, rec)
	case CategoryTPST3R:
		f.TPST3R = append(f.TPST3R, rec)
	default:
		return fmt.Errorf("unknown facility category %q", category)
	}
	return nil
}

// CollectorRecord is an approved pengepul.
type CollectorRecord struct {
	ID               string   `json:"id" doc:"Pengepul identifier"`
	CompanyName      string   `json:"companyName" doc:"Company display name"`
	OwnerName        string   `json:"ownerName,omitempty" doc:"Owner name"`
	Rating           Rating   `json:"rating" doc:"Average rating 0-5 or N/A"`
	ReviewCount      int      `json:"reviewCount" doc:"Number of reviews"`
	Materials        []string `json:"materials" doc:"Specialised materials"`
	OperatingAreas   []string `json:"operatingAreas" doc:"Operating area names"`
	TotalCollections int      `json:"totalCollections" doc:"Completed collections"`
	TotalWeightKg    float64  `json:"totalWeightKg" doc:"Total weight collected in kg"`
	WorkingHours     string   `json:"workingHours,omitempty" doc:"Working hours"`
	WhatsApp         string   `json:"whatsapp,omitempty" doc:"WhatsApp number"`
	Address          string   `json:"address" doc:"Address"`
	Coordinates
}

// CrafterRecord is an approved pengrajin.
type CrafterRecord struct {
	ID              string   `json:"id" doc:"Pengrajin identifier"`
	Name            string   `json:"name" doc:"Display name"`
	Rating          Rating   `json:"rating" doc:"Average rating 0-5 or N/A"`
	ReviewCount     int      `json:"reviewCount" doc:"Number of reviews"`
	CraftTypes      []string `json:"craftTypes" doc:"Craft types"`
	Materials       []string `json:"materials" doc:"Specialised materials"`
	Portfolio       []string `json:"portfolio" doc:"Portfolio image URLs"`
	ExperienceYears int      `json:"experienceYears" doc:"Years of experience"`
	TotalSales      int      `json:"totalSales" doc:"Products sold"`
	TotalProducts   int      `json:"totalProducts" doc:"Products listed"`
	WhatsApp        string   `json:"whatsapp,omitempty" doc:"WhatsApp number"`
	WorkshopAddress string   `json:"workshopAddress" doc:"Workshop address"`
	Coordinates
}

// OfferType distinguishes sale listings from donations.
type OfferType string

const (
	OfferSell   OfferType = "SELL"
	OfferDonate OfferType = "DONATE"
)

// WasteOfferRecord is a visible listing of material for sale or donation.
type WasteOfferRecord struct {
	ID           string    `json:"id" doc:"Offer identifier"`
	Title        string    `json:"title" doc:"Listing title"`
	MaterialType string    `json:"materialType" doc:"Material type"`
	WeightKg     float64   `json:"weightKg" doc:"Weight in kg"`
	OfferType    OfferType `json:"offerType" enum:"SELL,DONATE" doc:"SELL or DONATE"`
	Price        *int64    `json:"price,omitempty" doc:"Price in rupiah, SELL only"`
	Address      string    `json:"address" doc:"Pickup address"`
	OwnerID      string    `json:"ownerId" doc:"Owner user id"`
	OwnerName    string    `json:"ownerName" doc:"Owner display name"`
	WhatsApp     string    `json:"whatsapp,omitempty" doc:"WhatsApp number"`
	Description  string    `json:"description,omitempty" doc:"Free text description"`
	Images       []string  `json:"images" doc:"Image URLs"`
	Coordinates
}

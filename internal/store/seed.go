package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/daurin/internal/model"
)

// SeedCollector is a collector with its approval status.
type SeedCollector struct {
	model.CollectorRecord
	Status string `json:"status,omitempty"`
}

// SeedCrafter is a crafter with its approval status.
type SeedCrafter struct {
	model.CrafterRecord
	Status string `json:"status,omitempty"`
}

// SeedOffer is a waste offer with its availability.
type SeedOffer struct {
	model.WasteOfferRecord
	Status string `json:"status,omitempty"`
}

// Seed is the content of a seed file. Records without a status are
// approved (partners) or available (offers).
type Seed struct {
	Facilities  model.Facilities `json:"facilities"`
	Pengepuls   []SeedCollector  `json:"pengepuls"`
	Pengrajins  []SeedCrafter    `json:"pengrajins"`
	WasteOffers []SeedOffer      `json:"wasteOffers"`
}

// ReadSeed parses a YAML (or JSON) seed file. Keys follow the API's JSON
// field names.
func ReadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes YAML through the records' JSON mapping, so seeds and API
// responses share one set of field names.
func ParseSeed(data []byte) (*Seed, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}
	var s Seed
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}
	return &s, nil
}

// SeedCounts reports rows written per table.
type SeedCounts struct {
	Facilities  int `json:"facilities"`
	Pengepuls   int `json:"pengepuls"`
	Pengrajins  int `json:"pengrajins"`
	WasteOffers int `json:"wasteOffers"`
}

// Load inserts the seed in one transaction. Rows whose id already exists
// are left alone.
func (s *Store) Load(ctx context.Context, seed *Seed) (SeedCounts, error) {
	var counts SeedCounts
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return counts, err
	}
	defer tx.Rollback()

	for _, cat := range model.Categories {
		recs, _ := seed.Facilities.ByCategory(cat)
		for _, rec := range recs {
			res, err := tx.NamedExecContext(ctx, `INSERT INTO facilities
				(id, category, name, address, type, village, sub_district, capacity, latitude, longitude)
				VALUES (:id, :category, :name, :address, :type, :village, :sub_district, :capacity, :latitude, :longitude)
				ON CONFLICT (id) DO NOTHING`, facilityRow{Category: cat, FacilityRecord: rec})
			if err != nil {
				return counts, fmt.Errorf("seeding facility %s: %w", rec.ID, err)
			}
			counts.Facilities += affected(res)
		}
	}

	for _, c := range seed.Pengepuls {
		row := collectorRow{
			ID: c.ID, CompanyName: c.CompanyName, OwnerName: c.OwnerName,
			Rating: nullRating(c.Rating), ReviewCount: c.ReviewCount,
			Materials: c.Materials, OperatingAreas: c.OperatingAreas,
			TotalCollections: c.TotalCollections, TotalWeightKg: c.TotalWeightKg,
			WorkingHours: c.WorkingHours, WhatsApp: c.WhatsApp, Address: c.Address,
			Status: orDefault(c.Status, StatusApproved), Coordinates: c.Coordinates,
		}
		res, err := tx.NamedExecContext(ctx, `INSERT INTO pengepuls
			(id, company_name, owner_name, rating, review_count, materials, operating_areas,
			 total_collections, total_weight_kg, working_hours, whatsapp, address, latitude, longitude, status)
			VALUES (:id, :company_name, :owner_name, :rating, :review_count, :materials, :operating_areas,
			 :total_collections, :total_weight_kg, :working_hours, :whatsapp, :address, :latitude, :longitude, :status)
			ON CONFLICT (id) DO NOTHING`, row)
		if err != nil {
			return counts, fmt.Errorf("seeding pengepul %s: %w", c.ID, err)
		}
		counts.Pengepuls += affected(res)
	}

	for _, c := range seed.Pengrajins {
		row := crafterRow{
			ID: c.ID, Name: c.Name, Rating: nullRating(c.Rating), ReviewCount: c.ReviewCount,
			CraftTypes: c.CraftTypes, Materials: c.Materials, Portfolio: c.Portfolio,
			ExperienceYears: c.ExperienceYears, TotalSales: c.TotalSales, TotalProducts: c.TotalProducts,
			WhatsApp: c.WhatsApp, WorkshopAddress: c.WorkshopAddress,
			Status: orDefault(c.Status, StatusApproved), Coordinates: c.Coordinates,
		}
		res, err := tx.NamedExecContext(ctx, `INSERT INTO pengrajins
			(id, name, rating, review_count, craft_types, materials, portfolio, experience_years,
			 total_sales, total_products, whatsapp, workshop_address, latitude, longitude, status)
			VALUES (:id, :name, :rating, :review_count, :craft_types, :materials, :portfolio, :experience_years,
			 :total_sales, :total_products, :whatsapp, :workshop_address, :latitude, :longitude, :status)
			ON CONFLICT (id) DO NOTHING`, row)
		if err != nil {
			return counts, fmt.Errorf("seeding pengrajin %s: %w", c.ID, err)
		}
		counts.Pengrajins += affected(res)
	}

	for _, o := range seed.WasteOffers {
		row := offerRow{
			ID: o.ID, Title: o.Title, MaterialType: o.MaterialType, WeightKg: o.WeightKg,
			OfferType: o.OfferType, Address: o.Address, OwnerID: o.OwnerID, OwnerName: o.OwnerName,
			WhatsApp: o.WhatsApp, Description: o.Description, Images: o.Images,
			Status: orDefault(o.Status, StatusAvailable), Coordinates: o.Coordinates,
		}
		if o.Price != nil {
			row.Price.Int64, row.Price.Valid = *o.Price, true
		}
		res, err := tx.NamedExecContext(ctx, `INSERT INTO waste_offers
			(id, title, material_type, weight_kg, offer_type, price, address, owner_id, owner_name,
			 whatsapp, description, images, latitude, longitude, status)
			VALUES (:id, :title, :material_type, :weight_kg, :offer_type, :price, :address, :owner_id, :owner_name,
			 :whatsapp, :description, :images, :latitude, :longitude, :status)
			ON CONFLICT (id) DO NOTHING`, row)
		if err != nil {
			return counts, fmt.Errorf("seeding waste offer %s: %w", o.ID, err)
		}
		counts.WasteOffers += affected(res)
	}

	if err := tx.Commit(); err != nil {
		return counts, err
	}
	s.log.Info("seed loaded", "facilities", counts.Facilities, "pengepuls", counts.Pengepuls,
		"pengrajins", counts.Pengrajins, "wasteOffers", counts.WasteOffers)
	return counts, nil
}

type rowsAffected interface{ RowsAffected() (int64, error) }

func affected(res rowsAffected) int {
	n, err := res.RowsAffected()
	if err != nil {
		return 1
	}
	return int(n)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

package config

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"p9e.in/energydesk/pkg/authz"
	"p9e.in/energydesk/pkg/records"
)

// seedIdentity is the admin the sample data is created as.
var seedIdentity = authz.Identity{UserID: "system_seed", Role: authz.RoleAdmin}

// sampleRecords are development fixtures. They go through the record service
// so they obey the same validation as API traffic.
var sampleRecords = []map[string]any{
	{
		"businessName":          "Acme Ltd",
		"mpanMprn":              "1200023456789",
		"soldDate":              "2025-01-01",
		"siteAddress":           "1 Road, Leeds LS1 1AA",
		"ssd":                   0.0,
		"eac":                   18500.0,
		"standingCharges":       32.5,
		"dayPrice":              0.25,
		"nightPrice":            0.15,
		"terms":                 36.0,
		"kva":                   50.0,
		"uplift":                0.01,
		"commission":            555.0,
		"totalCommission":       1665.0,
		"partnerSaleCommission": 120.0,
		"supplier":              "SupplierX",
		"customerName":          "Jane Doe",
		"email":                 "jane@acme.example",
		"contactNumber":         "07123456789",
		"status":                "in discussion",
	},
	{
		"businessName":          "Northern Bakery Co",
		"mpanMprn":              "8837261",
		"soldDate":              "2025-03-14",
		"siteAddress":           "Unit 4, Mill Lane, York YO1 7HH",
		"ssd":                   0.0,
		"eac":                   42000.0,
		"standingCharges":       45.0,
		"dayPrice":              0.071,
		"nightPrice":            0.0,
		"terms":                 24.0,
		"kva":                   0.0,
		"uplift":                0.005,
		"commission":            420.0,
		"totalCommission":       840.0,
		"partnerSaleCommission": 0.0,
		"supplier":              "GasCo",
		"customerName":          "Tom Baker",
		"email":                 "tom@northernbakery.example",
		"contactNumber":         "01904555123",
		"reasonForNotLive":      "Awaiting change of tenancy",
		"status":                "in progress",
	},
}

// SeedSampleRecords creates the development fixtures when the store is empty.
func SeedSampleRecords(ctx context.Context, svc *records.Service, logger *zap.Logger) error {
	existing, err := svc.List(ctx, seedIdentity)
	if err != nil {
		return fmt.Errorf("check existing records: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("Skipping sample data, store already has records", zap.Int("count", len(existing)))
		return nil
	}

	for _, input := range sampleRecords {
		rec, err := svc.Create(ctx, seedIdentity, input)
		if err != nil {
			return fmt.Errorf("seed %v: %w", input["businessName"], err)
		}
		logger.Info("Seeded client record",
			zap.String("record_id", rec.ID),
			zap.String("business_name", rec.BusinessName),
		)
	}
	return nil
}

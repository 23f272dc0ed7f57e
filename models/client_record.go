// models/client_record.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"p9e.in/energydesk/validation"
)

type RecordStatus string

const (
	StatusInProgress   RecordStatus = "in progress"
	StatusInDiscussion RecordStatus = "in discussion"
	StatusCompleted    RecordStatus = "completed"
)

// DefaultStatus is applied when a payload omits status.
const DefaultStatus = StatusInDiscussion

// ClientRecordFields holds every caller-supplied field of a client record.
type ClientRecordFields struct {
	BusinessName          string       `json:"businessName" gorm:"size:255;not null" bson:"businessName" validate:"required"`
	MpanMprn              string       `json:"mpanMprn" gorm:"size:100;not null" bson:"mpanMprn" validate:"required"`
	SoldDate              string       `json:"soldDate" gorm:"size:40;not null" bson:"soldDate" validate:"required"`
	SiteAddress           string       `json:"siteAddress" gorm:"type:text;not null" bson:"siteAddress" validate:"required"`
	SSD                   float64      `json:"ssd" gorm:"column:ssd;not null" bson:"ssd" validate:"gte=0"`
	EAC                   float64      `json:"eac" gorm:"column:eac;not null" bson:"eac" validate:"gte=0"`
	StandingCharges       float64      `json:"standingCharges" gorm:"not null" bson:"standingCharges" validate:"gte=0"`
	DayPrice              float64      `json:"dayPrice" gorm:"not null" bson:"dayPrice" validate:"gte=0"`
	NightPrice            float64      `json:"nightPrice" gorm:"not null" bson:"nightPrice" validate:"gte=0"`
	Terms                 int64        `json:"terms" gorm:"not null" bson:"terms" validate:"gte=1"`
	KVA                   float64      `json:"kva" gorm:"column:kva;not null" bson:"kva" validate:"gte=0"`
	Uplift                float64      `json:"uplift" gorm:"not null" bson:"uplift" validate:"gte=0"`
	Commission            float64      `json:"commission" gorm:"not null" bson:"commission" validate:"gte=0"`
	TotalCommission       float64      `json:"totalCommission" gorm:"not null" bson:"totalCommission" validate:"gte=0"`
	PartnerSaleCommission float64      `json:"partnerSaleCommission" gorm:"not null" bson:"partnerSaleCommission" validate:"gte=0"`
	Supplier              string       `json:"supplier" gorm:"size:255;not null" bson:"supplier" validate:"required"`
	CustomerName          string       `json:"customerName" gorm:"size:255;not null" bson:"customerName" validate:"required"`
	Email                 string       `json:"email" gorm:"size:255;not null" bson:"email" validate:"email"`
	ContactNumber         string       `json:"contactNumber" gorm:"size:50;not null" bson:"contactNumber" validate:"min=10"`
	ReasonForNotLive      string       `json:"reasonForNotLive,omitempty" gorm:"type:text" bson:"reasonForNotLive"`
	Status                RecordStatus `json:"status" gorm:"size:20;not null;default:'in discussion'" bson:"status" validate:"oneof='in progress' 'in discussion' 'completed'"`
}

// ClientRecord is a stored client record. Timestamps are owned by the record
// service, so gorm's automatic time tracking is switched off.
type ClientRecord struct {
	ID                 string `json:"_id" gorm:"primaryKey;size:36"`
	ClientRecordFields `gorm:"embedded"`
	CreatedAt          time.Time `json:"createdAt" gorm:"not null;autoCreateTime:false"`
	UpdatedAt          time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime:false"`
}

func (ClientRecord) TableName() string {
	return "client_records"
}

func (c *ClientRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return
}

// fieldMessages are the reasons reported when a field fails its rule.
var fieldMessages = map[string]string{
	"businessName":          "Business name is required",
	"mpanMprn":              "MPAN/MPRN is required",
	"soldDate":              "Sold date is required",
	"siteAddress":           "Site address is required",
	"ssd":                   "SSD must be positive",
	"eac":                   "EAC must be positive",
	"standingCharges":       "Standing charges must be positive",
	"dayPrice":              "Day price must be positive",
	"nightPrice":            "Night price must be positive",
	"terms":                 "Terms must be at least 1",
	"kva":                   "KVA must be positive",
	"uplift":                "Uplift must be positive",
	"commission":            "Commission must be positive",
	"totalCommission":       "Total commission must be positive",
	"partnerSaleCommission": "Partner sale commission must be positive",
	"supplier":              "Supplier is required",
	"customerName":          "Customer name is required",
	"email":                 "Valid email is required",
	"contactNumber":         "Valid contact number is required",
	"status":                "Status must be one of: in progress, in discussion, completed",
}

// ParseClientRecordInput turns a decoded JSON object into record fields.
// Every violated field is reported; unknown keys, and any id or timestamp the
// caller sends, are ignored. A nil map reports every required field.
func ParseClientRecordInput(raw map[string]any) (ClientRecordFields, validation.Violations) {
	v := validation.Violations{}
	f := ClientRecordFields{
		BusinessName:          requiredString(raw, "businessName", v),
		MpanMprn:              requiredString(raw, "mpanMprn", v),
		SoldDate:              requiredString(raw, "soldDate", v),
		SiteAddress:           requiredString(raw, "siteAddress", v),
		SSD:                   validation.Number(raw, "ssd", v),
		EAC:                   validation.Number(raw, "eac", v),
		StandingCharges:       validation.Number(raw, "standingCharges", v),
		DayPrice:              validation.Number(raw, "dayPrice", v),
		NightPrice:            validation.Number(raw, "nightPrice", v),
		Terms:                 validation.Integer(raw, "terms", "Terms must be a whole number", v),
		KVA:                   validation.Number(raw, "kva", v),
		Uplift:                validation.Number(raw, "uplift", v),
		Commission:            validation.Number(raw, "commission", v),
		TotalCommission:       validation.Number(raw, "totalCommission", v),
		PartnerSaleCommission: validation.Number(raw, "partnerSaleCommission", v),
		Supplier:              requiredString(raw, "supplier", v),
		CustomerName:          requiredString(raw, "customerName", v),
		Email:                 requiredString(raw, "email", v),
		ContactNumber:         requiredString(raw, "contactNumber", v),
		ReasonForNotLive:      validation.String(raw, "reasonForNotLive", false, v),
		Status:                RecordStatus(validation.String(raw, "status", false, v)),
	}
	if _, ok := raw["status"]; !ok {
		f.Status = DefaultStatus
	}

	// Struct only fails on field errors, which are folded into v.
	_ = validation.Struct(f, fieldMessages, v)

	if !v.Empty() {
		return ClientRecordFields{}, v
	}
	return f, nil
}

func requiredString(raw map[string]any, field string, v validation.Violations) string {
	if !present(raw, field) {
		v.Add(field, fieldMessages[field])
		return ""
	}
	return validation.String(raw, field, true, v)
}

// present treats an explicit JSON null the same as an absent key, so a null
// required string gets its field message rather than a type error.
func present(raw map[string]any, field string) bool {
	val, ok := raw[field]
	return ok && val != nil
}

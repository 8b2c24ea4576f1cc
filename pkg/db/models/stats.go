package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentwise/rentwise-backend/pkg/enums"
)

// DailySiteStat is the site-wide rollup for one calendar day.
type DailySiteStat struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Date           time.Time       `gorm:"column:date;type:date;not null;uniqueIndex:daily_site_stats_date_key" json:"date"`
	TotalVisitors  int64           `gorm:"column:total_visitors;not null;default:0" json:"total_visitors"`
	TotalPageViews int64           `gorm:"column:total_page_views;not null;default:0" json:"total_page_views"`
	TotalRentals   int64           `gorm:"column:total_rentals;not null;default:0" json:"total_rentals"`
	TotalRevenue   decimal.Decimal `gorm:"column:total_revenue;type:numeric(14,2);not null;default:0" json:"total_revenue"`
	AvgOrderValue  decimal.Decimal `gorm:"column:avg_order_value;type:numeric(14,2);not null;default:0" json:"avg_order_value"`
	ConversionRate float64         `gorm:"column:conversion_rate;not null;default:0" json:"conversion_rate"`
	ComputedAt     time.Time       `gorm:"column:computed_at;not null" json:"computed_at"`
}

func (s *DailySiteStat) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// TrafficSourceStat is the per-source rollup for one calendar day.
type TrafficSourceStat struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Date           time.Time           `gorm:"column:date;type:date;not null;uniqueIndex:traffic_source_stats_date_source_key" json:"date"`
	Source         enums.TrafficSource `gorm:"column:source;type:varchar(20);not null;uniqueIndex:traffic_source_stats_date_source_key" json:"source"`
	Visitors       int64               `gorm:"column:visitors;not null;default:0" json:"visitors"`
	PageViews      int64               `gorm:"column:page_views;not null;default:0" json:"page_views"`
	Rentals        int64               `gorm:"column:rentals;not null;default:0" json:"rentals"`
	Revenue        decimal.Decimal     `gorm:"column:revenue;type:numeric(14,2);not null;default:0" json:"revenue"`
	AvgOrderValue  decimal.Decimal     `gorm:"column:avg_order_value;type:numeric(14,2);not null;default:0" json:"avg_order_value"`
	ConversionRate float64             `gorm:"column:conversion_rate;not null;default:0" json:"conversion_rate"`
	ComputedAt     time.Time           `gorm:"column:computed_at;not null" json:"computed_at"`
}

func (s *TrafficSourceStat) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// DeviceStat is the per-device rollup for one calendar day.
type DeviceStat struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Date           time.Time        `gorm:"column:date;type:date;not null;uniqueIndex:device_stats_date_device_key" json:"date"`
	Device         enums.DeviceType `gorm:"column:device;type:varchar(10);not null;uniqueIndex:device_stats_date_device_key" json:"device"`
	Visitors       int64            `gorm:"column:visitors;not null;default:0" json:"visitors"`
	PageViews      int64            `gorm:"column:page_views;not null;default:0" json:"page_views"`
	Rentals        int64            `gorm:"column:rentals;not null;default:0" json:"rentals"`
	Revenue        decimal.Decimal  `gorm:"column:revenue;type:numeric(14,2);not null;default:0" json:"revenue"`
	AvgOrderValue  decimal.Decimal  `gorm:"column:avg_order_value;type:numeric(14,2);not null;default:0" json:"avg_order_value"`
	ConversionRate float64          `gorm:"column:conversion_rate;not null;default:0" json:"conversion_rate"`
	ComputedAt     time.Time        `gorm:"column:computed_at;not null" json:"computed_at"`
}

func (s *DeviceStat) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// CategoryStat is the per-category rollup for one calendar day.
type CategoryStat struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Date           time.Time       `gorm:"column:date;type:date;not null;uniqueIndex:category_stats_date_category_key" json:"date"`
	CategoryID     uuid.UUID       `gorm:"column:category_id;type:uuid;not null;uniqueIndex:category_stats_date_category_key" json:"category_id"`
	Visitors       int64           `gorm:"column:visitors;not null;default:0" json:"visitors"`
	Views          int64           `gorm:"column:views;not null;default:0" json:"views"`
	Rentals        int64           `gorm:"column:rentals;not null;default:0" json:"rentals"`
	Revenue        decimal.Decimal `gorm:"column:revenue;type:numeric(14,2);not null;default:0" json:"revenue"`
	AvgOrderValue  decimal.Decimal `gorm:"column:avg_order_value;type:numeric(14,2);not null;default:0" json:"avg_order_value"`
	ConversionRate float64         `gorm:"column:conversion_rate;not null;default:0" json:"conversion_rate"`
	ComputedAt     time.Time       `gorm:"column:computed_at;not null" json:"computed_at"`
}

func (s *CategoryStat) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}
